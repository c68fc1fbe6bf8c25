package util

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// InitLogger configures the process logger. Development uses a console writer,
// every other environment logs JSON.
func InitLogger(env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if env == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger().Level(lvl)
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
	}
	securityLogger = logger.With().Str("component", "security").Logger()
	return logger
}

// Logger returns the process logger.
func Logger() *zerolog.Logger {
	return &logger
}
