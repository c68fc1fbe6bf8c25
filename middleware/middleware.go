package middleware

import (
	"time"

	"github.com/ariebrainware/cml-tracker/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	publicDBKey  = "db"
	serviceDBKey = "service_db"
	sessionsKey  = "sessions"
)

// CORS configures CORS headers for the given origins. Credentials are allowed
// because session tokens travel in cookies.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Requested-With", SessionTokenHeader},
		ExposeHeaders:    []string{"Content-Language"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowCredentials = false
		cfg.AllowAllOrigins = true
	}
	return cors.New(cfg)
}

// DatabaseMiddleware injects both database tiers into the request context.
// The service tier bypasses row level security and must only be used for
// credential checks, password writes and admin operations.
func DatabaseMiddleware(public, service *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(publicDBKey, public)
		c.Set(serviceDBKey, service)
		c.Next()
	}
}

// GetDB returns the public tier database from context.
func GetDB(c *gin.Context) *gorm.DB {
	return getDB(c, publicDBKey)
}

// GetServiceDB returns the service tier database from context.
func GetServiceDB(c *gin.Context) *gorm.DB {
	return getDB(c, serviceDBKey)
}

func getDB(c *gin.Context, key string) *gorm.DB {
	v, ok := c.Get(key)
	if !ok {
		return nil
	}
	db, ok := v.(*gorm.DB)
	if !ok || db == nil {
		return nil
	}
	return db.WithContext(c.Request.Context())
}

// SessionMiddleware injects the session manager and cookie policy.
func SessionMiddleware(m *session.Manager, cookieSecure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(sessionsKey, m)
		c.Set(cookieSecureKey, cookieSecure)
		c.Next()
	}
}

// GetSessions returns the session manager from context, or nil.
func GetSessions(c *gin.Context) *session.Manager {
	v, ok := c.Get(sessionsKey)
	if !ok {
		return nil
	}
	m, _ := v.(*session.Manager)
	return m
}

// RequestLogger logs one line per request with method, path, status and latency.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = logger.Error()
		case status >= 400:
			ev = logger.Warn()
		default:
			ev = logger.Info()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("request")
	}
}
