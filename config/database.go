package config

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Databases bundles the two credential tiers of the hosted database.
type Databases struct {
	// Public is the user-scoped connection used for ordinary reads and writes.
	Public *gorm.DB
	// Service bypasses row level security. Credential checks, password writes
	// and admin operations go through it.
	Service *gorm.DB
}

// ConnectDatabases opens both tiers. In the test environment both tiers share
// a single in-memory SQLite database.
func ConnectDatabases(cfg *Config) (Databases, error) {
	if cfg.IsTest() {
		db, err := ConnectDatabase(cfg, "")
		if err != nil {
			return Databases{}, err
		}
		return Databases{Public: db, Service: db}, nil
	}

	public, err := ConnectDatabase(cfg, cfg.DatabaseURL)
	if err != nil {
		return Databases{}, fmt.Errorf("connect public database: %w", err)
	}
	if cfg.DatabaseServiceURL == cfg.DatabaseURL {
		return Databases{Public: public, Service: public}, nil
	}
	service, err := ConnectDatabase(cfg, cfg.DatabaseServiceURL)
	if err != nil {
		return Databases{}, fmt.Errorf("connect service database: %w", err)
	}
	return Databases{Public: public, Service: service}, nil
}

// ConnectDatabase opens a single gorm connection for the configured driver.
func ConnectDatabase(cfg *Config, dsn string) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn), TranslateError: true}

	var dialector gorm.Dialector
	switch {
	case cfg.IsTest() || cfg.DBDriver == "sqlite":
		if dsn == "" {
			// Uniquify the name so tests in the same process never share state.
			dsn = fmt.Sprintf("file:cml_%d?mode=memory&cache=shared", time.Now().UnixNano())
		}
		dialector = sqlite.Open(dsn)
	case cfg.DBDriver == "mysql":
		dialector = mysql.Open(dsn)
	default:
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}
	return db, nil
}
