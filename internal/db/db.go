// Package db opens the optional history database. MySQL gets its schema from
// the SQL migrations; SQLite is for local runs and tests and is migrated by
// the store itself.
package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"parity-league/internal/config"
	"parity-league/internal/migrations"
)

// DB wraps the GORM database connection.
type DB struct {
	*gorm.DB
}

// New opens the configured database, tunes the pool and, for MySQL, applies
// pending SQL migrations.
func New(cfg config.DBConfig) (*DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var (
		gdb *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		gdb, err = gorm.Open(mysql.Open(dsn), gormConfig)
	case "sqlite":
		gdb, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.Driver == "mysql" {
		migrationDSN := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		if err := migrations.Run(migrationDSN); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	log.Printf("[DB] connected via %s", cfg.Driver)
	return &DB{gdb}, nil
}
