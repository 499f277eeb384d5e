package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the configured database, tunes the pool and stores it in config.DB.
func Connect() (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch config.C.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(config.C.SQLitePath)
	case "postgres", "":
		dialector = postgres.Open(config.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", config.C.DBDriver)
	}

	db, err := gorm.Open(dialector, gormConfig(logger.Warn))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if config.C.DBDriver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetConnMaxLifetime(60 * time.Minute)
	}

	config.DB = db
	return db, nil
}

// OpenMemory returns a fresh in-memory SQLite database with all tables migrated.
func OpenMemory(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(logger.Silent))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func gormConfig(level logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
		// Ownership and relations are enforced by the handlers.
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}
