package database

import (
	"fmt"

	"github.com/boxwatch/boxwatch-api/pkg/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options selects the relational backend
type Options struct {
	// DSN is a Postgres connection string. Empty falls back to SQLite.
	DSN string
	// DataPath is the SQLite file, or a file: URI for in-memory databases
	DataPath string
	// Verbose enables gorm SQL logging
	Verbose bool
}

// Open connects to Postgres or SQLite and migrates the schema
func Open(opts Options) (*gorm.DB, error) {
	cfg := &gorm.Config{
		PrepareStmt:    false,
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}
	if opts.Verbose {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		db  *gorm.DB
		err error
	)
	if opts.DSN != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  opts.DSN,
			PreferSimpleProtocol: true,
		}), cfg)
	} else {
		path := opts.DataPath
		if path == "" {
			path = "boxes.db"
		}
		db, err = gorm.Open(sqlite.Open(path), cfg)
		if err == nil {
			// SQLite serializes writers; one connection avoids "database is locked".
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				sqlDB.SetMaxOpenConns(1)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table the application uses
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Box{},
		&models.Report{},
		&models.AuthorizedVolunteer{},
		&models.SharedConfig{},
		&models.LocationSuggestion{},
		&models.AuditEntry{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
