// Package persist is the relational audit-trail store: instruments,
// feature-flag settings, and the append-only decision and transaction
// logs.
package persist

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured database and migrates the schema.
// Supported drivers are "sqlite" and "postgres".
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("persist: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("persist: open %s: %w", driver, err)
	}

	if err := db.AutoMigrate(
		&InstrumentModel{},
		&SettingModel{},
		&DecisionModel{},
		&TransactionModel{},
	); err != nil {
		return nil, fmt.Errorf("persist: migrate: %w", err)
	}
	return db, nil
}
