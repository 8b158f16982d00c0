// Package database provides database connection management for the
// attention-stock tracking system.
//
// This package includes:
//   - GORM connection management over PostgreSQL
//   - A raw lib/pq connection for COPY-based bulk appends
//   - Schema migration for all domain tables
//
// Data Models:
//
//	All data models (AttentionRecord, StockSummary, MarketIndexLog, etc.)
//	are defined in the models_pkg package to avoid circular import
//	dependencies.
package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	models "twse-attention-radar/database/models_pkg"
)

// Database holds the GORM database connection and provides access to the underlying DB instance.
type Database struct {
	db *gorm.DB
}

// DB returns the underlying GORM database instance for direct access when needed.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect establishes database connection using GORM
func Connect(host string, port int, dbname, user, password string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Silent logging for production
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{db: db}, nil
}

// Migrate creates or updates the domain tables.
func (d *Database) Migrate() error {
	return d.db.AutoMigrate(
		&models.AttentionRecord{},
		&models.FetchStatus{},
		&models.StockSummary{},
		&models.MarketIndexLog{},
		&models.StockParam{},
	)
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ============================================================================
// Backward Compatibility Type Aliases
// ============================================================================

// These type aliases let callers import the domain models from the database
// package directly.

type AttentionRecord = models.AttentionRecord
type FetchStatus = models.FetchStatus
type StockSummary = models.StockSummary
type MarketIndexLog = models.MarketIndexLog
type StockParam = models.StockParam
