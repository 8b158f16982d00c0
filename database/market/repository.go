// Package market persists the daily index closes used by the market
// monitor.
package market

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"twse-attention-radar/database"
	models "twse-attention-radar/database/models_pkg"
	"twse-attention-radar/engine"
)

// Repository handles database operations for market index logs.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new market repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert writes index rows, overwriting any existing (date, code) row. The
// monitor may log an intraday close first and replace it with the final one
// after the market settles.
func (r *Repository) Upsert(rows []models.MarketIndexLog) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].Date = engine.Day(rows[i].Date)
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "close", "pct_change", "turnover_yi"}),
	}).CreateInBatches(rows, 200).Error
	if err != nil {
		return database.WrapDBError("Upsert", err)
	}
	return nil
}

// LatestDate reports the most recent logged date for an index code.
func (r *Repository) LatestDate(code string) (time.Time, bool, error) {
	var row models.MarketIndexLog
	err := r.db.Where("code = ?", code).Order("date DESC").First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, database.WrapDBError("LatestDate", err)
	}
	return row.Date, true, nil
}

// Recent returns the logged rows for one index since the given date,
// ascending.
func (r *Repository) Recent(code string, since time.Time) ([]models.MarketIndexLog, error) {
	var rows []models.MarketIndexLog
	err := r.db.Where("code = ? AND date >= ?", code, engine.Day(since)).Order("date").Find(&rows).Error
	if err != nil {
		return nil, database.WrapDBError("Recent", err)
	}
	return rows, nil
}
