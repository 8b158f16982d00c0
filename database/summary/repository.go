// Package summary persists the per-stock scan output and the locally
// curated stock parameters that feed the risk figures.
package summary

import (
	"time"

	"gorm.io/gorm"

	"twse-attention-radar/database"
	models "twse-attention-radar/database/models_pkg"
	"twse-attention-radar/engine"
)

// Repository handles database operations for stock summaries.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new summary repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ReplaceAll swaps the whole summary table for the given scan's rows in one
// transaction. The table only ever holds the latest scan; readers either see
// the previous scan or the new one, never a mix.
func (r *Repository) ReplaceAll(rows []models.StockSummary) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.StockSummary{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
	if err != nil {
		return database.WrapDBError("ReplaceAll", err)
	}
	return nil
}

// List returns the current scan's summaries ordered by projected days to
// disposition, most urgent first.
func (r *Repository) List() ([]models.StockSummary, error) {
	var rows []models.StockSummary
	if err := r.db.Order("est_days ASC, count_30 DESC").Find(&rows).Error; err != nil {
		return nil, database.WrapDBError("List", err)
	}
	return rows, nil
}

// ScanDate reports the date of the scan currently on record. An empty table
// yields a NotFoundError.
func (r *Repository) ScanDate() (time.Time, error) {
	var row models.StockSummary
	err := r.db.Select("scan_date").Order("scan_date DESC").First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return time.Time{}, database.NewNotFoundErrorWithID("scan", nil)
	}
	if err != nil {
		return time.Time{}, database.WrapDBError("ScanDate", err)
	}
	return engine.Day(row.ScanDate), nil
}

// LoadParams returns the curated per-stock parameters keyed by code.
func (r *Repository) LoadParams() (map[string]models.StockParam, error) {
	var rows []models.StockParam
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, database.WrapDBError("LoadParams", err)
	}
	params := make(map[string]models.StockParam, len(rows))
	for _, p := range rows {
		params[p.Code] = p
	}
	return params, nil
}

// SaveParam upserts one curated stock parameter row.
func (r *Repository) SaveParam(p models.StockParam) error {
	if err := r.db.Save(&p).Error; err != nil {
		return database.WrapDBError("SaveParam", err)
	}
	return nil
}
