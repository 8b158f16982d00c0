// Package records persists the daily attention-bulletin history and the
// per-date fetch status, and rebuilds the clause lookup that the window
// builder consumes.
package records

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"twse-attention-radar/clause"
	"twse-attention-radar/database"
	models "twse-attention-radar/database/models_pkg"
	"twse-attention-radar/engine"
)

// Repository handles database operations for attention records.
type Repository struct {
	db  *gorm.DB
	raw *sql.DB // COPY path for bulk appends, may be nil
}

// NewRepository creates a new records repository. raw is optional; without
// it bulk appends fall back to batched inserts.
func NewRepository(db *gorm.DB, raw *sql.DB) *Repository {
	return &Repository{db: db, raw: raw}
}

// Append inserts the given attention rows, skipping (date, code) pairs that
// are already on record. Rows for the same stock flagged by both boards are
// merged into one with the clause texts combined. Returns the number of rows
// actually written.
func (r *Repository) Append(rows []models.AttentionRecord) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	for _, row := range rows {
		if row.Date.IsZero() {
			return 0, database.NewValidationErrorWithValue("date", "must be set", row.Code)
		}
		if row.Code == "" {
			return 0, database.NewValidationErrorWithValue("code", "must not be empty", row.Date)
		}
	}

	merged := mergeSameDay(rows)

	dates := make([]time.Time, 0, len(merged))
	seen := map[time.Time]bool{}
	for _, row := range merged {
		d := engine.Day(row.Date)
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}

	var existing []models.AttentionRecord
	if err := r.db.Select("date", "code").Where("date IN ?", dates).Find(&existing).Error; err != nil {
		return 0, database.WrapDBError("Append", err)
	}
	have := make(map[string]bool, len(existing))
	for _, e := range existing {
		have[recordKey(e.Date, e.Code)] = true
	}

	var fresh []models.AttentionRecord
	for _, row := range merged {
		if !have[recordKey(row.Date, row.Code)] {
			fresh = append(fresh, row)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if r.raw != nil {
		if err := r.copyIn(fresh); err != nil {
			return 0, database.WrapDBError("Append", err)
		}
		return len(fresh), nil
	}
	if err := r.db.CreateInBatches(fresh, 200).Error; err != nil {
		return 0, database.WrapDBError("Append", err)
	}
	return len(fresh), nil
}

// copyIn streams rows through the COPY protocol. A scan backfilling weeks of
// history appends thousands of rows at once, which COPY handles in a single
// round trip.
func (r *Repository) copyIn(rows []models.AttentionRecord) error {
	tx, err := r.raw.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(pq.CopyIn("attention_records", "date", "market", "code", "name", "clause_text"))
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, row := range rows {
		if _, err := stmt.Exec(engine.Day(row.Date), row.Market, row.Code, row.Name, row.ClauseText); err != nil {
			stmt.Close()
			tx.Rollback()
			return err
		}
	}
	// Flush the buffered rows
	if _, err := stmt.Exec(); err != nil {
		stmt.Close()
		tx.Rollback()
		return err
	}
	if err := stmt.Close(); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ReplaceDay atomically swaps all rows of one date for the given set. Used
// when a day previously recorded from an intraday fetch is re-fetched after
// the safe-crawl time.
func (r *Repository) ReplaceDay(date time.Time, rows []models.AttentionRecord) error {
	date = engine.Day(date)
	merged := mergeSameDay(rows)
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("date = ?", date).Delete(&models.AttentionRecord{}).Error; err != nil {
			return err
		}
		if len(merged) == 0 {
			return nil
		}
		return tx.CreateInBatches(merged, 200).Error
	})
	if err != nil {
		return database.WrapDBError("ReplaceDay", err)
	}
	return nil
}

// ActiveStock is a code seen on the bulletin recently, with its latest name.
type ActiveStock struct {
	Code string
	Name string
}

// ActiveStocks returns every code flagged since the given date, each with
// the name from its most recent record.
func (r *Repository) ActiveStocks(since time.Time) ([]ActiveStock, error) {
	var stocks []ActiveStock
	err := r.db.Raw(`
		SELECT DISTINCT ON (code) code, name
		FROM attention_records
		WHERE code IN (SELECT DISTINCT code FROM attention_records WHERE date >= ?)
		ORDER BY code, date DESC`, engine.Day(since)).Scan(&stocks).Error
	if err != nil {
		return nil, database.WrapDBError("ActiveStocks", err)
	}
	return stocks, nil
}

// ClauseMap is the per-stock, per-day clause text rebuilt from history.
type ClauseMap map[string]map[time.Time]string

// Lookup adapts the map to the window builder's lookup signature.
func (cm ClauseMap) Lookup(code string, d time.Time) string {
	return cm[code][engine.Day(d)]
}

// LoadClauseMap rebuilds the clause lookup from all records since the given
// date. Duplicate (code, day) rows merge their texts.
func (r *Repository) LoadClauseMap(since time.Time) (ClauseMap, error) {
	var rows []models.AttentionRecord
	err := r.db.Where("date >= ?", engine.Day(since)).Order("date").Find(&rows).Error
	if err != nil {
		return nil, database.WrapDBError("LoadClauseMap", err)
	}
	return buildClauseMap(rows), nil
}

func buildClauseMap(rows []models.AttentionRecord) ClauseMap {
	cm := ClauseMap{}
	for _, row := range rows {
		d := engine.Day(row.Date)
		byDay := cm[row.Code]
		if byDay == nil {
			byDay = map[time.Time]string{}
			cm[row.Code] = byDay
		}
		byDay[d] = clause.Merge(byDay[d], row.ClauseText)
	}
	return cm
}

// mergeSameDay collapses rows sharing a (date, code) key into one, merging
// clause texts. Input order decides which market/name survives (first wins).
func mergeSameDay(rows []models.AttentionRecord) []models.AttentionRecord {
	idx := map[string]int{}
	var out []models.AttentionRecord
	for _, row := range rows {
		row.Date = engine.Day(row.Date)
		key := recordKey(row.Date, row.Code)
		if i, ok := idx[key]; ok {
			out[i].ClauseText = clause.Merge(out[i].ClauseText, row.ClauseText)
			continue
		}
		idx[key] = len(out)
		out = append(out, row)
	}
	return out
}

func recordKey(d time.Time, code string) string {
	return engine.Day(d).Format("2006-01-02") + "_" + code
}

// SetFetchStatus upserts the fetch outcome for one bulletin date.
func (r *Repository) SetFetchStatus(date time.Time, status string, rowCount int) error {
	date = engine.Day(date)
	fs := models.FetchStatus{Date: date, Status: status, RowCount: rowCount, FetchedAt: time.Now()}
	err := r.db.Where("date = ?", date).
		Assign(map[string]any{"status": status, "row_count": rowCount, "fetched_at": fs.FetchedAt}).
		FirstOrCreate(&fs).Error
	if err != nil {
		return database.WrapDBError("SetFetchStatus", err)
	}
	return nil
}

// FetchStatusFor reports the recorded outcome for a date, or "" when the
// date was never fetched.
func (r *Repository) FetchStatusFor(date time.Time) (string, error) {
	var fs models.FetchStatus
	err := r.db.Where("date = ?", engine.Day(date)).First(&fs).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", database.WrapDBError("FetchStatusFor", err)
	}
	return fs.Status, nil
}
