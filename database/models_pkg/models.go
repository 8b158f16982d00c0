package models

import "time"

// AttentionRecord is one stock flagged on a daily exchange attention
// bulletin. The table is the append-only history that every scan window is
// rebuilt from.
//
// Key Fields:
//   - Date: announcement date, normalized to midnight UTC
//   - Market: which exchange flagged the stock (TWSE or TPEx)
//   - Code: 4-digit stock code
//   - ClauseText: canonical "第N款" list, or the raw bulletin text when no
//     clause could be parsed
//
// A stock flagged by both boards on the same day keeps a single row; the
// clause texts are merged before insert. The (date, code) pair is unique so
// re-running a day can never duplicate history.
type AttentionRecord struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Date       time.Time `gorm:"uniqueIndex:idx_attention_date_code;not null" json:"date"`
	Market     string    `gorm:"size:8;not null" json:"market"`
	Code       string    `gorm:"size:10;uniqueIndex:idx_attention_date_code;not null" json:"code"`
	Name       string    `gorm:"size:32" json:"name"`
	ClauseText string    `gorm:"type:text" json:"clause_text"`
}

// TableName specifies the table name for AttentionRecord
func (AttentionRecord) TableName() string {
	return "attention_records"
}

// Fetch status values recorded per bulletin date.
const (
	FetchOK     = "ok"     // at least one row collected
	FetchEmpty  = "empty"  // both feeds answered, nothing flagged
	FetchFailed = "failed" // both feeds down, day must be retried
)

// FetchStatus records the outcome of one bulletin fetch per date. A quiet
// day and a failed day both leave zero attention rows, so without this table
// they would be indistinguishable on re-runs.
type FetchStatus struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Date      time.Time `gorm:"uniqueIndex;not null" json:"date"`
	Status    string    `gorm:"size:10;not null" json:"status"`
	RowCount  int       `json:"row_count"`
	FetchedAt time.Time `gorm:"not null" json:"fetched_at"`
}

// TableName specifies the table name for FetchStatus
func (FetchStatus) TableName() string {
	return "fetch_status"
}

// StockSummary is the per-stock output of one full scan: the 30-day window
// statistics, the projected days to disposition and the risk assessment.
// The table is rewritten wholesale on every scan.
//
// Key Fields:
//   - Streak: consecutive valid accumulation days ending at the scan date
//   - Count30/Count10: valid days inside the 30- and 10-day windows
//   - BitString30/BitString10: the windows as left-padded 0/1 strings
//   - EstDays: projected trading days until disposition, 99 when none
//     inside the simulation horizon
//   - EstDisplay: what operators see, "X" for filtered stocks
type StockSummary struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ScanDate     time.Time  `gorm:"index;not null" json:"scan_date"`
	Code         string     `gorm:"size:10;index;not null" json:"code"`
	Name         string     `gorm:"size:32" json:"name"`
	Streak       int        `json:"streak"`
	Count30      int        `json:"count_30"`
	Count10      int        `json:"count_10"`
	LastFlagDate *time.Time `json:"last_flag_date,omitempty"`
	BitString30  string     `gorm:"size:30" json:"bit_string_30"`
	BitString10  string     `gorm:"size:10" json:"bit_string_10"`
	EstDays      int        `json:"est_days"`
	EstDisplay   string     `gorm:"size:4" json:"est_display"`
	Reason       string     `gorm:"type:text" json:"reason"`
	RiskLevel    string     `gorm:"size:4" json:"risk_level"`
	TriggerMsg   string     `gorm:"type:text" json:"trigger_msg"`

	CurrPrice       float64 `gorm:"type:decimal(15,2)" json:"curr_price"`
	LimitPrice      float64 `gorm:"type:decimal(15,2)" json:"limit_price"`
	GapPct          float64 `gorm:"type:decimal(10,2)" json:"gap_pct"`
	CurrVolLots     int64   `json:"curr_vol_lots"`
	LimitVolLots    int64   `json:"limit_vol_lots"`
	TurnoverValueYi float64 `gorm:"type:decimal(15,2)" json:"turnover_value_yi"`
	TurnoverRate    float64 `gorm:"type:decimal(10,2)" json:"turnover_rate"`
	PE              float64 `gorm:"type:decimal(10,2)" json:"pe"`
	PB              float64 `gorm:"type:decimal(10,2)" json:"pb"`
	DayTradePct     float64 `gorm:"type:decimal(10,2)" json:"day_trade_pct"`
}

// TableName specifies the table name for StockSummary
func (StockSummary) TableName() string {
	return "stock_summaries"
}

// MarketIndexLog is one daily close of a tracked market index (TAIEX or the
// TPEx index). Rows are upserted so an intraday value written after the
// safe-close time is overwritten by the final one.
type MarketIndexLog struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Date       time.Time `gorm:"uniqueIndex:idx_index_date_code;not null" json:"date"`
	Code       string    `gorm:"size:10;uniqueIndex:idx_index_date_code;not null" json:"code"`
	Name       string    `gorm:"size:16" json:"name"`
	Close      float64   `gorm:"type:decimal(15,2)" json:"close"`
	PctChange  float64   `gorm:"type:decimal(10,2)" json:"pct_change"`
	TurnoverYi float64   `gorm:"type:decimal(15,2)" json:"turnover_yi"`
}

// TableName specifies the table name for MarketIndexLog
func (MarketIndexLog) TableName() string {
	return "market_index_logs"
}

// StockParam holds locally curated per-stock figures that beat the values
// scraped from public APIs: the board a stock trades on and its shares
// outstanding. Shares <= 1 means unknown and lets the scraped figure win.
type StockParam struct {
	Code       string `gorm:"primaryKey;size:10" json:"code"`
	MarketType string `gorm:"size:8" json:"market_type"`
	Shares     int64  `json:"shares"`
}

// TableName specifies the table name for StockParam
func (StockParam) TableName() string {
	return "stock_params"
}
