package app

import (
	"log"
	"time"

	"twse-attention-radar/database/market"
	models "twse-attention-radar/database/models_pkg"
	"twse-attention-radar/helpers"
	"twse-attention-radar/sources"
)

// indexTarget maps a FinMind index id to the code and display name rows are
// logged under.
type indexTarget struct {
	finID string
	code  string
	name  string
}

var indexTargets = []indexTarget{
	{finID: "TAIEX", code: "^TWII", name: "加權指數"},
	{finID: "TPEx", code: "^TWOII", name: "櫃買指數"},
}

// MarketMonitor keeps the daily index log current. It runs at the start of
// every scan and upserts the last few weeks of closes, so gaps from skipped
// runs heal themselves.
type MarketMonitor struct {
	finmind   *sources.FinMindClient
	repo      *market.Repository
	closeHour int
	closeMin  int
	lookback  int // calendar days of history to refresh
	now       func() time.Time
}

// NewMarketMonitor creates a market monitor.
func NewMarketMonitor(finmind *sources.FinMindClient, repo *market.Repository, closeHour, closeMin int) *MarketMonitor {
	return &MarketMonitor{
		finmind:   finmind,
		repo:      repo,
		closeHour: closeHour,
		closeMin:  closeMin,
		lookback:  45,
		now:       time.Now,
	}
}

// Update refreshes the index log for all tracked indexes. One index failing
// does not block the others.
func (m *MarketMonitor) Update() {
	log.Println("📊 Updating market index log...")
	now := m.now()
	start := now.AddDate(0, 0, -m.lookback).Format("2006-01-02")

	today := localDay(now)
	beforeClose := beforeCutoff(now, m.closeHour, m.closeMin)

	for _, target := range indexTargets {
		points, err := m.finmind.PriceSeries(target.finID, start, "")
		if err != nil {
			log.Printf("⚠️ Index %s fetch failed: %v", target.finID, err)
			continue
		}
		rows := indexRows(target, points, today, beforeClose)
		if len(rows) == 0 {
			continue
		}
		if err := m.repo.Upsert(rows); err != nil {
			log.Printf("⚠️ Index %s upsert failed: %v", target.finID, err)
			continue
		}
		last := rows[len(rows)-1]
		log.Printf("   ✅ %s %s: 收 %.2f (%+.2f%%), 成交 %s",
			target.name, last.Date.Format("2006-01-02"), last.Close,
			last.PctChange, helpers.FormatTWDYi(last.TurnoverYi*1e8))
	}
}

// indexRows turns a price series into log rows. The daily change is derived
// from consecutive closes; today's row is withheld while the session is
// still open so a half-day figure never lands in the log.
func indexRows(target indexTarget, points []sources.PricePoint, today time.Time, beforeClose bool) []models.MarketIndexLog {
	var rows []models.MarketIndexLog
	prevClose := 0.0
	for _, p := range points {
		if p.Close <= 0 {
			continue
		}
		d, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			continue
		}
		pct := 0.0
		if prevClose > 0 {
			pct = (p.Close - prevClose) / prevClose * 100
		}
		prevClose = p.Close

		if d.Equal(today) && beforeClose {
			continue
		}
		rows = append(rows, models.MarketIndexLog{
			Date:       d,
			Code:       target.code,
			Name:       target.name,
			Close:      helpers.Round2(p.Close),
			PctChange:  helpers.Round2(pct),
			TurnoverYi: helpers.Round2(p.TradingMoney / 1e8),
		})
	}
	return rows
}

// localDay truncates a wall-clock time to its calendar day, normalized to
// UTC midnight like every other date in the system.
func localDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func beforeCutoff(t time.Time, hour, min int) bool {
	return t.Hour()*60+t.Minute() < hour*60+min
}
