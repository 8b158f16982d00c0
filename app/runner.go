package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"twse-attention-radar/cache"
	"twse-attention-radar/clause"
	"twse-attention-radar/config"
	models "twse-attention-radar/database/models_pkg"
	"twse-attention-radar/database/records"
	"twse-attention-radar/database/summary"
	"twse-attention-radar/engine"
	"twse-attention-radar/risk"
	"twse-attention-radar/sources"
)

// Runner executes one full scan: refresh the index log, collect the day's
// bulletin, rebuild every flagged stock's 30-day window, project days to
// disposition and score the risk, then rewrite the summary table.
type Runner struct {
	cfg       *config.Config
	finmind   *sources.FinMindClient
	twse      *sources.TWSEClient
	tpex      *sources.TPExClient
	bulletin  *sources.Bulletin
	yahoo     *sources.YahooClient
	records   *records.Repository
	summaries *summary.Repository
	feeds     *cache.FeedCache
	monitor   *MarketMonitor

	now   func() time.Time
	pause func(time.Duration)
}

// NewRunner wires a scan runner from its collaborators.
func NewRunner(cfg *config.Config, finmind *sources.FinMindClient, twse *sources.TWSEClient,
	tpex *sources.TPExClient, yahoo *sources.YahooClient, recordsRepo *records.Repository,
	summaryRepo *summary.Repository, feeds *cache.FeedCache, monitor *MarketMonitor) *Runner {
	return &Runner{
		cfg:       cfg,
		finmind:   finmind,
		twse:      twse,
		tpex:      tpex,
		bulletin:  &sources.Bulletin{TWSE: twse, TPEx: tpex},
		yahoo:     yahoo,
		records:   recordsRepo,
		summaries: summaryRepo,
		feeds:     feeds,
		monitor:   monitor,
		now:       time.Now,
		pause:     time.Sleep,
	}
}

// Run executes one scan end to end.
func (r *Runner) Run(ctx context.Context) error {
	started := r.now()

	r.monitor.Update()

	calendar, err := r.loadCalendar(ctx)
	if err != nil {
		return fmt.Errorf("Run: %w", err)
	}
	if len(calendar) == 0 {
		return fmt.Errorf("Run: empty trading calendar")
	}

	target, rows, status := r.resolveTargetDate(ctx, calendar)
	if status == models.FetchFailed && len(calendar) >= 2 {
		// Rollback to T-1 when today's bulletin is unreachable or simply
		// not announced yet.
		log.Println("🔄 Rolling back to the previous trading day (T-1)...")
		calendar = calendar[:len(calendar)-1]
		target = calendar[len(calendar)-1]
		rows, status = r.fetchBulletin(ctx, target)
	}
	log.Printf("📅 Scan date locked: %s", target.Format("2006-01-02"))

	if err := r.persistBulletin(ctx, target, rows, status); err != nil {
		return fmt.Errorf("Run: %w", err)
	}

	params, err := r.summaries.LoadParams()
	if err != nil {
		log.Printf("⚠️ Stock parameters unavailable: %v", err)
		params = map[string]models.StockParam{}
	}

	jm := r.loadJailMap(ctx, target)
	em := engine.BuildExclusionMap(calendar, jm)

	cm, err := r.records.LoadClauseMap(calendar[0])
	if err != nil {
		return fmt.Errorf("Run: %w", err)
	}

	activeSince := calendar[0]
	if len(calendar) >= 90 {
		activeSince = calendar[len(calendar)-90]
	}
	stocks, err := r.records.ActiveStocks(activeSince)
	if err != nil {
		return fmt.Errorf("Run: %w", err)
	}

	log.Printf("🔍 Scanning %d stocks...", len(stocks))
	results := make([]models.StockSummary, 0, len(stocks))
	for i, stock := range stocks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		row := r.scanStock(stock, target, calendar, jm, em, cm, params)
		results = append(results, row)
		log.Printf("   [%d/%d] %s %s: 最快%s天 %s | %s | 當沖:%.2f%%",
			i+1, len(stocks), row.Code, row.Name, row.EstDisplay, row.Reason,
			row.TriggerMsg, row.DayTradePct)
		if r.cfg.Scan.PauseEvery > 0 && (i+1)%r.cfg.Scan.PauseEvery == 0 {
			r.pause(1500 * time.Millisecond)
		}
	}

	if err := r.summaries.ReplaceAll(results); err != nil {
		return fmt.Errorf("Run: %w", err)
	}
	log.Printf("✅ Scan complete: %d stocks in %s.", len(results), time.Since(started).Round(time.Second))
	return nil
}

// scanStock builds one stock's summary row.
func (r *Runner) scanStock(stock records.ActiveStock, target time.Time, calendar []time.Time,
	jm engine.JailMap, em engine.ExclusionMap, cm records.ClauseMap,
	params map[string]models.StockParam) models.StockSummary {

	code := stock.Code
	marketType := "上市"
	param, hasParam := params[code]
	if hasParam && param.MarketType != "" {
		marketType = param.MarketType
	}

	dates := engine.LastNonJailTradingDays(code, calendar, jm, em, engine.WindowSize)
	window := engine.BuildWindow(code, dates, cm.Lookup, em)
	bits := engine.Bits(window)
	texts := engine.ClauseTexts(window)
	validBits := engine.ValidBits(window)

	est, reason := engine.Simulate(bits, texts, code, target, jm, r.cfg.Scan.SafeFilter)

	latest := clause.Set{}
	if len(texts) > 0 {
		latest = clause.Parse(texts[len(texts)-1])
	}
	specialRisk := clause.IsSpecialRiskDay(latest)
	clause13 := false
	for _, t := range texts {
		if clause.Parse(t).Contains(13) {
			clause13 = true
			break
		}
	}
	estDays, estDisplay, reasonDisplay := annotateProjection(est, reason, specialRisk, clause13)

	hist, err := r.yahoo.History(code, marketType)
	if err != nil {
		log.Printf("   ⚠️ %s history unavailable: %v", code, err)
	}
	fund := r.loadFundamentals(code, marketType, param, hasParam)
	dt := r.finmind.DayTradeStats(code, target.Format("2006-01-02"))

	assess := risk.Score(hist, fund, estDays, dt)

	bitStr := engine.BitString(validBits)
	bitStr10 := bitStr
	if len(bitStr) > 10 {
		bitStr10 = bitStr[len(bitStr)-10:]
	}
	row := models.StockSummary{
		ScanDate:    target,
		Code:        code,
		Name:        stock.Name,
		Streak:      engine.Streak(validBits),
		Count30:     engine.CountRecent(validBits, 30),
		Count10:     engine.CountRecent(validBits, 10),
		BitString30: bitStr,
		BitString10: bitStr10,
		EstDays:     estDays,
		EstDisplay:  estDisplay,
		Reason:      reasonDisplay,
		RiskLevel:   string(assess.Level),
		TriggerMsg:  assess.TriggerMsg,

		CurrPrice:       assess.CurrPrice,
		LimitPrice:      assess.LimitPrice,
		GapPct:          assess.GapPct,
		CurrVolLots:     assess.CurrVolLots,
		LimitVolLots:    assess.LimitVolLots,
		TurnoverValueYi: assess.TurnoverValueYi,
		TurnoverRate:    assess.TurnoverRate,
		PE:              assess.PE,
		PB:              assess.PB,
		DayTradePct:     assess.DayTradePct,
	}
	if last, ok := engine.LastTriggerDate(dates, validBits); ok {
		row.LastFlagDate = &last
	}
	return row
}

// loadFundamentals merges the curated parameters with scraped figures. A
// curated share count beats the scraped one; valuation ratios always come
// from the scrape.
func (r *Runner) loadFundamentals(code, marketType string, param models.StockParam, hasParam bool) risk.Fundamentals {
	fund, err := r.yahoo.Fundamentals(code, marketType)
	if err != nil {
		log.Printf("   ⚠️ %s fundamentals unavailable: %v", code, err)
	}
	fund.MarketType = marketType
	if hasParam && param.Shares > 1 {
		fund.Shares = param.Shares
	}
	return fund
}

// annotateProjection converts the raw simulation output into what operators
// see, folding in the special-risk and day-trading-clause annotations.
//
// Special-risk clauses (9-14) never feed the accumulation counters, but a
// stock whose latest flag is one of them carries manual-review risk even
// when the simulation is silent. Clause 13 additionally extends a
// disposition from 10 to 12 trading days.
func annotateProjection(est int, reason string, specialRisk, clause13 bool) (int, string, string) {
	if reason == engine.SafeFilterReason {
		display := ""
		if specialRisk {
			display = "籌碼異常(人工審核風險)"
			if clause13 {
				display += " + 刑期可能延長"
			}
		}
		return engine.NoForecastDays, "X", display
	}
	if est == 0 {
		return 0, "0", reason
	}
	display := reason
	if specialRisk {
		display += " | ⚠️留意人工處置風險"
	}
	if clause13 {
		display += " (若進處置將關12天)"
	}
	return est, fmt.Sprintf("%d", est), display
}

// loadCalendar returns the trading calendar ending at the scan day. The
// official calendar usually lags behind on the evening of a trading day, so
// after the market-close cutoff today is probed via a 2330 price row and
// appended when the market really traded.
func (r *Runner) loadCalendar(ctx context.Context) ([]time.Time, error) {
	now := r.now()
	days := r.cfg.Scan.CalendarDays
	endStr := now.Format("2006-01-02")
	startStr := now.AddDate(0, 0, -days*2).Format("2006-01-02")

	dates, ok := r.feeds.GetCalendar(ctx, startStr, endStr)
	if !ok {
		var err error
		log.Println("📅 Downloading official trading calendar...")
		dates, err = r.finmind.TradingCalendar(startStr, endStr)
		if err != nil {
			log.Printf("⚠️ Calendar download failed (%v), synthesizing weekdays.", err)
		}
		if len(dates) == 0 {
			dates = weekdayCalendar(localDay(now), days)
		} else if err := r.feeds.SetCalendar(ctx, startStr, endStr, dates); err == nil {
			log.Println("   📦 Calendar cached.")
		}
	}

	today := localDay(now)
	last := dates[len(dates)-1]
	if today.After(last) && today.Weekday() != time.Saturday && today.Weekday() != time.Sunday {
		if !beforeCutoff(now, r.cfg.Scan.MarketCloseHour, r.cfg.Scan.MarketCloseMin) {
			log.Printf("⚠️ Verifying today (%s) traded...", endStr)
			if r.finmind.MarketOpen(endStr) {
				log.Println("✅ 2330 has a price, appending today.")
				dates = append(dates, today)
			} else {
				log.Println("⛔ No 2330 price, today stays off the calendar.")
			}
		} else {
			log.Println("⏳ Session still open, not forcing today onto the calendar.")
		}
	}

	if len(dates) > days {
		dates = dates[len(dates)-days:]
	}
	return dates, nil
}

// weekdayCalendar is the offline fallback: plain weekdays, holidays
// included. Only used when the calendar API is down.
func weekdayCalendar(end time.Time, days int) []time.Time {
	var dates []time.Time
	for cur := end; len(dates) < days; cur = cur.AddDate(0, 0, -1) {
		if cur.Weekday() != time.Saturday && cur.Weekday() != time.Sunday {
			dates = append(dates, cur)
		}
	}
	for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
		dates[i], dates[j] = dates[j], dates[i]
	}
	return dates
}

// resolveTargetDate fetches the bulletin for the calendar's last day and
// classifies the outcome. An empty bulletin for today before the safe-crawl
// time counts as failed, which makes the caller roll back to T-1: the
// exchanges announce in the evening and an early run must not mistake "not
// yet published" for "nothing flagged".
func (r *Runner) resolveTargetDate(ctx context.Context, calendar []time.Time) (time.Time, []sources.AttentionRow, string) {
	now := r.now()
	target := calendar[len(calendar)-1]
	rows, status := r.fetchBulletin(ctx, target)

	isToday := target.Equal(localDay(now))
	isEarly := beforeCutoff(now, r.cfg.Scan.SafeCrawlHour, r.cfg.Scan.SafeCrawlMin)
	if status == models.FetchEmpty && isToday && isEarly {
		status = models.FetchFailed
	}
	return target, rows, status
}

func (r *Runner) fetchBulletin(ctx context.Context, date time.Time) ([]sources.AttentionRow, string) {
	if rows, ok := r.feeds.GetBulletin(ctx, date); ok {
		return rows, bulletinStatus(rows)
	}
	log.Printf("📡 Fetching official bulletin (%s)...", date.Format("2006-01-02"))
	rows, err := r.bulletin.Fetch(date)
	if err != nil {
		return nil, models.FetchFailed
	}
	// Empty days are never cached: "not announced yet" would mask the
	// late announcement for the whole TTL.
	if len(rows) > 0 {
		if err := r.feeds.SetBulletin(ctx, date, rows); err == nil {
			log.Println("   📦 Bulletin cached.")
		}
	}
	return rows, bulletinStatus(rows)
}

func bulletinStatus(rows []sources.AttentionRow) string {
	if len(rows) == 0 {
		return models.FetchEmpty
	}
	return models.FetchOK
}

// persistBulletin writes the day's rows and its fetch status. A day that was
// previously recorded as empty but now has rows gets swapped wholesale: the
// earlier fetch saw the bulletin before the announcement landed.
func (r *Runner) persistBulletin(ctx context.Context, date time.Time, rows []sources.AttentionRow, status string) error {
	if status == models.FetchFailed {
		log.Println("⚠️ Bulletin unreachable, day left for retry.")
		return r.records.SetFetchStatus(date, models.FetchFailed, 0)
	}

	recs := toRecords(rows)
	prev, err := r.records.FetchStatusFor(date)
	if err != nil {
		return err
	}
	if prev == models.FetchEmpty && len(recs) > 0 {
		r.feeds.InvalidateBulletin(ctx, date)
		if err := r.records.ReplaceDay(date, recs); err != nil {
			return err
		}
		log.Printf("💾 Re-recorded %d rows for %s.", len(recs), date.Format("2006-01-02"))
	} else {
		n, err := r.records.Append(recs)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Printf("💾 Recorded %d new rows.", n)
		}
	}
	if len(rows) > 0 {
		log.Printf("✅ %d attention stocks on the bulletin.", len(rows))
	} else {
		log.Printf("⚠️ Nothing flagged on %s.", date.Format("2006-01-02"))
	}
	return r.records.SetFetchStatus(date, status, len(rows))
}

func toRecords(rows []sources.AttentionRow) []models.AttentionRecord {
	recs := make([]models.AttentionRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, models.AttentionRecord{
			Date:       row.Date,
			Market:     row.Market,
			Code:       row.Code,
			Name:       strings.TrimSpace(row.Name),
			ClauseText: row.ClauseText,
		})
	}
	return recs
}

// loadJailMap returns the disposition map for the scan's lookback range,
// from cache when a recent run already pulled it.
func (r *Runner) loadJailMap(ctx context.Context, target time.Time) engine.JailMap {
	start := target.AddDate(0, 0, -r.cfg.Scan.JailLookbackDays)
	if jm, ok := r.feeds.GetJailMap(ctx, start, target); ok {
		return jm
	}
	jm := sources.FetchJailMap(r.twse, r.tpex, start, target)
	if len(jm) > 0 {
		if err := r.feeds.SetJailMap(ctx, start, target, jm); err == nil {
			log.Println("   📦 Disposition map cached.")
		}
	}
	return jm
}
