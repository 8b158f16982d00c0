package sources

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"twse-attention-radar/helpers"
	"twse-attention-radar/risk"
)

const (
	finmindCacheCap    = 2000
	finmindMaxAttempts = 4
)

// FinMindClient is a caching client for the FinMind v4 data API. Responses
// are cached by query so repeated lookups inside one scan cost nothing; the
// cache is cleared wholesale once it reaches capacity. When several API
// tokens are configured the client rotates to the next one whenever a
// request is rejected, which in practice means a rate-limited token.
type FinMindClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     []string
	delay      time.Duration
	rotateWait time.Duration

	mu     sync.Mutex
	cursor int
	cache  map[string][]byte
}

func NewFinMindClient(tokens []string) *FinMindClient {
	return &FinMindClient{
		baseURL:    "https://api.finmindtrade.com/api/v4/data",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tokens:     tokens,
		delay:      time.Second,
		rotateWait: 2 * time.Second,
		cache:      make(map[string][]byte),
	}
}

func (c *FinMindClient) fetch(dataset, dataID, startDate, endDate string) ([]byte, error) {
	key := dataset + "|" + dataID + "|" + startDate + "|" + endDate

	c.mu.Lock()
	if body, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return body, nil
	}
	c.mu.Unlock()

	params := url.Values{}
	params.Set("dataset", dataset)
	if dataID != "" {
		params.Set("data_id", dataID)
	}
	if startDate != "" {
		params.Set("start_date", startDate)
	}
	if endDate != "" {
		params.Set("end_date", endDate)
	}

	var lastErr error
	for attempt := 0; attempt < finmindMaxAttempts; attempt++ {
		time.Sleep(c.delay)

		c.mu.Lock()
		var token string
		tokenIdx := 0
		if len(c.tokens) > 0 {
			tokenIdx = c.cursor % len(c.tokens)
			token = c.tokens[tokenIdx]
		}
		c.mu.Unlock()

		req, err := http.NewRequest(http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Connection", "close")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			c.mu.Lock()
			if len(c.cache) >= finmindCacheCap {
				c.cache = make(map[string][]byte)
			}
			c.cache[key] = body
			c.mu.Unlock()
			return body, nil
		}

		lastErr = fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
		if token != "" {
			log.Printf("⚠️ FinMind token %d rejected (status %d), rotating...", tokenIdx, resp.StatusCode)
			time.Sleep(c.rotateWait)
			c.mu.Lock()
			c.cursor++
			c.mu.Unlock()
		}
	}
	return nil, fmt.Errorf("fetch %s: %w", dataset, lastErr)
}

// PricePoint is one row of the TaiwanStockPrice dataset. Index series reuse
// the same shape with the index value in Close.
type PricePoint struct {
	Date          string  `json:"date"`
	StockID       string  `json:"stock_id"`
	TradingVolume float64 `json:"Trading_Volume"`
	TradingMoney  float64 `json:"Trading_money"`
	Open          float64 `json:"open"`
	High          float64 `json:"max"`
	Low           float64 `json:"min"`
	Close         float64 `json:"close"`
}

// PriceSeries returns daily prices for a stock or index id over a date range.
func (c *FinMindClient) PriceSeries(dataID, startDate, endDate string) ([]PricePoint, error) {
	body, err := c.fetch("TaiwanStockPrice", dataID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("PriceSeries: %w", err)
	}
	var res struct {
		Data []PricePoint `json:"data"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("PriceSeries: %w", err)
	}
	return res.Data, nil
}

// TradingCalendar returns the official trading dates between the given dates,
// ascending.
func (c *FinMindClient) TradingCalendar(startDate, endDate string) ([]time.Time, error) {
	body, err := c.fetch("TaiwanStockTradingDate", "", startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("TradingCalendar: %w", err)
	}
	var res struct {
		Data []struct {
			Date string `json:"date"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("TradingCalendar: %w", err)
	}
	var dates []time.Time
	for _, d := range res.Data {
		t, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			continue
		}
		dates = append(dates, t)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// MarketOpen probes whether the market traded on the given date by checking
// for a 2330 price row. TSMC trades every session, so a missing row means a
// holiday or a not-yet-published date.
func (c *FinMindClient) MarketOpen(date string) bool {
	points, err := c.PriceSeries("2330", date, date)
	return err == nil && len(points) > 0
}

type dayTradePoint struct {
	Date   string  `json:"date"`
	Volume float64 `json:"Volume"`
}

// DayTradeStats computes the day-trading share of volume on the target date
// and over the trailing 6 sessions. The day-trading dataset lags the price
// dataset by a session, so a stock with prices but no day-trading rows for
// the latest dates reports RatioPending rather than a misleading zero.
func (c *FinMindClient) DayTradeStats(stockID, targetDate string) risk.DayTradeRatio {
	target, err := time.Parse("2006-01-02", targetDate)
	if err != nil {
		return risk.DayTradeRatio{State: risk.RatioUnknown}
	}
	startDate := target.AddDate(0, 0, -15).Format("2006-01-02")

	prices, err := c.PriceSeries(stockID, startDate, targetDate)
	if err != nil || len(prices) == 0 {
		return risk.DayTradeRatio{State: risk.RatioUnknown}
	}

	body, err := c.fetch("TaiwanStockDayTrading", stockID, startDate, targetDate)
	if err != nil {
		return risk.DayTradeRatio{State: risk.RatioUnknown}
	}
	var res struct {
		Data []dayTradePoint `json:"data"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return risk.DayTradeRatio{State: risk.RatioUnknown}
	}
	if len(res.Data) == 0 {
		return risk.DayTradeRatio{State: risk.RatioPending}
	}

	dtByDate := make(map[string]float64, len(res.Data))
	for _, d := range res.Data {
		dtByDate[d.Date] = d.Volume
	}

	type merged struct {
		date     string
		total    float64
		dayTrade float64
	}
	var rows []merged
	for _, p := range prices {
		if dt, ok := dtByDate[p.Date]; ok {
			rows = append(rows, merged{date: p.Date, total: p.TradingVolume, dayTrade: dt})
		}
	}
	if len(rows) < 6 {
		return risk.DayTradeRatio{State: risk.RatioPending}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].date < rows[j].date })
	r6 := rows[len(rows)-6:]

	last := r6[len(r6)-1]
	var today float64
	if last.total > 0 {
		today = last.dayTrade / last.total * 100.0
	}
	var sumTotal, sumDT float64
	for _, r := range r6 {
		sumTotal += r.total
		sumDT += r.dayTrade
	}
	var avg6 float64
	if sumTotal > 0 {
		avg6 = sumDT / sumTotal * 100.0
	}
	return risk.DayTradeRatio{
		State:    risk.RatioKnown,
		TodayPct: helpers.Round2(today),
		Avg6Pct:  helpers.Round2(avg6),
	}
}
