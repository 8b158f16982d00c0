package sources

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"twse-attention-radar/helpers"
	"twse-attention-radar/risk"
)

// YahooClient pulls daily history and fundamentals from the Yahoo Finance
// chart and quote APIs.
type YahooClient struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
}

func NewYahooClient() *YahooClient {
	return &YahooClient{
		baseURL:    "https://query1.finance.yahoo.com",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		delay:      1500 * time.Millisecond,
	}
}

// TickerSuffix maps a market type to the Yahoo symbol suffix.
func TickerSuffix(marketType string) string {
	if marketType == "上櫃" {
		return ".TWO"
	}
	return ".TW"
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *YahooClient) getJSON(path string, params url.Values, out any) error {
	time.Sleep(c.delay)
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (c *YahooClient) history(symbol string) ([]risk.Bar, error) {
	params := url.Values{}
	params.Set("range", "1y")
	params.Set("interval", "1d")

	var res chartResponse
	if err := c.getJSON("/v8/finance/chart/"+symbol, params, &res); err != nil {
		return nil, err
	}
	if res.Chart.Error != nil {
		return nil, fmt.Errorf("chart API: %s", res.Chart.Error.Description)
	}
	if len(res.Chart.Result) == 0 {
		return nil, nil
	}

	r := res.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, nil
	}
	q := r.Indicators.Quote[0]

	deref := func(vals []*float64, i int) float64 {
		if i < len(vals) && vals[i] != nil {
			return *vals[i]
		}
		return 0
	}

	var bars []risk.Bar
	for i, ts := range r.Timestamp {
		close := deref(q.Close, i)
		if close <= 0 {
			continue
		}
		bars = append(bars, risk.Bar{
			Date:   time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:   deref(q.Open, i),
			High:   deref(q.High, i),
			Low:    deref(q.Low, i),
			Close:  close,
			Volume: deref(q.Volume, i),
		})
	}
	return bars, nil
}

// History returns up to a year of daily bars for a stock code. The market
// type picks the primary Yahoo suffix; a stock that moved between boards
// answers on the other suffix, so an empty result triggers one retry.
func (c *YahooClient) History(code, marketType string) ([]risk.Bar, error) {
	primary := TickerSuffix(marketType)
	bars, err := c.history(code + primary)
	if err == nil && len(bars) > 0 {
		return bars, nil
	}

	fallback := ".TWO"
	if primary == ".TWO" {
		fallback = ".TW"
	}
	bars2, err2 := c.history(code + fallback)
	if err2 == nil && len(bars2) > 0 {
		return bars2, nil
	}
	if err != nil {
		return nil, fmt.Errorf("History %s: %w", code, err)
	}
	return nil, err2
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			TrailingPE        float64 `json:"trailingPE"`
			ForwardPE         float64 `json:"forwardPE"`
			PriceToBook       float64 `json:"priceToBook"`
			SharesOutstanding int64   `json:"sharesOutstanding"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// Fundamentals fills the valuation figures for a symbol. Shares outstanding
// from the quote API is only used when the caller has no locally curated
// figure; missing fields come back zero.
func (c *YahooClient) Fundamentals(code, marketType string) (risk.Fundamentals, error) {
	suffix := TickerSuffix(marketType)
	params := url.Values{}
	params.Set("symbols", code+suffix)

	var res quoteResponse
	if err := c.getJSON("/v7/finance/quote", params, &res); err != nil {
		return risk.Fundamentals{MarketType: marketType}, fmt.Errorf("Fundamentals %s: %w", code, err)
	}
	if len(res.QuoteResponse.Result) == 0 {
		return risk.Fundamentals{MarketType: marketType}, nil
	}

	r := res.QuoteResponse.Result[0]
	pe := r.TrailingPE
	if pe == 0 {
		pe = r.ForwardPE
	}
	return risk.Fundamentals{
		Shares:     r.SharesOutstanding,
		PE:         helpers.Round2(pe),
		PB:         helpers.Round2(r.PriceToBook),
		MarketType: marketType,
	}, nil
}
