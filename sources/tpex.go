package sources

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"twse-attention-radar/rocdate"
)

// TPExClient talks to the OTC-market bulletin and OpenAPI endpoints.
type TPExClient struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
}

func NewTPExClient() *TPExClient {
	return &TPExClient{
		baseURL:    "https://www.tpex.org.tw",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		delay:      time.Second,
	}
}

type tpexBulletinResponse struct {
	Tables []struct {
		Data [][]any `json:"data"`
	} `json:"tables"`
	Data [][]any `json:"data"`
}

// FetchAttention returns the OTC attention stocks announced for one date.
// The bulletin endpoint sometimes answers with rows from neighbouring dates,
// so rows are matched against the requested date before parsing.
func (c *TPExClient) FetchAttention(date time.Time) ([]AttentionRow, error) {
	time.Sleep(c.delay)
	rocDate := rocdate.Format(date)
	form := url.Values{}
	form.Set("date", rocDate)
	form.Set("response", "json")

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/www/zh-tw/bulletin/attention",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("FetchAttention: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", c.baseURL+"/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("FetchAttention: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FetchAttention: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("FetchAttention: %w", err)
	}

	var res tpexBulletinResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("FetchAttention: %w", err)
	}

	data := res.Data
	if len(res.Tables) > 0 {
		data = nil
		for _, t := range res.Tables {
			data = append(data, t.Data...)
		}
	}

	isoDate := date.Format("2006-01-02")
	var rows []AttentionRow
	for _, cells := range data {
		if len(cells) <= 5 {
			continue
		}
		rowDate := strings.TrimSpace(fmt.Sprint(cells[5]))
		if rowDate != rocDate && rowDate != isoDate {
			continue
		}
		if row, ok := attentionRowFromCells(date, "TPEx", cells); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

type tpexDisposalItem struct {
	SecuritiesCompanyCode string `json:"SecuritiesCompanyCode"`
	DispositionPeriod     string `json:"DispositionPeriod"`
}

// FetchDisposal returns the OTC disposition periods overlapping the given
// range. The OpenAPI endpoint has no date filter, so the full list is pulled
// and trimmed locally.
func (c *TPExClient) FetchDisposal(start, end time.Time) ([]DispositionEntry, error) {
	time.Sleep(c.delay)
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/openapi/v1/tpex_disposal_information", nil)
	if err != nil {
		return nil, fmt.Errorf("FetchDisposal: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("FetchDisposal: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FetchDisposal: unexpected status %d", resp.StatusCode)
	}

	var items []tpexDisposalItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("FetchDisposal: %w", err)
	}

	var entries []DispositionEntry
	for _, item := range items {
		code := strings.TrimSpace(item.SecuritiesCompanyCode)
		if !isStockCode(code) {
			continue
		}
		sd, ed, ok := rocdate.ParsePeriod(item.DispositionPeriod)
		if !ok {
			continue
		}
		if ed.Before(start) || sd.After(end) {
			continue
		}
		entries = append(entries, DispositionEntry{Code: code, Start: sd, End: ed})
	}
	return entries, nil
}
