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

// TWSEClient talks to the listed-market announcement endpoints.
type TWSEClient struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
}

func NewTWSEClient() *TWSEClient {
	return &TWSEClient{
		baseURL:    "https://www.twse.com.tw",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		delay:      time.Second,
	}
}

type twseTableResponse struct {
	Tables []struct {
		Fields []string `json:"fields"`
		Data   [][]any  `json:"data"`
	} `json:"tables"`
	Fields []string `json:"fields"`
	Data   [][]any  `json:"data"`
}

func (c *TWSEClient) getJSON(path string, params url.Values, out any) error {
	time.Sleep(c.delay)
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("getJSON: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("getJSON: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("getJSON: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("getJSON: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("getJSON: %w", err)
	}
	return nil
}

// FetchAttention returns the listed-market attention stocks announced for one
// date. An empty slice with a nil error means no stock was flagged that day.
func (c *TWSEClient) FetchAttention(date time.Time) ([]AttentionRow, error) {
	nodash := date.Format("20060102")
	params := url.Values{}
	params.Set("startDate", nodash)
	params.Set("endDate", nodash)
	params.Set("response", "json")

	var res twseTableResponse
	if err := c.getJSON("/rwd/zh/announcement/notice", params, &res); err != nil {
		return nil, fmt.Errorf("FetchAttention: %w", err)
	}

	var rows []AttentionRow
	for _, cells := range res.Data {
		if row, ok := attentionRowFromCells(date, "TWSE", cells); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// columnIndex finds the column whose header contains the keyword. The punish
// endpoint has reshuffled its table layout before, so the known position is
// only a fallback.
func columnIndex(fields []string, keyword string, fallback int) int {
	for i, f := range fields {
		if strings.Contains(f, keyword) {
			return i
		}
	}
	return fallback
}

// FetchDisposition returns the listed-market disposition periods announced
// between start and end.
func (c *TWSEClient) FetchDisposition(start, end time.Time) ([]DispositionEntry, error) {
	params := url.Values{}
	params.Set("startDate", start.Format("20060102"))
	params.Set("endDate", end.Format("20060102"))
	params.Set("response", "json")

	var res twseTableResponse
	if err := c.getJSON("/rwd/zh/announcement/punish", params, &res); err != nil {
		return nil, fmt.Errorf("FetchDisposition: %w", err)
	}

	fields, data := res.Fields, res.Data
	if len(res.Tables) > 0 {
		fields, data = res.Tables[0].Fields, res.Tables[0].Data
	}
	codeIdx := columnIndex(fields, "證券代號", 2)
	periodIdx := columnIndex(fields, "處置期間", 6)

	var entries []DispositionEntry
	for _, cells := range data {
		if len(cells) <= codeIdx || len(cells) <= periodIdx {
			continue
		}
		code := strings.TrimSpace(fmt.Sprint(cells[codeIdx]))
		if code == "" {
			continue
		}
		sd, ed, ok := rocdate.ParsePeriod(strings.TrimSpace(fmt.Sprint(cells[periodIdx])))
		if !ok {
			continue
		}
		entries = append(entries, DispositionEntry{Code: code, Start: sd, End: ed})
	}
	return entries, nil
}
