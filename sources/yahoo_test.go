package sources

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testYahooClient(ts *httptest.Server) *YahooClient {
	c := NewYahooClient()
	c.baseURL = ts.URL
	c.httpClient = ts.Client()
	c.delay = 0
	return c
}

func chartBody(closes ...float64) string {
	var ts, cs []string
	for i, c := range closes {
		ts = append(ts, fmt.Sprint(1718841600+i*86400))
		if c > 0 {
			cs = append(cs, fmt.Sprint(c))
		} else {
			cs = append(cs, "null")
		}
	}
	return fmt.Sprintf(`{"chart":{"result":[{
		"meta":{"regularMarketPrice":%v},
		"timestamp":[%s],
		"indicators":{"quote":[{
			"open":[%s],"high":[%s],"low":[%s],
			"close":[%s],"volume":[%s]
		}]}
	}]}}`,
		closes[len(closes)-1],
		strings.Join(ts, ","), strings.Join(cs, ","), strings.Join(cs, ","),
		strings.Join(cs, ","), strings.Join(cs, ","), strings.Join(cs, ","))
}

func TestYahooHistorySkipsNullRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/2330.TW" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(chartBody(100, 0, 102, 103)))
	}))
	defer srv.Close()

	bars, err := testYahooClient(srv).History("2330", "上市")
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 3 {
		t.Fatalf("expected null row skipped, got %d bars", len(bars))
	}
	if bars[2].Close != 103 {
		t.Fatalf("last close = %v", bars[2].Close)
	}
}

func TestYahooHistoryFallsBackToOtherBoard(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.HasSuffix(r.URL.Path, ".TWO") {
			w.Write([]byte(chartBody(55, 56)))
			return
		}
		w.Write([]byte(`{"chart":{"result":[],"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()

	bars, err := testYahooClient(srv).History("8069", "上市")
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars from the fallback suffix, got %d", len(bars))
	}
	if len(paths) != 2 || !strings.HasSuffix(paths[0], "8069.TW") || !strings.HasSuffix(paths[1], "8069.TWO") {
		t.Fatalf("request sequence = %v", paths)
	}
}

func TestYahooFundamentals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbols"); got != "5483.TWO" {
			t.Errorf("symbols = %q", got)
		}
		w.Write([]byte(`{"quoteResponse":{"result":[{
			"trailingPE":18.456,"priceToBook":2.314,"sharesOutstanding":585000000
		}]}}`))
	}))
	defer srv.Close()

	fund, err := testYahooClient(srv).Fundamentals("5483", "上櫃")
	if err != nil {
		t.Fatal(err)
	}
	if fund.PE != 18.46 || fund.PB != 2.31 {
		t.Fatalf("PE/PB = %v / %v", fund.PE, fund.PB)
	}
	if fund.Shares != 585000000 || fund.MarketType != "上櫃" {
		t.Fatalf("got %+v", fund)
	}
}

func TestTickerSuffix(t *testing.T) {
	if got := TickerSuffix("上市"); got != ".TW" {
		t.Fatalf("listed suffix = %q", got)
	}
	if got := TickerSuffix("上櫃"); got != ".TWO" {
		t.Fatalf("OTC suffix = %q", got)
	}
	if got := TickerSuffix(""); got != ".TW" {
		t.Fatalf("default suffix = %q", got)
	}
}
