package sources

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testTWSEClient(ts *httptest.Server) *TWSEClient {
	c := NewTWSEClient()
	c.baseURL = ts.URL
	c.httpClient = ts.Client()
	c.delay = 0
	return c
}

func testTPExClient(ts *httptest.Server) *TPExClient {
	c := NewTPExClient()
	c.baseURL = ts.URL
	c.httpClient = ts.Client()
	c.delay = 0
	return c
}

func TestAttentionRowFromCells(t *testing.T) {
	date := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)

	row, ok := attentionRowFromCells(date, "TWSE", []any{"1", "2330", "台積電", "第一款", "注意"})
	if !ok {
		t.Fatal("expected a valid row")
	}
	if row.Code != "2330" || row.Name != "台積電" {
		t.Fatalf("got code %q name %q", row.Code, row.Name)
	}
	if row.ClauseText != "第1款" {
		t.Fatalf("expected canonical clause text, got %q", row.ClauseText)
	}

	// Non 4-digit codes (warrants, ETNs) are skipped.
	if _, ok := attentionRowFromCells(date, "TWSE", []any{"1", "023301", "權證", "第一款"}); ok {
		t.Fatal("expected warrant row to be rejected")
	}

	// A row citing no clause keeps its raw text.
	row, ok = attentionRowFromCells(date, "TPEx", []any{"1", "5483", "中美晶", "其他公告事項"})
	if !ok {
		t.Fatal("expected a valid row")
	}
	if row.ClauseText != "1 5483 中美晶 其他公告事項" {
		t.Fatalf("expected raw fallback text, got %q", row.ClauseText)
	}
}

func TestTWSEFetchAttention(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rwd/zh/announcement/notice" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("startDate"); got != "20240620" {
			t.Errorf("startDate = %q", got)
		}
		w.Write([]byte(`{"data":[
			["1","2330","台積電","第一款及第四款"],
			["2","00632R","反一ETF","第一款"]
		]}`))
	}))
	defer ts.Close()

	rows, err := testTWSEClient(ts).FetchAttention(time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].ClauseText != "第1款、第4款" {
		t.Fatalf("clause text = %q", rows[0].ClauseText)
	}
	if rows[0].Market != "TWSE" {
		t.Fatalf("market = %q", rows[0].Market)
	}
}

func TestTWSEFetchDispositionHeaderRelocation(t *testing.T) {
	// Columns deliberately not at the historical positions 2 and 6.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tables":[{
			"fields":["編號","證券代號","證券名稱","處置期間"],
			"data":[["1","2330","台積電","113/06/10～113/06/21"]]
		}]}`))
	}))
	defer ts.Close()

	entries, err := testTWSEClient(ts).FetchDisposition(
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Code != "2330" {
		t.Fatalf("code = %q", e.Code)
	}
	if !e.Start.Equal(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)) ||
		!e.End.Equal(time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("period = %v ~ %v", e.Start, e.End)
	}
}

func TestTPExFetchAttentionDateFilter(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("date"); got != "113/06/20" {
			t.Errorf("date = %q", got)
		}
		w.Write([]byte(`{"tables":[{"data":[
			["1","5483","中美晶","第一款","注意","113/06/20"],
			["2","6180","橘子","第一款","注意","113/06/19"]
		]}]}`))
	}))
	defer ts.Close()

	rows, err := testTPExClient(ts).FetchAttention(time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected the stale row to be dropped, got %d rows", len(rows))
	}
	if rows[0].Code != "5483" || rows[0].Market != "TPEx" {
		t.Fatalf("got %+v", rows[0])
	}
}

func TestTPExFetchDisposalRangeAndCodeFilter(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"SecuritiesCompanyCode":"5483","DispositionPeriod":"113/06/10～113/06/21"},
			{"SecuritiesCompanyCode":"5483","DispositionPeriod":"113/01/02～113/01/15"},
			{"SecuritiesCompanyCode":"730123","DispositionPeriod":"113/06/10～113/06/21"}
		]`))
	}))
	defer ts.Close()

	entries, err := testTPExClient(ts).FetchDisposal(
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after filtering, got %d", len(entries))
	}
	if entries[0].Code != "5483" {
		t.Fatalf("code = %q", entries[0].Code)
	}
}

func TestBulletinToleratesSingleFeedFailure(t *testing.T) {
	twseSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer twseSrv.Close()
	tpexSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[["1","5483","中美晶","第一款","注意","113/06/20"]]}`))
	}))
	defer tpexSrv.Close()

	b := &Bulletin{TWSE: testTWSEClient(twseSrv), TPEx: testTPExClient(tpexSrv)}
	rows, err := b.Fetch(time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected the surviving feed's row, got %d", len(rows))
	}
}

func TestBulletinBothFeedsDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer down.Close()

	b := &Bulletin{TWSE: testTWSEClient(down), TPEx: testTPExClient(down)}
	if _, err := b.Fetch(time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)); err != ErrBulletinUnavailable {
		t.Fatalf("expected ErrBulletinUnavailable, got %v", err)
	}
}

func TestFetchJailMapMergesBothExchanges(t *testing.T) {
	twseSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fields":["序","公布日","證券代號","名稱","次數","條款","處置期間"],
			"data":[["1","113/06/07","2330","台積電","1","第一款","113/06/10～113/06/21"]]}`))
	}))
	defer twseSrv.Close()
	tpexSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"SecuritiesCompanyCode":"5483","DispositionPeriod":"113/06/10～113/06/21"}]`))
	}))
	defer tpexSrv.Close()

	jm := FetchJailMap(testTWSEClient(twseSrv), testTPExClient(tpexSrv),
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))

	d := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	if !jm.InJail("2330", d) || !jm.InJail("5483", d) {
		t.Fatalf("expected both codes jailed on %v", d)
	}
}
