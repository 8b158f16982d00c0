package sources

import (
	"fmt"
	"log"
	"strings"
	"time"

	"twse-attention-radar/clause"
	"twse-attention-radar/engine"
)

const userAgent = "Mozilla/5.0"

// AttentionRow is one stock flagged on a daily attention bulletin.
type AttentionRow struct {
	Date       time.Time
	Market     string // "TWSE" or "TPEx"
	Code       string
	Name       string
	ClauseText string
}

// DispositionEntry is one disposition (jail) period announced by an exchange.
type DispositionEntry struct {
	Code  string
	Start time.Time
	End   time.Time
}

func isStockCode(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// attentionRowFromCells turns one raw bulletin table row into an AttentionRow.
// The clause text is rebuilt from the parsed clause IDs so that the stored
// form is canonical; rows whose text cites no clause keep the raw text.
func attentionRowFromCells(date time.Time, market string, cells []any) (AttentionRow, bool) {
	if len(cells) < 3 {
		return AttentionRow{}, false
	}
	code := strings.TrimSpace(fmt.Sprint(cells[1]))
	name := strings.TrimSpace(fmt.Sprint(cells[2]))
	if !isStockCode(code) {
		return AttentionRow{}, false
	}
	parts := make([]string, 0, len(cells))
	for _, c := range cells {
		parts = append(parts, fmt.Sprint(c))
	}
	raw := strings.Join(parts, " ")
	text := clause.Parse(raw).Render()
	if text == "" {
		text = raw
	}
	return AttentionRow{Date: date, Market: market, Code: code, Name: name, ClauseText: text}, true
}

// Bulletin aggregates the TWSE and TPEx daily attention announcements.
type Bulletin struct {
	TWSE *TWSEClient
	TPEx *TPExClient
}

// ErrBulletinUnavailable marks a day where both exchange feeds failed and no
// rows were collected. An empty result with a nil error is a quiet day.
var ErrBulletinUnavailable = fmt.Errorf("attention bulletin unavailable from both exchanges")

// Fetch collects the attention rows of both exchanges for one date. A single
// feed failing is tolerated as long as the other one answers.
func (b *Bulletin) Fetch(date time.Time) ([]AttentionRow, error) {
	var rows []AttentionRow
	errCount := 0

	twse, err := b.TWSE.FetchAttention(date)
	if err != nil {
		log.Printf("⚠️ TWSE attention fetch failed: %v", err)
		errCount++
	}
	rows = append(rows, twse...)

	tpex, err := b.TPEx.FetchAttention(date)
	if err != nil {
		log.Printf("⚠️ TPEx attention fetch failed: %v", err)
		errCount++
	}
	rows = append(rows, tpex...)

	if errCount >= 2 && len(rows) == 0 {
		return nil, ErrBulletinUnavailable
	}
	return rows, nil
}

// FetchJailMap merges the disposition lists of both exchanges into one map.
// Either feed failing only drops its half; the map is still usable.
func FetchJailMap(twse *TWSEClient, tpex *TPExClient, start, end time.Time) engine.JailMap {
	log.Println("🔒 Downloading disposition lists...")
	jm := engine.JailMap{}

	entries, err := twse.FetchDisposition(start, end)
	if err != nil {
		log.Printf("⚠️ TWSE disposition fetch failed: %v", err)
	}
	for _, e := range entries {
		jm.Add(e.Code, engine.Interval{Start: e.Start, End: e.End})
	}

	entries, err = tpex.FetchDisposal(start, end)
	if err != nil {
		log.Printf("⚠️ TPEx disposal fetch failed: %v", err)
	}
	for _, e := range entries {
		jm.Add(e.Code, engine.Interval{Start: e.Start, End: e.End})
	}

	jm.Sort()
	return jm
}
