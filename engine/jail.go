// Package engine implements the disposition-trigger rule engine: the jail
// (disposition) calendar arithmetic, the 30-trading-day flag window, the
// trigger predicate over that window, and the day-by-day forward simulation
// that derives how many trading days remain before a stock enters
// disposition.
//
// Everything in this package is pure computation over injected data. All
// dates are UTC-midnight day values; callers normalize with Day().
package engine

import (
	"sort"
	"time"
)

// WindowSize is the rolling evaluation window in trading days.
const WindowSize = 30

// Day normalizes a timestamp to the UTC-midnight day value used as the
// canonical date representation throughout the engine.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Interval is one disposition period, inclusive of both bounds.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d falls inside the interval.
func (iv Interval) Contains(d time.Time) bool {
	return !d.Before(iv.Start) && !d.After(iv.End)
}

// JailMap holds each stock's disposition intervals, ascending by start date.
type JailMap map[string][]Interval

// Add appends an interval for code. Call Sort once all sources are merged.
func (jm JailMap) Add(code string, iv Interval) {
	jm[code] = append(jm[code], iv)
}

// Sort orders every stock's intervals ascending by start date.
func (jm JailMap) Sort() {
	for code := range jm {
		ivs := jm[code]
		sort.Slice(ivs, func(i, j int) bool { return ivs[i].Start.Before(ivs[j].Start) })
	}
}

// InJail reports whether d falls inside any of code's disposition intervals.
func (jm JailMap) InJail(code string, d time.Time) bool {
	for _, iv := range jm[code] {
		if iv.Contains(d) {
			return true
		}
	}
	return false
}

// LastJailEnd returns the end date of code's most recent interval, or the
// zero time when the stock has none.
func (jm JailMap) LastJailEnd(code string) time.Time {
	ivs := jm[code]
	if len(ivs) == 0 {
		return time.Time{}
	}
	return ivs[len(ivs)-1].End
}

// ExclusionMap is the per-stock set of dates scrubbed from the flag window:
// every date inside a disposition interval plus the one trading day
// immediately preceding each interval start. Without the preceding day, the
// flag that pushed the stock into disposition would re-enter the 30-day
// window with stale meaning once the stock is released.
type ExclusionMap map[string]map[time.Time]bool

// Excluded reports whether d is scrubbed for code.
func (em ExclusionMap) Excluded(code string, d time.Time) bool {
	return em[code][d]
}

// PrevTradingDay returns the trading day immediately before d in the
// ascending calendar. When d itself is not a calendar entry it falls back to
// the latest calendar date strictly before d. The boolean result is false
// when no earlier trading day exists.
func PrevTradingDay(d time.Time, calendar []time.Time) (time.Time, bool) {
	idx := sort.Search(len(calendar), func(i int) bool { return !calendar[i].Before(d) })
	if idx < len(calendar) && calendar[idx].Equal(d) {
		if idx == 0 {
			return time.Time{}, false
		}
		return calendar[idx-1], true
	}
	// d absent from the calendar: idx already points past the last date < d.
	if idx == 0 {
		return time.Time{}, false
	}
	return calendar[idx-1], true
}

// BuildExclusionMap derives the exclusion set for every jailed stock from
// the full ascending trading calendar.
func BuildExclusionMap(calendar []time.Time, jm JailMap) ExclusionMap {
	em := ExclusionMap{}
	for code, ivs := range jm {
		days := map[time.Time]bool{}
		for _, iv := range ivs {
			if prev, ok := PrevTradingDay(iv.Start, calendar); ok {
				days[prev] = true
			}
			for _, d := range calendar {
				if iv.Contains(d) {
					days[d] = true
				}
			}
		}
		em[code] = days
	}
	return em
}

// LastNonJailTradingDays selects, ascending, the most recent n trading days
// usable for code's flag window. The scan walks the calendar backwards and
// stops outright at the end of the stock's most recent disposition interval:
// clause semantics before and after a disposition are not continuous, so a
// stock never sees through its latest jail period into older history.
// Excluded and in-jail dates are skipped. Fewer than n days are returned
// when history is short.
func LastNonJailTradingDays(code string, calendar []time.Time, jm JailMap, em ExclusionMap, n int) []time.Time {
	lastEnd := jm.LastJailEnd(code)
	picked := make([]time.Time, 0, n)
	for i := len(calendar) - 1; i >= 0; i-- {
		d := calendar[i]
		if !lastEnd.IsZero() && !d.After(lastEnd) {
			break
		}
		if em.Excluded(code, d) {
			continue
		}
		if jm.InJail(code, d) {
			continue
		}
		picked = append(picked, d)
		if len(picked) >= n {
			break
		}
	}
	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked
}
