package engine

import (
	"strings"
	"time"

	"twse-attention-radar/clause"
)

// DayFlag is one trading day inside a stock's evaluation window.
type DayFlag struct {
	Date       time.Time
	Flagged    bool   // the stock appeared in that day's attention bulletin
	ClauseText string // merged clause text, kept even on excluded days for audit
}

// ClauseLookup resolves the merged clause text for (stock, date); empty
// string means the stock was not flagged that day.
type ClauseLookup func(code string, d time.Time) string

// BuildWindow pairs each window date with its flag bit and clause text.
// Excluded dates keep their clause text but never count as flagged, so they
// survive in the audit trail without feeding the threshold arithmetic.
func BuildWindow(code string, dates []time.Time, lookup ClauseLookup, em ExclusionMap) []DayFlag {
	window := make([]DayFlag, 0, len(dates))
	for _, d := range dates {
		text := lookup(code, d)
		switch {
		case em.Excluded(code, d):
			window = append(window, DayFlag{Date: d, Flagged: false, ClauseText: text})
		case text != "":
			window = append(window, DayFlag{Date: d, Flagged: true, ClauseText: text})
		default:
			window = append(window, DayFlag{Date: d})
		}
	}
	return window
}

// Bits extracts the raw flag bits of a window.
func Bits(window []DayFlag) []int {
	bits := make([]int, len(window))
	for i, f := range window {
		if f.Flagged {
			bits[i] = 1
		}
	}
	return bits
}

// ClauseTexts extracts the clause-text sequence of a window.
func ClauseTexts(window []DayFlag) []string {
	texts := make([]string, len(window))
	for i, f := range window {
		texts[i] = f.ClauseText
	}
	return texts
}

// ValidBits derives the valid-accumulation bit sequence used by all
// threshold arithmetic: 1 only where the day is flagged and its clause set
// contains an accumulation clause.
func ValidBits(window []DayFlag) []int {
	bits := make([]int, len(window))
	for i, f := range window {
		if f.Flagged && clause.IsValidAccumulationDay(clause.Parse(f.ClauseText)) {
			bits[i] = 1
		}
	}
	return bits
}

// BitString serializes a bit sequence to the fixed-width audit string
// persisted in the summary table, left-padded with zeros to WindowSize.
func BitString(bits []int) string {
	var b strings.Builder
	for i := len(bits); i < WindowSize; i++ {
		b.WriteByte('0')
	}
	for _, bit := range bits {
		if bit == 1 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// ParseBitString is the inverse of BitString.
func ParseBitString(s string) []int {
	bits := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '1' {
			bits[i] = 1
		}
	}
	return bits
}

// Streak counts the consecutive valid days ending at the window's newest day.
func Streak(validBits []int) int {
	streak := 0
	for i := len(validBits) - 1; i >= 0; i-- {
		if validBits[i] != 1 {
			break
		}
		streak++
	}
	return streak
}

// CountRecent sums the valid bits over the most recent n positions.
func CountRecent(validBits []int, n int) int {
	count := 0
	for i := len(validBits) - 1; i >= 0 && len(validBits)-1-i < n; i-- {
		count += validBits[i]
	}
	return count
}

// LastTriggerDate returns the newest window date whose valid bit is set. The
// boolean result is false when the window holds no valid day.
func LastTriggerDate(dates []time.Time, validBits []int) (time.Time, bool) {
	for i := len(validBits) - 1; i >= 0; i-- {
		if validBits[i] == 1 && i < len(dates) {
			return dates[i], true
		}
	}
	return time.Time{}, false
}
