package engine

import (
	"fmt"
	"strings"

	"twse-attention-radar/clause"
)

// Disposition thresholds from the attention-stock rules: three consecutive
// clause-1 days, five consecutive valid days, six valid days in ten, or
// twelve valid days in thirty.
const (
	clause1StreakLen = 3
	streak5Threshold = 5
	count10Threshold = 6
	count30Threshold = 12
)

// windowCounts is one evaluation of the threshold inputs over the tail of a
// (flag bit, clause text) sequence.
type windowCounts struct {
	c1Streak int // clause-1 citations among the last 3 days, by raw text
	valid5   int
	valid10  int
	valid30  int
}

// countWindow computes the threshold inputs from the sequence tail. The
// clause-1 streak reads the raw clause text of the last three days without
// the flag-bit filter; the valid counts require both the flag bit and an
// accumulation clause.
func countWindow(bits []int, clauses []string) windowCounts {
	var c windowCounts
	for i := len(clauses) - clause1StreakLen; i < len(clauses); i++ {
		if i >= 0 && clause.Parse(clauses[i]).Contains(1) {
			c.c1Streak++
		}
	}
	for i := 0; i < WindowSize; i++ {
		idx := len(bits) - 1 - i
		if idx < 0 {
			break
		}
		if bits[idx] != 1 {
			continue
		}
		if !clause.IsValidAccumulationDay(clause.Parse(clauses[idx])) {
			continue
		}
		if i < 5 {
			c.valid5++
		}
		if i < 10 {
			c.valid10++
		}
		c.valid30++
	}
	return c
}

// padWindow left-pads both sequences with no-flag days to WindowSize.
func padWindow(bits []int, clauses []string) ([]int, []string) {
	if len(bits) >= WindowSize {
		return bits, clauses
	}
	pad := WindowSize - len(bits)
	paddedBits := make([]int, pad, pad+len(bits))
	paddedClauses := make([]string, pad, pad+len(clauses))
	return append(paddedBits, bits...), append(paddedClauses, clauses...)
}

// CheckTriggerNow decides whether disposition criteria are already met as of
// the newest day of the window. Any one condition suffices; reasons from all
// fired conditions accumulate, joined by " | ".
func CheckTriggerNow(bits []int, clauses []string) (bool, string) {
	bits, clauses = padWindow(bits, clauses)
	c := countWindow(bits, clauses)

	var reasons []string
	if c.c1Streak == clause1StreakLen {
		reasons = append(reasons, "已觸發(連3第一款)")
	}
	if c.valid5 == streak5Threshold {
		reasons = append(reasons, "已觸發(連5)")
	}
	if c.valid10 >= count10Threshold {
		reasons = append(reasons, fmt.Sprintf("已觸發(10日%d次)", c.valid10))
	}
	if c.valid30 >= count30Threshold {
		reasons = append(reasons, fmt.Sprintf("已觸發(30日%d次)", c.valid30))
	}
	return len(reasons) > 0, strings.Join(reasons, " | ")
}
