package engine

import (
	"fmt"
	"strings"
	"time"

	"twse-attention-radar/clause"
)

const (
	// NoForecastDays is the sentinel day count for "no disposition within
	// the simulation horizon".
	NoForecastDays = 99

	// SafeFilterReason marks a stock skipped by the dormancy short-circuit.
	SafeFilterReason = "X"

	// InJailReason is returned for stocks currently inside a disposition
	// interval.
	InJailReason = "處置中"

	// simulationHorizon bounds the synthetic forward walk.
	simulationHorizon = 10

	// syntheticClause is the worst-case flag appended on every simulated
	// day; it must parse to clause ID 1.
	syntheticClause = "第1款"
)

// Simulate runs the worst-case forward simulation for one stock: assuming a
// fresh clause-1 flag on every future trading day, how soon would the
// disposition thresholds fire? The result is the earliest possible
// days-to-disposition, not an expectation.
//
// Order of checks:
//  1. A stock currently inside a disposition interval reports 0 days,
//     "處置中", unconditionally.
//  2. If the thresholds are already met today, 0 days with the reason
//     rephrased as "已達標，次一營業日處置".
//  3. With safeFilter enabled, a stock showing no valid accumulation day in
//     its most recent 10 days short-circuits to the no-forecast sentinel
//     instead of simulating. Call sites choose the flag explicitly; the scan
//     pipeline runs with it off so dormant stocks still get a full forecast.
//  4. Otherwise up to 10 synthetic clause-1 days are appended one at a time,
//     re-checking the same thresholds after each.
//
// Appending clause-1 days can only bring the trigger closer, and appending
// unflagged history can only push it away, so the result is monotonic in the
// input window.
func Simulate(bits []int, clauses []string, code string, evalDate time.Time, jm JailMap, safeFilter bool) (int, string) {
	if code != "" && jm != nil && jm.InJail(code, evalDate) {
		return 0, InJailReason
	}

	if triggered, reason := CheckTriggerNow(bits, clauses); triggered {
		return 0, strings.ReplaceAll(reason, "已觸發", "已達標，次一營業日處置")
	}

	if safeFilter && !hasRecentValidDay(bits, clauses, 10) {
		return NoForecastDays, SafeFilterReason
	}

	bits, clauses = padWindow(bits, clauses)
	simBits := append([]int(nil), bits...)
	simClauses := append([]string(nil), clauses...)

	for days := 1; days <= simulationHorizon; days++ {
		simBits = append(simBits, 1)
		simClauses = append(simClauses, syntheticClause)

		c := countWindow(simBits, simClauses)
		var reasons []string
		if c.c1Streak == clause1StreakLen {
			reasons = append(reasons, fmt.Sprintf("再%d天處置", days))
		}
		if c.valid5 == streak5Threshold {
			reasons = append(reasons, fmt.Sprintf("再%d天處置(連5)", days))
		}
		if c.valid10 >= count10Threshold {
			reasons = append(reasons, fmt.Sprintf("再%d天處置(10日%d次)", days, c.valid10))
		}
		if c.valid30 >= count30Threshold {
			reasons = append(reasons, fmt.Sprintf("再%d天處置(30日%d次)", days, c.valid30))
		}
		if len(reasons) > 0 {
			return days, strings.Join(reasons, " | ")
		}
	}

	return NoForecastDays, ""
}

// hasRecentValidDay reports whether any of the most recent n days (bounded
// by the available history) is a valid accumulation day.
func hasRecentValidDay(bits []int, clauses []string, n int) bool {
	if n > len(bits) {
		n = len(bits)
	}
	for i := 0; i < n; i++ {
		idx := len(bits) - 1 - i
		if bits[idx] == 1 && clause.IsValidAccumulationDay(clause.Parse(clauses[idx])) {
			return true
		}
	}
	return false
}
