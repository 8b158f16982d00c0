// Package clause parses and classifies the regulatory clause references that
// appear in TWSE/TPEx attention-stock bulletins.
//
// Bulletin rows cite the violated conditions of the attention-stock rules as
// free text, usually "第N款" (clause N) but with plenty of variation: spelled
// out Chinese numerals, full-width digits, the common "第ㄧ款" typo, or no
// explicit citation at all (only a descriptive phrase). This package
// canonicalizes that text into small integer clause IDs.
//
// Clause Semantics:
//   - IDs 1-8 are accumulation clauses (price/volume/turnover anomalies) that
//     count toward disposition thresholds.
//   - IDs 9-14 are special-risk clauses (margin/short-sale/day-trading
//     anomalies) tracked separately for manual-review risk.
package clause

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Set is a set of clause IDs parsed from one bulletin text.
// An empty Set means "no recognized clause", which is distinct from a day
// that was never flagged at all.
type Set map[int]bool

// chineseNumerals maps spelled-out numerals inside "第N款" to digits.
var chineseNumerals = []struct{ cn, digit string }{
	{"一", "1"}, {"二", "2"}, {"三", "3"}, {"四", "4"}, {"五", "5"},
	{"六", "6"}, {"七", "7"}, {"八", "8"}, {"九", "9"}, {"十", "10"},
}

// keywordMap backs the fallback path for bulletin rows that describe the
// violated condition without an explicit "第N款" citation. Every matching
// phrase contributes its ID, so "累積週轉率" deliberately yields both 10 and
// 4 ("週轉率" is a substring of it).
var keywordMap = []struct {
	keyword string
	id      int
}{
	{"起迄兩個營業日", 11},
	{"當日沖銷", 13},
	{"借券賣出", 12},
	{"累積週轉率", 10},
	{"週轉率", 4},
	{"成交量", 9},
	{"本益比", 6},
	{"股價淨值比", 6},
	{"溢折價", 8},
	{"收盤價漲跌百分比", 1},
	{"最後成交價漲跌", 1},
	{"最近六個營業日累積", 1},
}

var clauseRef = regexp.MustCompile(`第\s*(\d+)\s*款`)

var fullWidthDigits = strings.NewReplacer(
	"１", "1", "２", "2", "３", "3", "４", "4", "５", "5",
	"６", "6", "７", "7", "８", "8", "９", "9", "０", "0",
)

// NormalizeText canonicalizes numeral variants so that clause references can
// be extracted with a single pattern. It fixes the "第ㄧ款" bopomofo typo,
// rewrites spelled-out numerals inside "第N款", and converts full-width
// digits to half-width.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "第ㄧ款", "第一款")
	for _, n := range chineseNumerals {
		s = strings.ReplaceAll(s, "第"+n.cn+"款", "第"+n.digit+"款")
	}
	return fullWidthDigits.Replace(s)
}

// Parse extracts all clause IDs cited in text. Explicit "第N款" references
// win; only when none are present does the keyword fallback run. Unparseable
// or empty input yields an empty set, never an error.
func Parse(text string) Set {
	ids := Set{}
	if text == "" {
		return ids
	}
	text = NormalizeText(text)
	for _, m := range clauseRef.FindAllStringSubmatch(text, -1) {
		if id, err := strconv.Atoi(m[1]); err == nil {
			ids[id] = true
		}
	}
	if len(ids) == 0 {
		for _, kw := range keywordMap {
			if strings.Contains(text, kw.keyword) {
				ids[kw.id] = true
			}
		}
	}
	return ids
}

// Render produces the canonical "、"-joined "第N款" form, ascending by ID.
// An empty set renders as "".
func (s Set) Render() string {
	if len(s) == 0 {
		return ""
	}
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("第%d款", id)
	}
	return strings.Join(parts, "、")
}

// Contains reports whether id is in the set.
func (s Set) Contains(id int) bool {
	return s[id]
}

// Merge combines two clause texts for the same (stock, date). The union of
// both parsed ID sets wins when non-empty; otherwise the longer raw text is
// kept as a best-effort record, ties favoring a.
func Merge(a, b string) string {
	ids := Parse(a)
	for id := range Parse(b) {
		ids[id] = true
	}
	if len(ids) > 0 {
		return ids.Render()
	}
	if len(a) >= len(b) {
		return a
	}
	return b
}

// IsValidAccumulationDay reports whether the set contains any accumulation
// clause (1-8). Such days count toward disposition streak and frequency
// thresholds.
func IsValidAccumulationDay(ids Set) bool {
	for id := range ids {
		if id >= 1 && id <= 8 {
			return true
		}
	}
	return false
}

// IsSpecialRiskDay reports whether the set contains any special-risk clause
// (9-14). These signal elevated manual-review risk and are evaluated apart
// from the accumulation thresholds; the two predicates are not exclusive.
func IsSpecialRiskDay(ids Set) bool {
	for id := range ids {
		if id >= 9 && id <= 14 {
			return true
		}
	}
	return false
}
