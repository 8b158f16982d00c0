package clause

import (
	"testing"
)

func setEqual(s Set, want ...int) bool {
	if len(s) != len(want) {
		return false
	}
	for _, id := range want {
		if !s[id] {
			return false
		}
	}
	return true
}

func TestParseExplicitCitations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{"plain arabic", "觸犯第1款", []int{1}},
		{"multiple clauses", "第1款、第4款", []int{1, 4}},
		{"spelled out numeral", "第一款", []int{1}},
		{"numeral ten", "第十款", []int{10}},
		{"bopomofo typo", "第ㄧ款", []int{1}},
		{"full width digits", "第１３款", []int{13}},
		{"whitespace tolerant", "第 6 款", []int{6}},
		{"mixed variants", "第ㄧ款及第１１款", []int{1, 11}},
		{"empty input", "", nil},
		{"no clause at all", "本日無異常", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			if !setEqual(got, tt.want...) {
				t.Errorf("Parse(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseKeywordFallback(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{"turnover rate", "週轉率過高", []int{4}},
		{"accumulated turnover implies both", "累積週轉率", []int{10, 4}},
		{"pe ratio", "本益比異常", []int{6}},
		{"day trading", "當日沖銷成交量過高", []int{13, 9}},
		{"price change pct", "收盤價漲跌百分比異常", []int{1}},
		{"short sale", "借券賣出餘額", []int{12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			if !setEqual(got, tt.want...) {
				t.Errorf("Parse(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseExplicitCitationSkipsKeywords(t *testing.T) {
	// When a "第N款" citation is present the keyword dictionary must not run,
	// even if descriptive phrases also appear in the text.
	got := Parse("第2款 週轉率")
	if !setEqual(got, 2) {
		t.Errorf("Parse = %v, want {2}", got)
	}
}

func TestRender(t *testing.T) {
	got := Parse("第4款、第1款、第13款").Render()
	if got != "第1款、第4款、第13款" {
		t.Errorf("Render = %q, want ascending canonical form", got)
	}
	if (Set{}).Render() != "" {
		t.Error("empty set should render as empty string")
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want string
	}{
		{"union of ids", "第1款", "第4款", "第1款、第4款"},
		{"idempotent", "第2款、第3款", "第2款、第3款", "第2款、第3款"},
		{"one side empty", "", "第5款", "第5款"},
		{"no ids keeps longer text", "abc", "abcdef", "abcdef"},
		{"no ids tie favors first", "abc", "xyz", "abc"},
		{"both empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Merge(tt.a, tt.b); got != tt.want {
				t.Errorf("Merge(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMergeCommutativeIDSet(t *testing.T) {
	a, b := "第3款及週轉率", "第7款"
	if got, rev := Merge(a, b), Merge(b, a); got != rev {
		t.Errorf("Merge not commutative in ID set: %q vs %q", got, rev)
	}
}

func TestDayClassification(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		valid       bool
		specialRisk bool
	}{
		{"accumulation only", "第1款", true, false},
		{"special risk only", "第13款", false, true},
		{"both", "第1款、第9款", true, true},
		{"neither in range", "第99款", false, false},
		{"empty", "", false, false},
		{"boundary 8", "第8款", true, false},
		{"boundary 9", "第9款", false, true},
		{"boundary 14", "第14款", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := Parse(tt.text)
			if got := IsValidAccumulationDay(ids); got != tt.valid {
				t.Errorf("IsValidAccumulationDay(%q) = %v, want %v", tt.text, got, tt.valid)
			}
			if got := IsSpecialRiskDay(ids); got != tt.specialRisk {
				t.Errorf("IsSpecialRiskDay(%q) = %v, want %v", tt.text, got, tt.specialRisk)
			}
		})
	}
}
