package rocdate

import (
	"testing"
	"time"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
		ok   bool
	}{
		{"slash separated", "113/05/20", date(2024, 5, 20), true},
		{"dash separated", "113-5-20", date(2024, 5, 20), true},
		{"surrounding whitespace", " 112/12/29 ", date(2023, 12, 29), true},
		{"two parts only", "113/05", time.Time{}, false},
		{"non numeric", "113/ab/20", time.Time{}, false},
		{"impossible day", "113/02/30", time.Time{}, false},
		{"month out of range", "113/13/01", time.Time{}, false},
		{"empty", "", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.in)
			if ok != tt.ok {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	if got := Format(date(2024, 5, 3)); got != "113/05/03" {
		t.Errorf("Format = %q, want 113/05/03", got)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	want := date(2025, 11, 7)
	got, ok := Parse(Format(want))
	if !ok || !got.Equal(want) {
		t.Errorf("round trip = %v (ok=%v), want %v", got, ok, want)
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		start, end time.Time
		ok         bool
	}{
		{"fullwidth tilde", "113/05/20～113/06/03", date(2024, 5, 20), date(2024, 6, 3), true},
		{"ascii tilde", "113/05/20~113/06/03", date(2024, 5, 20), date(2024, 6, 3), true},
		{"single dash with slashes", "113/05/20-113/06/03", date(2024, 5, 20), date(2024, 6, 3), true},
		{"dash without slashes rejected", "1130520-1130603", time.Time{}, time.Time{}, false},
		{"multiple dashes rejected", "113-05-20-113-06-03", time.Time{}, time.Time{}, false},
		{"one bound malformed", "113/05/20～113/99/03", time.Time{}, time.Time{}, false},
		{"empty", "", time.Time{}, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, ok := ParsePeriod(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParsePeriod(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && (!start.Equal(tt.start) || !end.Equal(tt.end)) {
				t.Errorf("ParsePeriod(%q) = (%v, %v), want (%v, %v)", tt.in, start, end, tt.start, tt.end)
			}
		})
	}
}
