package engine

import (
	"testing"
	"time"
)

// weekdayCalendar builds n ascending weekdays ending at end.
func weekdayCalendar(end time.Time, n int) []time.Time {
	var dates []time.Time
	d := end
	for len(dates) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, -1)
	}
	for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
		dates[i], dates[j] = dates[j], dates[i]
	}
	return dates
}

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestIntervalContainsInclusiveBounds(t *testing.T) {
	iv := Interval{Start: day(2024, 5, 20), End: day(2024, 6, 3)}

	if !iv.Contains(day(2024, 5, 20)) {
		t.Error("start bound should be inside")
	}
	if !iv.Contains(day(2024, 6, 3)) {
		t.Error("end bound should be inside")
	}
	if iv.Contains(day(2024, 5, 19)) || iv.Contains(day(2024, 6, 4)) {
		t.Error("dates outside bounds should not be inside")
	}
}

func TestJailMapSortAndLastEnd(t *testing.T) {
	jm := JailMap{}
	jm.Add("2330", Interval{Start: day(2024, 6, 10), End: day(2024, 6, 21)})
	jm.Add("2330", Interval{Start: day(2024, 3, 1), End: day(2024, 3, 14)})
	jm.Sort()

	if !jm["2330"][0].Start.Equal(day(2024, 3, 1)) {
		t.Error("intervals should be ascending by start date")
	}
	if !jm.LastJailEnd("2330").Equal(day(2024, 6, 21)) {
		t.Errorf("LastJailEnd = %v", jm.LastJailEnd("2330"))
	}
	if !jm.LastJailEnd("9999").IsZero() {
		t.Error("stock without intervals should report zero time")
	}
}

func TestPrevTradingDay(t *testing.T) {
	cal := []time.Time{day(2024, 5, 2), day(2024, 5, 3), day(2024, 5, 6)}

	tests := []struct {
		name string
		d    time.Time
		want time.Time
		ok   bool
	}{
		{"exact calendar entry", day(2024, 5, 6), day(2024, 5, 3), true},
		{"absent falls back to latest earlier", day(2024, 5, 4), day(2024, 5, 3), true},
		{"first calendar entry", day(2024, 5, 2), time.Time{}, false},
		{"before calendar", day(2024, 5, 1), time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PrevTradingDay(tt.d, cal)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("PrevTradingDay = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildExclusionMap(t *testing.T) {
	cal := weekdayCalendar(day(2024, 6, 28), 40)
	jm := JailMap{}
	jm.Add("6150", Interval{Start: day(2024, 6, 10), End: day(2024, 6, 21)})
	jm.Sort()

	em := BuildExclusionMap(cal, jm)

	// Every trading day inside the interval is excluded.
	for _, d := range cal {
		inside := !d.Before(day(2024, 6, 10)) && !d.After(day(2024, 6, 21))
		if inside && !em.Excluded("6150", d) {
			t.Errorf("interval day %v should be excluded", d)
		}
	}
	// The trading day before the start (June 10 is a Monday; June 7 Friday).
	if !em.Excluded("6150", day(2024, 6, 7)) {
		t.Error("trading day preceding the interval start should be excluded")
	}
	if em.Excluded("6150", day(2024, 6, 24)) {
		t.Error("day after the interval should not be excluded")
	}
	if em.Excluded("2330", day(2024, 6, 10)) {
		t.Error("unjailed stock should have no exclusions")
	}
}

func TestLastNonJailTradingDays(t *testing.T) {
	cal := weekdayCalendar(day(2024, 6, 28), 40)
	jm := JailMap{}
	jm.Add("6150", Interval{Start: day(2024, 6, 10), End: day(2024, 6, 14)})
	jm.Sort()
	em := BuildExclusionMap(cal, jm)

	got := LastNonJailTradingDays("6150", cal, jm, em, 30)

	// Scan must stop at the most recent jail end: only June 17..28 qualify.
	if len(got) != 10 {
		t.Fatalf("got %d days, want 10 (post-jail weekdays only)", len(got))
	}
	if !got[0].Equal(day(2024, 6, 17)) {
		t.Errorf("oldest day = %v, want first post-jail trading day", got[0])
	}
	if !got[len(got)-1].Equal(day(2024, 6, 28)) {
		t.Errorf("newest day = %v, want calendar end", got[len(got)-1])
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Before(got[i]) {
			t.Fatal("result should be ascending")
		}
	}
}

func TestLastNonJailTradingDaysNoJail(t *testing.T) {
	cal := weekdayCalendar(day(2024, 6, 28), 45)
	got := LastNonJailTradingDays("2330", cal, JailMap{}, ExclusionMap{}, 30)

	if len(got) != 30 {
		t.Fatalf("got %d days, want 30", len(got))
	}
	if !got[len(got)-1].Equal(day(2024, 6, 28)) {
		t.Errorf("newest day = %v, want calendar end", got[len(got)-1])
	}
}

func TestLastNonJailTradingDaysShortHistory(t *testing.T) {
	cal := weekdayCalendar(day(2024, 6, 28), 5)
	got := LastNonJailTradingDays("2330", cal, JailMap{}, ExclusionMap{}, 30)

	if len(got) != 5 {
		t.Fatalf("got %d days, want all 5 available", len(got))
	}
}
