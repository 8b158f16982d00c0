// Package rocdate converts between the Republic of China (minguo) calendar
// used by Taiwan exchange feeds and western dates. ROC year = western year
// minus 1911; feeds separate the components with "/" or "-" and join period
// bounds with "～", "~" or "-". All conversion lives here so that the +1911
// arithmetic is never inlined at call sites.
package rocdate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const yearOffset = 1911

var componentSep = regexp.MustCompile(`[/-]`)

// Parse parses a single ROC-format date string such as "113/05/20" or
// "113-5-20" into a calendar date. The boolean result is false for anything
// that does not split into three numeric parts or does not name a real
// calendar date.
func Parse(s string) (time.Time, bool) {
	parts := componentSep.Split(strings.TrimSpace(s), -1)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	year, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	month, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	day, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year+yearOffset, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (e.g. Feb 30 -> Mar 2); reject that.
	if d.Day() != day || d.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return d, true
}

// Format renders a western date in the "113/05/20" ROC form used when
// querying the TPEx bulletin endpoint.
func Format(d time.Time) string {
	return fmt.Sprintf("%d/%02d/%02d", d.Year()-yearOffset, int(d.Month()), d.Day())
}

// ParsePeriod parses a disposition-period string, two ROC dates joined by
// "～", "~", or a single "-" (the dash form is only accepted when the text
// also contains "/", which rules out ISO dates). The boolean result is false
// when the separator pattern is not recognized or either bound fails to
// parse; malformed periods contribute nothing rather than corrupting the
// caller's calendar.
func ParsePeriod(s string) (start, end time.Time, ok bool) {
	if s == "" {
		return time.Time{}, time.Time{}, false
	}
	var bounds []string
	switch {
	case strings.Contains(s, "～"):
		bounds = strings.Split(s, "～")
	case strings.Contains(s, "~"):
		bounds = strings.Split(s, "~")
	case strings.Contains(s, "-") && strings.Contains(s, "/") && strings.Count(s, "-") == 1:
		bounds = strings.Split(s, "-")
	}
	if len(bounds) < 2 {
		return time.Time{}, time.Time{}, false
	}
	start, ok1 := Parse(bounds[0])
	end, ok2 := Parse(bounds[1])
	if !ok1 || !ok2 {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
