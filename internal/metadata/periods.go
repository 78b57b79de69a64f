package metadata

import (
	"strings"
	"time"
)

// Period is a calendar granularity encoded as a field-name suffix.
type Period string

const (
	PeriodYear    Period = "year"
	PeriodQuarter Period = "quarter"
	PeriodMonth   Period = "month"
	PeriodDate    Period = "date"
)

// periods lists the known periods from coarsest to finest.
var periods = []Period{PeriodYear, PeriodQuarter, PeriodMonth, PeriodDate}

func periodRank(p Period) int {
	for i, q := range periods {
		if q == p {
			return i
		}
	}
	return -1
}

// SplitPeriod splits a name into its basename and period suffix, e.g.
// "report_year" -> ("report", "year"). Names without a known period suffix
// are returned whole with an empty period.
func SplitPeriod(name string) (string, Period) {
	i := strings.LastIndexByte(name, '_')
	if i <= 0 {
		return name, ""
	}
	p := Period(name[i+1:])
	if periodRank(p) < 0 {
		return name, ""
	}
	return name[:i], p
}

// ExpandPeriodicNames returns, for each name, the name itself followed by
// the same basename at every finer period. Non-periodic names expand to
// themselves.
//
//	report_year -> report_year, report_quarter, report_month, report_date
func ExpandPeriodicNames(names ...string) []string {
	var out []string
	for _, name := range names {
		out = append(out, name)
		base, p := SplitPeriod(name)
		if p == "" {
			continue
		}
		for _, q := range periods[periodRank(p)+1:] {
			out = append(out, base+"_"+string(q))
		}
	}
	return out
}

// HasDuplicateBasenames reports whether two names share a basename, such as
// report_year and report_month.
func HasDuplicateBasenames(names []string) bool {
	_, dup := duplicateBasename(names)
	return dup
}

func duplicateBasename(names []string) (string, bool) {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		base, _ := SplitPeriod(n)
		if _, ok := seen[base]; ok {
			return base, true
		}
		seen[base] = struct{}{}
	}
	return "", false
}

// SnapToPeriod truncates t to the start of period p in t's location.
func SnapToPeriod(t time.Time, p Period) time.Time {
	y, m, d := t.Date()
	switch p {
	case PeriodYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, t.Location())
	case PeriodQuarter:
		q := (int(m)-1)/3*3 + 1
		return time.Date(y, time.Month(q), 1, 0, 0, 0, 0, t.Location())
	case PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	case PeriodDate:
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	default:
		return t
	}
}
