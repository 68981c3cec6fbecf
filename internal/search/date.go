package search

import (
	"strconv"
	"strings"
	"time"
)

// ParseDate reads "YYYY-MM-DD" with an optional leading minus for years BC
// and an optional time suffix, which is ignored. Impossible calendar dates
// such as 2020-02-30 are rejected.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "None" {
		return time.Time{}, false
	}
	if i := strings.IndexAny(s, "T "); i > 0 {
		s = s[:i]
	}
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	parts := strings.Split(s, "-")
	if len(parts) != 3 || parts[0] == "" {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	if negative {
		year = -year
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
