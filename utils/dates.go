package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Google Sheets counts day serials from December 30, 1899.
var sheetsEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var serialRegex = regexp.MustCompile(`^\d+(\.\d+)?$`)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	// month first, as a US-locale sheet displays dates
	"1/2/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"Jan 2 2006",
	"January 2 2006",
	"Mon Jan 2 2006",
	"Mon Jan 2 2006 15:04:05",
}

// ParseSheetDate converts a cell value into a calendar date in loc.
// Pure numerals are treated as Sheets day serials, anything else goes
// through the known textual layouts.
func ParseSheetDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if serialRegex.MatchString(trimmed) {
		serial, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid serial %q: %w", trimmed, err)
		}
		ms := int64(serial * 86_400_000)
		t := sheetsEpoch.Add(time.Duration(ms) * time.Millisecond)
		// keep the wall clock, so the calendar day does not depend on loc
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			if layout == time.RFC3339Nano {
				return t.In(loc), nil
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// NormalizeDate never fails: empty or unparseable input becomes now.
func NormalizeDate(raw string, loc *time.Location, now time.Time) time.Time {
	t, err := ParseSheetDate(raw, loc)
	if err != nil {
		return now
	}
	return t
}

// FormatDate renders a cell for display. It is best-effort: unparseable
// input is returned unchanged.
func FormatDate(raw string, loc *time.Location) string {
	if raw == "" {
		return ""
	}
	t, err := ParseSheetDate(raw, loc)
	if err != nil {
		return raw
	}
	return t.Format("02 Jan 2006")
}

// FormatDateInput renders a cell as YYYY-MM-DD, falling back to today.
func FormatDateInput(raw string, loc *time.Location, now time.Time) string {
	t, err := ParseSheetDate(raw, loc)
	if err != nil {
		return now.Format("2006-01-02")
	}
	return t.Format("2006-01-02")
}

// MonthLabel returns the short bucket label used by the charts, e.g. "Feb 2026".
func MonthLabel(t time.Time) string {
	return t.Format("Jan 2006")
}

// SameMonth reports whether a and b fall in the same calendar month and year.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// MonthStart returns the first instant of t's month shifted by offset months.
func MonthStart(t time.Time, offset int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(offset), 1, 0, 0, 0, 0, t.Location())
}
