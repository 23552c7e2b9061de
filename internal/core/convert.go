package core

// convert.go turns raw spreadsheet cells into typed values.
//
// These functions absorb the messy reality of grade sheets:
//   - Multiple date formats (ISO, European day-first, US month-first, textual)
//   - Decimal commas and thousands separators in numbers
//   - Excel formula prefixes (="value")
//
// Every parser returns (value, ok). ok=false means "missing", never an error;
// the error filter decides what to do with missing cells.

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts in priority order. ISO forms are unambiguous and go first,
// dotted dates are read day-first, slashed and dashed dates month-first with
// a day-first fallback for values like 15/03/2024.
var (
	fourDigitYearLayouts = []string{
		"2006-1-2", "2006/1/2", "2006.1.2", "2006 1 2",
		"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02T15:04:05", time.RFC3339,
		"2.1.2006", "2.1.2006 15:04:05",
		"1/2/2006", "1-2-2006",
		"2/1/2006", "2-1-2006", "2 1 2006",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "2 January 2006",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"2.1.06",
		"1/2/06", "1-2-06",
		"2/1/06", "2-1-06",
	}
)

// ParseNumber parses a numeric cell.
// Accepts a single decimal comma ("4,5") and strips thousands separators.
func ParseNumber(s string) (float64, bool) {
	s = CleanCell(s)
	if s == "" {
		return 0, false
	}

	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	s = strings.ReplaceAll(s, " ", "")

	if !numericRegex.MatchString(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseDate parses a date cell and truncates it to the calendar date in UTC.
// Supports multiple date formats and handles 2-digit years with pivot.
func ParseDate(s string) (time.Time, bool) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t).Time, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() > pivotYear {
			t = t.AddDate(-100, 0, 0)
		}
		return NewDate(t).Time, true
	}

	return time.Time{}, false
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// CleanCell trims whitespace and removes the Excel formula wrapper (="...").
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// FormatNumber renders a float in its shortest round-trippable form.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
