package core

import (
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// ParseNumber Tests
// ----------------------------------------------------------------------------

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		want   float64
	}{
		// Valid: integers and decimals
		{name: "positive integer", input: "5", wantOK: true, want: 5},
		{name: "zero", input: "0", wantOK: true, want: 0},
		{name: "negative integer", input: "-1", wantOK: true, want: -1},
		{name: "decimal number", input: "4.5", wantOK: true, want: 4.5},
		{name: "leading decimal point", input: ".5", wantOK: true, want: 0.5},
		{name: "trailing decimal point", input: "3.", wantOK: true, want: 3},
		{name: "scientific notation", input: "1e2", wantOK: true, want: 100},

		// Valid: locale variations
		{name: "decimal comma", input: "4,5", wantOK: true, want: 4.5},
		{name: "thousands separator", input: "1,234.5", wantOK: true, want: 1234.5},
		{name: "multiple thousands separators", input: "1,234,567", wantOK: true, want: 1234567},
		{name: "surrounding whitespace", input: "  87  ", wantOK: true, want: 87},
		{name: "excel formula wrapper", input: `="92"`, wantOK: true, want: 92},

		// Invalid
		{name: "empty string", input: "", wantOK: false},
		{name: "whitespace only", input: "   ", wantOK: false},
		{name: "letters", input: "abc", wantOK: false},
		{name: "mixed", input: "12abc", wantOK: false},
		{name: "nan literal", input: "NaN", wantOK: false},
		{name: "two dots", input: "1.2.3", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumber(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseNumber(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseDate Tests
// ----------------------------------------------------------------------------

func TestParseDate(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantYear  int
		wantMonth time.Month
		wantDay   int
	}{
		// Valid: ISO formats
		{name: "ISO format standard", input: "2024-01-15", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 15},
		{name: "ISO format leap year Feb 29", input: "2024-02-29", wantValid: true, wantYear: 2024, wantMonth: time.February, wantDay: 29},
		{name: "ISO with slashes", input: "2024/03/05", wantValid: true, wantYear: 2024, wantMonth: time.March, wantDay: 5},
		{name: "ISO with dots", input: "2024.03.05", wantValid: true, wantYear: 2024, wantMonth: time.March, wantDay: 5},
		{name: "ISO with time is truncated", input: "2024-01-15 13:45:00", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 15},
		{name: "RFC3339", input: "2024-01-15T23:59:59Z", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 15},

		// Valid: day-first dotted
		{name: "dotted day first", input: "15.03.2024", wantValid: true, wantYear: 2024, wantMonth: time.March, wantDay: 15},

		// Valid: month-first with day-first fallback
		{name: "US format with slashes", input: "03/04/2024", wantValid: true, wantYear: 2024, wantMonth: time.March, wantDay: 4},
		{name: "US format single digits", input: "1/5/2024", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 5},
		{name: "day first fallback", input: "15/03/2024", wantValid: true, wantYear: 2024, wantMonth: time.March, wantDay: 15},
		{name: "dash separator MM-DD-YYYY", input: "01-15-2024", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 15},

		// Valid: textual and compact
		{name: "month name", input: "Jan 15, 2024", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 15},
		{name: "full month name", input: "March 3, 2024", wantValid: true, wantYear: 2024, wantMonth: time.March, wantDay: 3},
		{name: "day month year", input: "3 Mar 2024", wantValid: true, wantYear: 2024, wantMonth: time.March, wantDay: 3},
		{name: "compact", input: "20240115", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 15},
		{name: "excel formula wrapper", input: `="2024-01-15"`, wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 15},

		// Invalid
		{name: "empty", input: "", wantValid: false},
		{name: "garbage", input: "not a date", wantValid: false},
		{name: "impossible day", input: "2024-02-30", wantValid: false},
		{name: "impossible month", input: "2024-13-01", wantValid: false},
		{name: "both parts over twelve", input: "13/13/2024", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.wantValid {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.wantValid)
			}
			if !ok {
				return
			}
			if got.Year() != tt.wantYear || got.Month() != tt.wantMonth || got.Day() != tt.wantDay {
				t.Errorf("ParseDate(%q) = %s, want %04d-%02d-%02d",
					tt.input, got.Format(DateLayout), tt.wantYear, tt.wantMonth, tt.wantDay)
			}
			if got.Hour() != 0 || got.Minute() != 0 || got.Location() != time.UTC {
				t.Errorf("ParseDate(%q) = %v, want UTC midnight", tt.input, got)
			}
		})
	}
}

// TestParseDate_TwoDigitYear tests 2-digit year handling with pivot year logic
func TestParseDate_TwoDigitYear(t *testing.T) {
	originalPivot := TwoDigitYearPivot
	defer func() { TwoDigitYearPivot = originalPivot }()
	TwoDigitYearPivot = 20

	tests := []struct {
		name     string
		input    string
		wantYear int
	}{
		{name: "2-digit year 24 as 2024", input: "01/15/24", wantYear: 2024},
		{name: "2-digit year 99 as 1999", input: "01/15/99", wantYear: 1999},
		{name: "2-digit year 85 as 1985", input: "1-15-85", wantYear: 1985},
		{name: "dotted day first", input: "15.01.99", wantYear: 1999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if !ok {
				t.Fatalf("ParseDate(%q) ok = false, want true", tt.input)
			}
			if got.Year() != tt.wantYear {
				t.Errorf("ParseDate(%q).Year = %d, want %d", tt.input, got.Year(), tt.wantYear)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ToPgText / CleanCell Tests
// ----------------------------------------------------------------------------

func TestToPgText(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantValue string
	}{
		{name: "simple text", input: "Ms. Ivanova", wantValid: true, wantValue: "Ms. Ivanova"},
		{name: "trimmed", input: "  essay  ", wantValid: true, wantValue: "essay"},
		{name: "unicode", input: "Иванова", wantValid: true, wantValue: "Иванова"},
		{name: "empty", input: "", wantValid: false},
		{name: "whitespace only", input: " \t ", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPgText(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("ToPgText(%q).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			}
			if got.String != tt.wantValue {
				t.Errorf("ToPgText(%q).String = %q, want %q", tt.input, got.String, tt.wantValue)
			}
		})
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "math", want: "math"},
		{name: "whitespace", input: "  math ", want: "math"},
		{name: "formula wrapper", input: `="00123"`, want: "00123"},
		{name: "formula wrapper with spaces", input: `  =" x "  `, want: "x"},
		{name: "incomplete wrapper kept", input: `="abc`, want: `="abc`},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{4.5, "4.5"},
		{100, "100"},
		{0.1, "0.1"},
		{1234567, "1234567"},
	}

	for _, tt := range tests {
		if got := FormatNumber(tt.input); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
