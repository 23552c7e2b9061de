package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Canonical column names.
const (
	ColStudentID   = "student_id"
	ColStudentName = "student_name"
	ColSubject     = "subject"
	ColGrade       = "grade"
	ColDate        = "date"
	ColTeacher     = "teacher"
	ColAssignment  = "assignment"
	ColNotes       = "notes"
)

// RequiredColumns must be present and non-missing in every accepted table.
var RequiredColumns = []string{ColStudentID, ColStudentName, ColSubject, ColGrade, ColDate}

// OptionalColumns are carried through when present.
var OptionalColumns = []string{ColTeacher, ColAssignment, ColNotes}

// CanonicalColumns is the full schema in output order.
var CanonicalColumns = append(append([]string{}, RequiredColumns...), OptionalColumns...)

// IsCanonical reports whether name is one of the canonical columns.
func IsCanonical(name string) bool {
	for _, c := range CanonicalColumns {
		if c == name {
			return true
		}
	}
	return false
}

// DateLayout is the serialized form of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar date stored as UTC midnight.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// GradeRecord is one row of the canonical table.
type GradeRecord struct {
	StudentID   int64       `json:"student_id"`
	StudentName string      `json:"student_name"`
	Subject     string      `json:"subject"`
	Grade       float64     `json:"grade"`
	Date        Date        `json:"date"`
	Teacher     pgtype.Text `json:"teacher"`
	Assignment  pgtype.Text `json:"assignment"`
	Notes       pgtype.Text `json:"notes"`
}

// GradeKey identifies a grade for incremental comparison.
type GradeKey struct {
	StudentID int64
	Subject   string
	Date      string
	Grade     float64
}

// Key returns the composite key of the record.
func (r GradeRecord) Key() GradeKey {
	return GradeKey{
		StudentID: r.StudentID,
		Subject:   r.Subject,
		Date:      r.Date.String(),
		Grade:     r.Grade,
	}
}

// Table is a fully cleaned and validated set of grade records.
type Table struct {
	Columns []string      `json:"columns"`
	Records []GradeRecord `json:"records"`
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Empty reports whether the table has no records.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// HasColumn reports whether the column was present in the source.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with t.
func (t *Table) Clone() *Table {
	if t == nil {
		return &Table{}
	}
	return &Table{
		Columns: append([]string(nil), t.Columns...),
		Records: append([]GradeRecord(nil), t.Records...),
	}
}

// DateRange returns the earliest and latest record dates.
// ok is false for an empty table.
func (t *Table) DateRange() (min, max Date, ok bool) {
	for i, r := range t.Records {
		if i == 0 || r.Date.Before(min.Time) {
			min = r.Date
		}
		if i == 0 || r.Date.After(max.Time) {
			max = r.Date
		}
	}
	return min, max, t.Len() > 0
}
