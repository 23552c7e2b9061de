package core

// frame.go holds the untyped intermediate table that flows between the
// reader, the normalizer, the error filter and the validator.
//
// A raw Frame straight from a file only contains Missing and Text values;
// normalization coerces the numeric and date columns so later stages can
// tell "unparseable" (Missing) apart from "never present" (no column).

import (
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Kind identifies which field of a Value is populated.
type Kind uint8

const (
	KindMissing Kind = iota
	KindText
	KindNumber
	KindDate
)

// Value is a single cell.
type Value struct {
	Kind Kind
	Text string
	Num  float64
	Date time.Time
}

// Missing is the absent cell.
var Missing = Value{}

// TextValue returns a Text cell, or Missing for an empty string.
func TextValue(s string) Value {
	if s == "" {
		return Missing
	}
	return Value{Kind: KindText, Text: s}
}

// NumberValue returns a Number cell.
func NumberValue(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// DateValue returns a Date cell truncated to its calendar date.
func DateValue(t time.Time) Value {
	return Value{Kind: KindDate, Date: NewDate(t).Time}
}

// IsMissing reports whether the cell is absent.
func (v Value) IsMissing() bool {
	return v.Kind == KindMissing
}

// String renders the cell; Missing renders as "".
func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindDate:
		return v.Date.Format(DateLayout)
	default:
		return ""
	}
}

// AsNumber returns the numeric form of the cell, parsing Text if needed.
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindText:
		return ParseNumber(v.Text)
	default:
		return 0, false
	}
}

// AsDate returns the date form of the cell, parsing Text if needed.
func (v Value) AsDate() (time.Time, bool) {
	switch v.Kind {
	case KindDate:
		return v.Date, true
	case KindText:
		return ParseDate(v.Text)
	default:
		return time.Time{}, false
	}
}

// AsPgText converts the cell to an optional text value.
func (v Value) AsPgText() pgtype.Text {
	return ToPgText(v.String())
}

// Frame is a header plus rows of cells. Every row has len(Columns) cells.
type Frame struct {
	Columns []string
	Rows    [][]Value
}

// NewFrame builds a Frame from raw string records. Short rows are padded
// with Missing; long rows are truncated to the header width.
func NewFrame(header []string, records [][]string) *Frame {
	f := &Frame{Columns: append([]string(nil), header...)}
	f.Rows = make([][]Value, 0, len(records))
	for _, rec := range records {
		row := make([]Value, len(header))
		for i := range header {
			if i < len(rec) {
				row[i] = TextValue(rec[i])
			}
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}

// Index returns the position of a column, or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the column exists.
func (f *Frame) Has(name string) bool {
	return f.Index(name) >= 0
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// rowKey encodes a row so that distinct rows never collide. Each cell is
// written as kind, length and content.
func rowKey(row []Value) string {
	var b strings.Builder
	for _, v := range row {
		s := v.String()
		b.WriteByte(byte('0' + v.Kind))
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}

// dropDuplicates removes exact-duplicate rows, keeping the first.
func (f *Frame) dropDuplicates() int {
	seen := make(map[string]struct{}, len(f.Rows))
	kept := f.Rows[:0]
	for _, row := range f.Rows {
		k := rowKey(row)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, row)
	}
	removed := len(f.Rows) - len(kept)
	f.Rows = kept
	return removed
}

// dropDuplicatesOn removes rows that repeat an earlier row on the named
// columns, keeping the first. Absent columns are left out of the key; with
// none present nothing is dropped.
func (f *Frame) dropDuplicatesOn(cols ...string) int {
	idx := make([]int, 0, len(cols))
	for _, c := range cols {
		if i := f.Index(c); i >= 0 {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(f.Rows))
	kept := f.Rows[:0]
	key := make([]Value, len(idx))
	for _, row := range f.Rows {
		for j, i := range idx {
			key[j] = row[i]
		}
		k := rowKey(key)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, row)
	}
	removed := len(f.Rows) - len(kept)
	f.Rows = kept
	return removed
}

// hasDuplicates reports whether any two rows are identical.
func (f *Frame) hasDuplicates() bool {
	seen := make(map[string]struct{}, len(f.Rows))
	for _, row := range f.Rows {
		k := rowKey(row)
		if _, dup := seen[k]; dup {
			return true
		}
		seen[k] = struct{}{}
	}
	return false
}

// Table converts a cleaned Frame to typed records. The frame must have
// passed ValidateStructure; rows with unusable required cells are skipped.
func (f *Frame) Table() *Table {
	t := &Table{}
	for _, c := range CanonicalColumns {
		if f.Has(c) {
			t.Columns = append(t.Columns, c)
		}
	}

	idx := func(name string) int { return f.Index(name) }
	iID, iName, iSubj := idx(ColStudentID), idx(ColStudentName), idx(ColSubject)
	iGrade, iDate := idx(ColGrade), idx(ColDate)
	iTeacher, iAssign, iNotes := idx(ColTeacher), idx(ColAssignment), idx(ColNotes)

	cell := func(row []Value, i int) Value {
		if i < 0 {
			return Missing
		}
		return row[i]
	}

	t.Records = make([]GradeRecord, 0, len(f.Rows))
	for _, row := range f.Rows {
		id, okID := cell(row, iID).AsNumber()
		grade, okGrade := cell(row, iGrade).AsNumber()
		date, okDate := cell(row, iDate).AsDate()
		if !okID || !okGrade || !okDate {
			continue
		}
		t.Records = append(t.Records, GradeRecord{
			StudentID:   int64(id),
			StudentName: cell(row, iName).String(),
			Subject:     cell(row, iSubj).String(),
			Grade:       grade,
			Date:        NewDate(date),
			Teacher:     cell(row, iTeacher).AsPgText(),
			Assignment:  cell(row, iAssign).AsPgText(),
			Notes:       cell(row, iNotes).AsPgText(),
		})
	}
	return t
}
