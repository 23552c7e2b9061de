package core

import (
	"strings"
	"time"
)

// Filter narrows a Table. Nil or empty fields do not constrain.
type Filter struct {
	StudentID *int64
	Subject   string
	Start     *time.Time
	End       *time.Time
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.StudentID == nil && f.Subject == "" && f.Start == nil && f.End == nil
}

// Matches reports whether r satisfies every set constraint.
// Subject comparison ignores case; date bounds are inclusive.
func (f Filter) Matches(r GradeRecord) bool {
	if f.StudentID != nil && r.StudentID != *f.StudentID {
		return false
	}
	if f.Subject != "" && !strings.EqualFold(r.Subject, f.Subject) {
		return false
	}
	if f.Start != nil && r.Date.Before(NewDate(*f.Start).Time) {
		return false
	}
	if f.End != nil && r.Date.After(NewDate(*f.End).Time) {
		return false
	}
	return true
}

// GetFiltered returns a new Table with the records of t matching f, in
// their original order. t is not modified.
func GetFiltered(t *Table, f Filter) *Table {
	if f.IsZero() {
		return t.Clone()
	}

	out := &Table{Columns: append([]string(nil), t.Columns...)}
	out.Records = make([]GradeRecord, 0, len(t.Records))
	for _, r := range t.Records {
		if f.Matches(r) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// ParseFilterDate parses a date bound in any accepted cell format.
func ParseFilterDate(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	d, ok := ParseDate(s)
	if !ok {
		return nil, false
	}
	return &d, true
}

// StudentRef identifies a student.
type StudentRef struct {
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name"`
}

// Students returns the distinct students of t in first-seen order.
func Students(t *Table) []StudentRef {
	seen := make(map[int64]bool)
	var out []StudentRef
	for _, r := range t.Records {
		if seen[r.StudentID] {
			continue
		}
		seen[r.StudentID] = true
		out = append(out, StudentRef{StudentID: r.StudentID, StudentName: r.StudentName})
	}
	return out
}

// Subjects returns the distinct subjects of t in first-seen order.
func Subjects(t *Table) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Records {
		if seen[r.Subject] {
			continue
		}
		seen[r.Subject] = true
		out = append(out, r.Subject)
	}
	return out
}
