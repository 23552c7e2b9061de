// Package analytics computes descriptive statistics over a cleaned grade table.
//
// Every function is pure: it reads the table and never mutates it. Groupings
// (subjects, students) are reported in first-seen order unless a function
// documents a ranking.
package analytics

import (
	"strings"

	"github.com/JonMunkholm/gradebook/internal/core"
)

// DateRange is the span of record dates, formatted YYYY-MM-DD.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Statistics summarizes a whole table.
type Statistics struct {
	TotalStudents int        `json:"total_students"`
	TotalGrades   int        `json:"total_grades"`
	TotalSubjects int        `json:"total_subjects"`
	AverageGrade  float64    `json:"average_grade"`
	MedianGrade   *float64   `json:"median_grade,omitempty"`
	MinGrade      *float64   `json:"min_grade,omitempty"`
	MaxGrade      *float64   `json:"max_grade,omitempty"`
	StdGrade      *float64   `json:"std_grade,omitempty"`
	DateRange     *DateRange `json:"date_range"`
}

// Calculate returns the overall statistics of t. For an empty table the
// counts and average are zero, the other grade fields are omitted and the
// date range is null.
func Calculate(t *core.Table) Statistics {
	if t.Empty() {
		return Statistics{}
	}

	students := make(map[int64]struct{})
	subjects := make(map[string]struct{})
	grades := make([]float64, 0, t.Len())
	for _, r := range t.Records {
		students[r.StudentID] = struct{}{}
		subjects[r.Subject] = struct{}{}
		grades = append(grades, r.Grade)
	}

	s := summarize(grades)
	stats := Statistics{
		TotalStudents: len(students),
		TotalGrades:   t.Len(),
		TotalSubjects: len(subjects),
		AverageGrade:  s.Mean,
		MedianGrade:   float64p(s.Median),
		MinGrade:      float64p(s.Min),
		MaxGrade:      float64p(s.Max),
		StdGrade:      float64p(s.Std),
	}
	if min, max, ok := t.DateRange(); ok {
		stats.DateRange = &DateRange{Start: min.String(), End: max.String()}
	}
	return stats
}

// SubjectGrades is one subject's slice of a student's record.
type SubjectGrades struct {
	Subject      string    `json:"subject"`
	AverageGrade float64   `json:"average_grade"`
	TotalGrades  int       `json:"total_grades"`
	Grades       []float64 `json:"grades"`
}

// StudentStatistics summarizes one student.
type StudentStatistics struct {
	StudentID    int64           `json:"student_id"`
	StudentName  *string         `json:"student_name"`
	TotalGrades  int             `json:"total_grades"`
	AverageGrade float64         `json:"average_grade"`
	MedianGrade  *float64        `json:"median_grade,omitempty"`
	MinGrade     *float64        `json:"min_grade,omitempty"`
	MaxGrade     *float64        `json:"max_grade,omitempty"`
	Subjects     []SubjectGrades `json:"subjects"`
}

// Found reports whether the student has any grades.
func (s StudentStatistics) Found() bool {
	return s.TotalGrades > 0
}

// ForStudent returns the statistics of one student. An unknown id yields
// TotalGrades 0 and a nil name.
func ForStudent(t *core.Table, studentID int64) StudentStatistics {
	out := StudentStatistics{StudentID: studentID, Subjects: []SubjectGrades{}}

	var grades []float64
	bySubject := make(map[string]int)
	for _, r := range t.Records {
		if r.StudentID != studentID {
			continue
		}
		if out.StudentName == nil {
			name := r.StudentName
			out.StudentName = &name
		}
		grades = append(grades, r.Grade)

		i, ok := bySubject[r.Subject]
		if !ok {
			i = len(out.Subjects)
			bySubject[r.Subject] = i
			out.Subjects = append(out.Subjects, SubjectGrades{Subject: r.Subject})
		}
		out.Subjects[i].Grades = append(out.Subjects[i].Grades, r.Grade)
	}

	if len(grades) == 0 {
		return out
	}

	for i := range out.Subjects {
		sg := &out.Subjects[i]
		sg.TotalGrades = len(sg.Grades)
		sg.AverageGrade = mean(sg.Grades)
	}

	s := summarize(grades)
	out.TotalGrades = s.Count
	out.AverageGrade = s.Mean
	out.MedianGrade = float64p(s.Median)
	out.MinGrade = float64p(s.Min)
	out.MaxGrade = float64p(s.Max)
	return out
}

// SubjectStatistics summarizes one subject, or every subject when the label
// is "all".
type SubjectStatistics struct {
	Subject       string   `json:"subject"`
	TotalStudents int      `json:"total_students"`
	TotalGrades   int      `json:"total_grades"`
	AverageGrade  float64  `json:"average_grade"`
	MedianGrade   *float64 `json:"median_grade,omitempty"`
	MinGrade      *float64 `json:"min_grade,omitempty"`
	MaxGrade      *float64 `json:"max_grade,omitempty"`
	StdGrade      *float64 `json:"std_grade,omitempty"`
}

// ForSubject returns statistics for subject, matched case-insensitively.
// An empty subject covers the whole table.
func ForSubject(t *core.Table, subject string) SubjectStatistics {
	label := subject
	if label == "" {
		label = "all"
	}
	out := SubjectStatistics{Subject: label}

	students := make(map[int64]struct{})
	var grades []float64
	for _, r := range t.Records {
		if subject != "" && !strings.EqualFold(r.Subject, subject) {
			continue
		}
		students[r.StudentID] = struct{}{}
		grades = append(grades, r.Grade)
	}
	if len(grades) == 0 {
		return out
	}

	s := summarize(grades)
	out.TotalStudents = len(students)
	out.TotalGrades = s.Count
	out.AverageGrade = s.Mean
	out.MedianGrade = float64p(s.Median)
	out.MinGrade = float64p(s.Min)
	out.MaxGrade = float64p(s.Max)
	out.StdGrade = float64p(s.Std)
	return out
}
