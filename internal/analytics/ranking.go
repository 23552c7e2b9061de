package analytics

import (
	"sort"
	"strings"

	"github.com/JonMunkholm/gradebook/internal/core"
)

// StudentRank is one entry of a top-students list.
type StudentRank struct {
	StudentID    int64   `json:"student_id"`
	StudentName  string  `json:"student_name"`
	AverageGrade float64 `json:"average_grade"`
	GradeCount   int     `json:"grade_count"`
}

// StudentAverages returns every student's mean grade in first-seen order,
// optionally restricted to one subject (case-insensitive).
func StudentAverages(t *core.Table, subject string) []StudentRank {
	index := make(map[int64]int)
	var ranks []StudentRank
	var sums []float64

	for _, r := range t.Records {
		if subject != "" && !strings.EqualFold(r.Subject, subject) {
			continue
		}
		i, ok := index[r.StudentID]
		if !ok {
			i = len(ranks)
			index[r.StudentID] = i
			ranks = append(ranks, StudentRank{StudentID: r.StudentID, StudentName: r.StudentName})
			sums = append(sums, 0)
		}
		ranks[i].GradeCount++
		sums[i] += r.Grade
	}

	for i := range ranks {
		ranks[i].AverageGrade = sums[i] / float64(ranks[i].GradeCount)
	}
	return ranks
}

// TopStudents returns up to n students ranked by mean grade, highest first.
// Students with equal means keep their first-seen order.
func TopStudents(t *core.Table, n int, subject string) []StudentRank {
	ranks := StudentAverages(t, subject)
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].AverageGrade > ranks[j].AverageGrade
	})
	if n >= 0 && len(ranks) > n {
		ranks = ranks[:n]
	}
	if ranks == nil {
		ranks = []StudentRank{}
	}
	return ranks
}

// SubjectComparison is one subject's row in a comparison table.
type SubjectComparison struct {
	Subject       string   `json:"subject"`
	AverageGrade  float64  `json:"average_grade"`
	TotalGrades   int      `json:"total_grades"`
	StdGrade      *float64 `json:"std_grade"`
	MinGrade      float64  `json:"min_grade"`
	MaxGrade      float64  `json:"max_grade"`
	TotalStudents int      `json:"total_students"`
}

// CompareSubjects returns per-subject aggregates sorted by mean grade,
// highest first. StdGrade is nil for subjects with a single grade.
func CompareSubjects(t *core.Table) []SubjectComparison {
	index := make(map[string]int)
	var grades [][]float64
	var students []map[int64]struct{}
	out := []SubjectComparison{}

	for _, r := range t.Records {
		i, ok := index[r.Subject]
		if !ok {
			i = len(out)
			index[r.Subject] = i
			out = append(out, SubjectComparison{Subject: r.Subject})
			grades = append(grades, nil)
			students = append(students, make(map[int64]struct{}))
		}
		grades[i] = append(grades[i], r.Grade)
		students[i][r.StudentID] = struct{}{}
	}

	for i := range out {
		s := summarize(grades[i])
		out[i].AverageGrade = s.Mean
		out[i].TotalGrades = s.Count
		out[i].MinGrade = s.Min
		out[i].MaxGrade = s.Max
		out[i].TotalStudents = len(students[i])
		if std, ok := sampleStd(grades[i]); ok {
			out[i].StdGrade = float64p(std)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AverageGrade > out[j].AverageGrade
	})
	return out
}
