// Package report renders a standalone HTML performance report.
package report

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/JonMunkholm/gradebook/internal/analytics"
	"github.com/JonMunkholm/gradebook/internal/core"
)

// DefaultTopN is the number of students listed in the ranking section.
const DefaultTopN = 10

// StudentSummary is one row of the per-student section.
type StudentSummary struct {
	StudentID    int64
	StudentName  string
	AverageGrade float64
	TotalGrades  int
	Subjects     int
}

// Report is everything the HTML page shows.
type Report struct {
	GeneratedAt time.Time
	HasData     bool
	Stats       analytics.Statistics
	Subjects    []analytics.SubjectComparison
	Top         []analytics.StudentRank
	Students    []StudentSummary
}

// Build computes the report for t.
func Build(t *core.Table, now time.Time) Report {
	r := Report{GeneratedAt: now, HasData: !t.Empty()}
	if !r.HasData {
		return r
	}

	r.Stats = analytics.Calculate(t)
	r.Subjects = analytics.CompareSubjects(t)
	r.Top = analytics.TopStudents(t, DefaultTopN, "")

	for _, ref := range core.Students(t) {
		s := analytics.ForStudent(t, ref.StudentID)
		r.Students = append(r.Students, StudentSummary{
			StudentID:    ref.StudentID,
			StudentName:  ref.StudentName,
			AverageGrade: s.AverageGrade,
			TotalGrades:  s.TotalGrades,
			Subjects:     len(s.Subjects),
		})
	}
	sort.SliceStable(r.Students, func(i, j int) bool {
		return r.Students[i].StudentID < r.Students[j].StudentID
	})
	return r
}

// Render writes the report page to w.
func Render(ctx context.Context, w io.Writer, r Report) error {
	return Page(r).Render(ctx, w)
}
