package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/gradebook/internal/core"
)

// Period is a trend aggregation bucket.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod maps s to a Period. Unknown values fall back to month.
func ParsePeriod(s string) Period {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return p
	default:
		return PeriodMonth
	}
}

// TrendQuery narrows a trend to a student and/or subject.
type TrendQuery struct {
	StudentID *int64
	Subject   string
	Period    Period
}

// TrendPoint is the aggregate of one period.
type TrendPoint struct {
	Period       string   `json:"period"`
	AverageGrade float64  `json:"average_grade"`
	GradeCount   int      `json:"grade_count"`
	StdGrade     *float64 `json:"std_grade"`
}

// Trend groups matching records by period and returns one point per period,
// ordered chronologically. StdGrade is nil for single-grade periods.
func Trend(t *core.Table, q TrendQuery) []TrendPoint {
	period := q.Period
	if period == "" {
		period = PeriodMonth
	}

	type bucket struct {
		start  time.Time
		label  string
		grades []float64
	}
	buckets := make(map[string]*bucket)

	for _, r := range t.Records {
		if q.StudentID != nil && r.StudentID != *q.StudentID {
			continue
		}
		if q.Subject != "" && !strings.EqualFold(r.Subject, q.Subject) {
			continue
		}
		start, label := periodOf(r.Date.Time, period)
		b, ok := buckets[label]
		if !ok {
			b = &bucket{start: start, label: label}
			buckets[label] = b
		}
		b.grades = append(b.grades, r.Grade)
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].start.Before(ordered[j].start)
	})

	points := make([]TrendPoint, 0, len(ordered))
	for _, b := range ordered {
		p := TrendPoint{
			Period:       b.label,
			AverageGrade: mean(b.grades),
			GradeCount:   len(b.grades),
		}
		if std, ok := sampleStd(b.grades); ok {
			p.StdGrade = float64p(std)
		}
		points = append(points, p)
	}
	return points
}

// periodOf returns the first day of the period containing d and its label.
// Weeks run Monday to Sunday and are labelled "start/end".
func periodOf(d time.Time, p Period) (time.Time, string) {
	y, m, day := d.Date()
	switch p {
	case PeriodDay:
		start := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
		return start, start.Format(core.DateLayout)
	case PeriodWeek:
		offset := (int(d.Weekday()) + 6) % 7
		start := time.Date(y, m, day-offset, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 0, 6)
		return start, fmt.Sprintf("%s/%s", start.Format(core.DateLayout), end.Format(core.DateLayout))
	case PeriodYear:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.Format("2006")
	default:
		start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		return start, start.Format("2006-01")
	}
}
