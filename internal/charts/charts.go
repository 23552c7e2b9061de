package charts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/gradebook/internal/analytics"
	"github.com/JonMunkholm/gradebook/internal/core"
)

// Kind names a figure requested over the API.
type Kind string

const (
	KindDistribution Kind = "distribution"
	KindTrend        Kind = "trend"
	KindComparison   Kind = "comparison"
	KindHeatmap      Kind = "heatmap"
	KindBox          Kind = "box"
	KindDashboard    Kind = "dashboard"
)

// ParseKind maps s to a Kind. Unknown or empty values select the dashboard.
func ParseKind(s string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindDistribution, KindTrend, KindComparison, KindHeatmap, KindBox:
		return k
	default:
		return KindDashboard
	}
}

// Scope names the student and subject a table was narrowed to, for titles.
type Scope struct {
	StudentID *int64
	Subject   string
}

// Distribution is a 20-bin histogram of all grades.
func Distribution(t *core.Table, opts Options) Figure {
	if t.Empty() {
		return Empty()
	}

	grades := make([]float64, 0, t.Len())
	for _, r := range t.Records {
		grades = append(grades, r.Grade)
	}

	return Figure{
		Data: []Trace{{
			Type:    "histogram",
			Name:    "Grade distribution",
			X:       grades,
			NBinsX:  20,
			Marker:  &Marker{Color: "#3498db"},
			Opacity: 0.7,
		}},
		Layout: Layout{
			Title:     "Grade distribution",
			XAxis:     &Axis{Title: "Grade"},
			YAxis:     &Axis{Title: "Count"},
			Template:  plotTemplate,
			HoverMode: "x unified",
		},
	}
}

// Trend plots mean grades per period (monthly unless opts.Period is set),
// narrowed to scope.
func Trend(t *core.Table, scope Scope, opts Options) Figure {
	points := analytics.Trend(t, analytics.TrendQuery{
		StudentID: scope.StudentID,
		Subject:   scope.Subject,
		Period:    opts.period(),
	})
	if len(points) == 0 {
		return Empty()
	}

	months := make([]string, len(points))
	means := make([]float64, len(points))
	for i, p := range points {
		months[i] = p.Period
		means[i] = p.AverageGrade
	}

	title := "Performance trend"
	if scope.StudentID != nil {
		title += " - " + studentLabel(t, *scope.StudentID)
	}
	if scope.Subject != "" {
		title += " - " + scope.Subject
	}

	return Figure{
		Data: []Trace{{
			Type:   "scatter",
			Name:   "Average grade",
			X:      months,
			Y:      means,
			Mode:   "lines+markers",
			Line:   &Line{Color: "#2ecc71", Width: 2},
			Marker: &Marker{Size: 8},
		}},
		Layout: Layout{
			Title:     title,
			XAxis:     &Axis{Title: "Period", TickAngle: -45},
			YAxis:     opts.gradeAxis("Average grade"),
			Template:  plotTemplate,
			HoverMode: "x unified",
		},
	}
}

// SubjectComparison is a bar chart of subject means, highest first.
func SubjectComparison(t *core.Table, opts Options) Figure {
	cmp := analytics.CompareSubjects(t)
	if len(cmp) == 0 {
		return Empty()
	}

	subjects := make([]string, len(cmp))
	means := make([]float64, len(cmp))
	labels := make([]float64, len(cmp))
	for i, c := range cmp {
		subjects[i] = c.Subject
		means[i] = c.AverageGrade
		labels[i] = round2(c.AverageGrade)
	}

	return Figure{
		Data: []Trace{{
			Type:         "bar",
			Name:         "Average grade",
			X:            subjects,
			Y:            means,
			Text:         labels,
			TextPosition: "auto",
			Marker:       &Marker{Color: "#9b59b6"},
		}},
		Layout: Layout{
			Title:     "Average grade by subject",
			XAxis:     &Axis{Title: "Subject"},
			YAxis:     opts.gradeAxis("Average grade"),
			Template:  plotTemplate,
			HoverMode: "x unified",
		},
	}
}

// StudentComparison is a bar chart of the top students by mean grade.
func StudentComparison(t *core.Table, subject string, opts Options) Figure {
	n := opts.topN()
	top := analytics.TopStudents(t, n, subject)
	if len(top) == 0 {
		return Empty()
	}

	names := make([]string, len(top))
	means := make([]float64, len(top))
	labels := make([]float64, len(top))
	for i, s := range top {
		names[i] = s.StudentName
		means[i] = s.AverageGrade
		labels[i] = round2(s.AverageGrade)
	}

	title := fmt.Sprintf("Top %d students", n)
	if subject != "" {
		title += " - " + subject
	}

	return Figure{
		Data: []Trace{{
			Type:         "bar",
			Name:         "Average grade",
			X:            names,
			Y:            means,
			Text:         labels,
			TextPosition: "auto",
			Marker:       &Marker{Color: "#e74c3c"},
		}},
		Layout: Layout{
			Title:     title,
			XAxis:     &Axis{Title: "Student", TickAngle: -45},
			YAxis:     opts.gradeAxis("Average grade"),
			Template:  plotTemplate,
			HoverMode: "x unified",
		},
	}
}

// Heatmap shows the mean grade of each subject per month. Subjects and
// months are sorted; cells without grades are null.
func Heatmap(t *core.Table, scope Scope, opts Options) Figure {
	type cell struct {
		sum   float64
		count int
	}
	cells := make(map[[2]string]*cell)
	subjectSet := make(map[string]struct{})
	monthSet := make(map[string]struct{})

	for _, r := range t.Records {
		if scope.StudentID != nil && r.StudentID != *scope.StudentID {
			continue
		}
		month := r.Date.Format("2006-01")
		key := [2]string{r.Subject, month}
		c, ok := cells[key]
		if !ok {
			c = &cell{}
			cells[key] = c
		}
		c.sum += r.Grade
		c.count++
		subjectSet[r.Subject] = struct{}{}
		monthSet[month] = struct{}{}
	}
	if len(cells) == 0 {
		return Empty()
	}

	subjects := sortedKeys(subjectSet)
	months := sortedKeys(monthSet)

	z := make([][]*float64, len(subjects))
	text := make([][]*float64, len(subjects))
	for i, s := range subjects {
		z[i] = make([]*float64, len(months))
		text[i] = make([]*float64, len(months))
		for j, m := range months {
			if c, ok := cells[[2]string{s, m}]; ok {
				mean := c.sum / float64(c.count)
				rounded := round2(mean)
				z[i][j] = &mean
				text[i][j] = &rounded
			}
		}
	}

	title := "Performance heatmap"
	if scope.StudentID != nil {
		title += " - " + studentLabel(t, *scope.StudentID)
	}

	return Figure{
		Data: []Trace{{
			Type:         "heatmap",
			X:            months,
			Y:            subjects,
			Z:            z,
			Text:         text,
			TextTemplate: "%{text}",
			TextFont:     &TextFont{Size: 10},
			ColorScale:   "RdYlGn",
			ColorBar:     &ColorBar{Title: "Grade"},
		}},
		Layout: Layout{
			Title:    title,
			XAxis:    &Axis{Title: "Period"},
			YAxis:    &Axis{Title: "Subject"},
			Template: plotTemplate,
		},
	}
}

// Box draws one box trace per subject in first-seen order.
func Box(t *core.Table, opts Options) Figure {
	var order []string
	bySubject := make(map[string][]float64)
	for _, r := range t.Records {
		if _, ok := bySubject[r.Subject]; !ok {
			order = append(order, r.Subject)
		}
		bySubject[r.Subject] = append(bySubject[r.Subject], r.Grade)
	}
	if len(order) == 0 {
		return Empty()
	}

	traces := make([]Trace, 0, len(order))
	for _, s := range order {
		traces = append(traces, Trace{
			Type:    "box",
			Name:    s,
			Y:       bySubject[s],
			BoxMean: "sd",
		})
	}

	return Figure{
		Data: traces,
		Layout: Layout{
			Title:     "Grade distribution by subject",
			XAxis:     &Axis{Title: "Subject"},
			YAxis:     opts.gradeAxis("Grade"),
			Template:  plotTemplate,
			HoverMode: "x unified",
		},
	}
}

// Comparison bundles both comparison charts.
type Comparison struct {
	SubjectComparison Figure `json:"subject_comparison"`
	StudentComparison Figure `json:"student_comparison"`
}

// Dashboard bundles every figure.
type Dashboard struct {
	GradeDistribution Figure `json:"grade_distribution"`
	PerformanceTrend  Figure `json:"performance_trend"`
	SubjectComparison Figure `json:"subject_comparison"`
	StudentComparison Figure `json:"student_comparison"`
	SubjectHeatmap    Figure `json:"subject_heatmap"`
	BoxPlot           Figure `json:"box_plot"`
}

// BuildDashboard builds all six figures.
func BuildDashboard(t *core.Table, scope Scope, opts Options) Dashboard {
	return Dashboard{
		GradeDistribution: Distribution(t, opts),
		PerformanceTrend:  Trend(t, scope, opts),
		SubjectComparison: SubjectComparison(t, opts),
		StudentComparison: StudentComparison(t, scope.Subject, opts),
		SubjectHeatmap:    Heatmap(t, scope, opts),
		BoxPlot:           Box(t, opts),
	}
}

// Build returns the payload for kind: a Figure, a Comparison or a Dashboard.
func Build(kind Kind, t *core.Table, scope Scope, opts Options) any {
	switch kind {
	case KindDistribution:
		return Distribution(t, opts)
	case KindTrend:
		return Trend(t, scope, opts)
	case KindComparison:
		return Comparison{
			SubjectComparison: SubjectComparison(t, opts),
			StudentComparison: StudentComparison(t, scope.Subject, opts),
		}
	case KindHeatmap:
		return Heatmap(t, scope, opts)
	case KindBox:
		return Box(t, opts)
	default:
		return BuildDashboard(t, scope, opts)
	}
}

func studentLabel(t *core.Table, id int64) string {
	for _, r := range t.Records {
		if r.StudentID == id {
			return r.StudentName
		}
	}
	return fmt.Sprintf("Student %d", id)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
