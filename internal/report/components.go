package report

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

const pageStyle = `body{font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;max-width:1200px;margin:0 auto;padding:20px;background:#f5f5f5}
.header{background:linear-gradient(135deg,#667eea 0%,#764ba2 100%);color:#fff;padding:30px;border-radius:10px;margin-bottom:30px}
.header h1{margin:0;font-size:2.5em}.header p{margin:10px 0 0;opacity:.9}
.stats-grid{display:grid;grid-template-columns:repeat(auto-fit,minmax(250px,1fr));gap:20px;margin-bottom:30px}
.stat-card,.section{background:#fff;padding:20px;border-radius:10px;box-shadow:0 2px 4px rgba(0,0,0,.1)}
.stat-card h3{margin:0 0 10px;color:#333;font-size:.9em;text-transform:uppercase;letter-spacing:1px}
.stat-card .value{font-size:2.5em;font-weight:bold;color:#667eea;margin:0}
.section{margin-bottom:30px}.section h2{color:#333;border-bottom:3px solid #667eea;padding-bottom:10px;margin-top:0}
table{width:100%;border-collapse:collapse;margin-top:20px}th,td{padding:12px;text-align:left;border-bottom:1px solid #ddd}
th{background:#667eea;color:#fff}.footer{text-align:center;color:#666;margin-top:40px;padding-top:20px;border-top:1px solid #ddd}
.no-data{text-align:center;padding:60px;color:#666}`

// Page is the full HTML document.
func Page(r Report) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="UTF-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1.0">`+
			`<title>Student Performance Report</title><style>`+pageStyle+`</style></head><body>`); err != nil {
			return err
		}

		parts := []templ.Component{header(r)}
		if r.HasData {
			parts = append(parts, statsGrid(r), subjectSection(r), topSection(r), studentSection(r))
		} else {
			parts = append(parts, noData())
		}
		parts = append(parts, footer(r))

		for _, c := range parts {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

func header(r Report) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="header"><h1>Student Performance Report</h1><p>Generated %s</p></div>`,
			templ.EscapeString(r.GeneratedAt.Format("2006-01-02 15:04:05")))
		return err
	})
}

func noData() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div class="section no-data"><h2>No data</h2>`+
			`<p>No grade data is available yet. Import a CSV or Excel file to build the report.</p></div>`)
		return err
	})
}

func statsGrid(r Report) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		cards := [][2]string{
			{"Students", strconv.Itoa(r.Stats.TotalStudents)},
			{"Grades", strconv.Itoa(r.Stats.TotalGrades)},
			{"Subjects", strconv.Itoa(r.Stats.TotalSubjects)},
			{"Average grade", grade(r.Stats.AverageGrade)},
		}
		if r.Stats.DateRange != nil {
			cards = append(cards, [2]string{"Period", r.Stats.DateRange.Start + " / " + r.Stats.DateRange.End})
		}

		if _, err := io.WriteString(w, `<div class="stats-grid">`); err != nil {
			return err
		}
		for _, c := range cards {
			if _, err := fmt.Fprintf(w, `<div class="stat-card"><h3>%s</h3><p class="value">%s</p></div>`,
				templ.EscapeString(c[0]), templ.EscapeString(c[1])); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

func subjectSection(r Report) templ.Component {
	rows := make([][]string, 0, len(r.Subjects))
	for _, s := range r.Subjects {
		std := "-"
		if s.StdGrade != nil {
			std = grade(*s.StdGrade)
		}
		rows = append(rows, []string{
			s.Subject, grade(s.AverageGrade), strconv.Itoa(s.TotalGrades), std,
			grade(s.MinGrade), grade(s.MaxGrade), strconv.Itoa(s.TotalStudents),
		})
	}
	return section("Subjects",
		[]string{"Subject", "Average", "Grades", "Std dev", "Min", "Max", "Students"}, rows)
}

func topSection(r Report) templ.Component {
	rows := make([][]string, 0, len(r.Top))
	for i, s := range r.Top {
		rows = append(rows, []string{
			strconv.Itoa(i + 1), s.StudentName, grade(s.AverageGrade), strconv.Itoa(s.GradeCount),
		})
	}
	return section(fmt.Sprintf("Top %d students", DefaultTopN),
		[]string{"#", "Student", "Average", "Grades"}, rows)
}

func studentSection(r Report) templ.Component {
	rows := make([][]string, 0, len(r.Students))
	for _, s := range r.Students {
		rows = append(rows, []string{
			strconv.FormatInt(s.StudentID, 10), s.StudentName, grade(s.AverageGrade),
			strconv.Itoa(s.TotalGrades), strconv.Itoa(s.Subjects),
		})
	}
	return section("Students",
		[]string{"ID", "Student", "Average", "Grades", "Subjects"}, rows)
}

// section renders a titled table. All cells are escaped.
func section(title string, head []string, rows [][]string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div class="section"><h2>%s</h2><table><thead><tr>`, templ.EscapeString(title)); err != nil {
			return err
		}
		for _, h := range head {
			if _, err := fmt.Fprintf(w, `<th>%s</th>`, templ.EscapeString(h)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</tr></thead><tbody>`); err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := io.WriteString(w, `<tr>`); err != nil {
				return err
			}
			for _, cell := range row {
				if _, err := fmt.Fprintf(w, `<td>%s</td>`, templ.EscapeString(cell)); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</tr>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table></div>`)
		return err
	})
}

func footer(r Report) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="footer"><p>%d grades from %d students</p></div>`,
			r.Stats.TotalGrades, r.Stats.TotalStudents)
		return err
	})
}

func grade(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
