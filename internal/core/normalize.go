package core

// normalize.go maps an arbitrary raw Frame onto the canonical schema.
//
// Every accepted header spelling is listed in columnSynonyms.

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/JonMunkholm/gradebook/internal/logging"
)

var (
	separatorRun = regexp.MustCompile(`[\s\-\.]+`)
	nonWord      = regexp.MustCompile(`[^\p{L}\p{N}_]`)
	underscores  = regexp.MustCompile(`_+`)
)

// columnSynonyms maps normalized header spellings to canonical column names.
var columnSynonyms = map[string]string{
	"studentid":     ColStudentID,
	"student_id":    ColStudentID,
	"id":            ColStudentID,
	"studentname":   ColStudentName,
	"student_name":  ColStudentName,
	"name":          ColStudentName,
	"full_name":     ColStudentName,
	"subject":       ColSubject,
	"course":        ColSubject,
	"discipline":    ColSubject,
	"grade":         ColGrade,
	"score":         ColGrade,
	"mark":          ColGrade,
	"rating":        ColGrade,
	"date":          ColDate,
	"date_":         ColDate,
	"date_of_grade": ColDate,
	"grade_date":    ColDate,
	"teacher":       ColTeacher,
	"instructor":    ColTeacher,
	"assignment":    ColAssignment,
	"task":          ColAssignment,
	"notes":         ColNotes,
	"note":          ColNotes,
	"comment":       ColNotes,
}

// NormalizeColumnName lower-cases a header, collapses separators and
// punctuation to single underscores and applies the synonym table.
// Unknown names are returned in their normalized form.
func NormalizeColumnName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = separatorRun.ReplaceAllString(s, "_")
	s = nonWord.ReplaceAllString(s, "_")
	s = underscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if canonical, ok := columnSynonyms[s]; ok {
		return canonical
	}
	return s
}

// Normalize returns a new Frame restricted to canonical columns with
// student_id and grade coerced to numbers, date coerced to dates, text
// trimmed, exact duplicates removed and rows stably sorted by date.
// Unparseable numbers and dates become Missing.
func Normalize(ctx context.Context, raw *Frame) *Frame {
	logger := logging.FromContext(ctx)

	// Map headers; the first source column claiming a canonical name wins.
	var (
		keep    []int
		columns []string
		claimed = make(map[string]bool)
	)
	for i, col := range raw.Columns {
		name := NormalizeColumnName(col)
		if !IsCanonical(name) {
			logger.Debug("dropping non-canonical column", "column", col)
			continue
		}
		if claimed[name] {
			logger.Debug("dropping duplicate column", "column", col, "canonical", name)
			continue
		}
		claimed[name] = true
		keep = append(keep, i)
		columns = append(columns, name)
	}

	out := &Frame{Columns: columns, Rows: make([][]Value, 0, len(raw.Rows))}
	for _, src := range raw.Rows {
		row := make([]Value, len(keep))
		for j, i := range keep {
			row[j] = coerce(columns[j], src[i])
		}
		out.Rows = append(out.Rows, row)
	}

	if removed := out.dropDuplicates(); removed > 0 {
		logger.Debug("dropped duplicate rows", "count", removed)
	}

	if di := out.Index(ColDate); di >= 0 {
		sort.SliceStable(out.Rows, func(a, b int) bool {
			return dateLess(out.Rows[a][di], out.Rows[b][di])
		})
	}

	logger.Debug("normalized columns", "columns", columns)
	return out
}

// coerce converts one raw cell according to its canonical column.
func coerce(column string, v Value) Value {
	if v.IsMissing() {
		return v
	}
	switch column {
	case ColStudentID, ColGrade:
		if n, ok := v.AsNumber(); ok {
			return NumberValue(n)
		}
		return Missing
	case ColDate:
		if d, ok := v.AsDate(); ok {
			return DateValue(d)
		}
		return Missing
	default:
		return TextValue(CleanCell(v.String()))
	}
}

// dateLess orders dates ascending with Missing last.
func dateLess(a, b Value) bool {
	if a.IsMissing() {
		return false
	}
	if b.IsMissing() {
		return true
	}
	return a.Date.Before(b.Date)
}
