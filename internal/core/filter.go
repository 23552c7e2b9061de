package core

// filter.go is the lossy cleanup pass that runs after normalization.
//
// Unlike the validator, which only reports, the filter drops every row that
// cannot satisfy the canonical schema. Checks run only for columns that are
// present; a missing column is the validator's concern.

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/JonMunkholm/gradebook/internal/logging"
)

// gradeKey identifies one grade event once names are merged.
var gradeKey = []string{ColStudentID, ColSubject, ColDate, ColGrade}

// MinPlausibleYear is the earliest accepted grade year.
const MinPlausibleYear = 1900

// sentinels are placeholder strings treated as empty (compared lower-cased).
var sentinels = map[string]bool{
	"":     true,
	"nan":  true,
	"none": true,
	"null": true,
	"n/a":  true,
	"na":   true,
}

// IsSentinel reports whether s is empty or a known placeholder, ignoring case.
func IsSentinel(s string) bool {
	return sentinels[strings.ToLower(strings.TrimSpace(s))]
}

// FilterOptions configures the error filter.
type FilterOptions struct {
	MinGrade float64
	MaxGrade float64

	// Now supplies the current time for the date plausibility window.
	Now func() time.Time
}

// DefaultFilterOptions accepts grades in [0, 100].
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{MinGrade: 0, MaxGrade: 100, Now: time.Now}
}

// Validate reports ErrGradeRange unless MinGrade < MaxGrade.
func (o FilterOptions) Validate() error {
	if math.IsNaN(o.MinGrade) || math.IsNaN(o.MaxGrade) || o.MinGrade >= o.MaxGrade {
		return fmt.Errorf("%w: min %g must be below max %g", ErrGradeRange, o.MinGrade, o.MaxGrade)
	}
	return nil
}

// FilterErrors returns a new Frame holding only rows whose cells satisfy the
// canonical schema. Student names are merged per id, rows repeating a
// (student_id, subject, date, grade) event are dropped and the rest are
// sorted by (date, student_id, subject).
func FilterErrors(ctx context.Context, in *Frame, opts FilterOptions) *Frame {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	maxYear := opts.Now().Year() + 1

	out := &Frame{Columns: append([]string(nil), in.Columns...)}
	for _, row := range in.Rows {
		if !allMissing(row) {
			out.Rows = append(out.Rows, append([]Value(nil), row...))
		}
	}
	out.dropDuplicates()

	iID, iName, iSubj := out.Index(ColStudentID), out.Index(ColStudentName), out.Index(ColSubject)
	iGrade, iDate := out.Index(ColGrade), out.Index(ColDate)
	optional := []int{out.Index(ColTeacher), out.Index(ColAssignment), out.Index(ColNotes)}

	kept := out.Rows[:0]
	for _, row := range out.Rows {
		if iID >= 0 {
			n, ok := row[iID].AsNumber()
			id := math.Trunc(n)
			if !ok || id <= 0 || id > math.MaxInt64/2 {
				continue
			}
			row[iID] = NumberValue(id)
		}
		if !keepText(row, iName) || !keepText(row, iSubj) {
			continue
		}
		if iGrade >= 0 {
			g, ok := row[iGrade].AsNumber()
			if !ok || g < opts.MinGrade || g > opts.MaxGrade {
				continue
			}
			row[iGrade] = NumberValue(g)
		}
		if iDate >= 0 {
			d, ok := row[iDate].AsDate()
			if !ok || d.Year() < MinPlausibleYear || d.Year() > maxYear {
				continue
			}
			row[iDate] = DateValue(d)
		}
		for _, i := range optional {
			if i >= 0 && IsSentinel(row[i].String()) {
				row[i] = Missing
			}
		}
		kept = append(kept, row)
	}
	out.Rows = kept

	mergeStudentNames(out)
	out.dropDuplicatesOn(gradeKey...)
	sortCanonical(out)

	if removed := in.Len() - out.Len(); removed > 0 {
		logging.FromContext(ctx).Info("filtered invalid rows",
			"rows_removed", removed,
			"before", in.Len(),
			"after", out.Len(),
		)
	}
	return out
}

// keepText trims the cell at i in place and reports whether it is usable.
// Absent columns (i < 0) always pass.
func keepText(row []Value, i int) bool {
	if i < 0 {
		return true
	}
	s := strings.TrimSpace(row[i].String())
	if IsSentinel(s) {
		return false
	}
	row[i] = TextValue(s)
	return true
}

func allMissing(row []Value) bool {
	for _, v := range row {
		if !v.IsMissing() {
			return false
		}
	}
	return true
}

// mergeStudentNames rewrites every student_name to the most frequent name
// seen for that student_id (ties go to the first encountered), title-cased.
func mergeStudentNames(f *Frame) {
	iID, iName := f.Index(ColStudentID), f.Index(ColStudentName)
	if iID < 0 || iName < 0 {
		return
	}

	type tally struct {
		counts map[string]int
		order  []string
	}
	byID := make(map[float64]*tally)
	for _, row := range f.Rows {
		id, name := row[iID].Num, row[iName].String()
		t, ok := byID[id]
		if !ok {
			t = &tally{counts: make(map[string]int)}
			byID[id] = t
		}
		if t.counts[name] == 0 {
			t.order = append(t.order, name)
		}
		t.counts[name]++
	}

	canonical := make(map[float64]string, len(byID))
	for id, t := range byID {
		best := t.order[0]
		for _, name := range t.order[1:] {
			if t.counts[name] > t.counts[best] {
				best = name
			}
		}
		canonical[id] = TitleCase(best)
	}

	for _, row := range f.Rows {
		row[iName] = TextValue(canonical[row[iID].Num])
	}
}

// TitleCase upper-cases the first letter of every run of letters and
// lower-cases the rest, so "o'neil" becomes "O'Neil".
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

// sortCanonical stably sorts by date, then student_id, then subject,
// using whichever of those columns are present.
func sortCanonical(f *Frame) {
	iDate, iID, iSubj := f.Index(ColDate), f.Index(ColStudentID), f.Index(ColSubject)
	sort.SliceStable(f.Rows, func(a, b int) bool {
		ra, rb := f.Rows[a], f.Rows[b]
		if iDate >= 0 && !ra[iDate].Date.Equal(rb[iDate].Date) {
			return dateLess(ra[iDate], rb[iDate])
		}
		if iID >= 0 && ra[iID].Num != rb[iID].Num {
			return ra[iID].Num < rb[iID].Num
		}
		if iSubj >= 0 {
			return ra[iSubj].String() < rb[iSubj].String()
		}
		return false
	})
}
