package core

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

var fixedNow = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

func testFilterOptions() FilterOptions {
	opts := DefaultFilterOptions()
	opts.Now = fixedNow
	return opts
}

// cleaned runs a raw frame through normalization and filtering.
func cleaned(header []string, rows [][]string) *Frame {
	ctx := context.Background()
	return FilterErrors(ctx, Normalize(ctx, NewFrame(header, rows)), testFilterOptions())
}

var gradeHeader = []string{"student_id", "student_name", "subject", "grade", "date"}

func TestFilterErrors_GradeBoundary(t *testing.T) {
	got := cleaned(gradeHeader, [][]string{
		{"1", "Anna", "Math", "-1", "2024-01-10"},
		{"2", "Boris", "Math", "101", "2024-01-11"},
		{"3", "Clara", "Math", "100", "2024-01-12"},
		{"4", "Dmitri", "Math", "0", "2024-01-13"},
	})

	if got.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", got.Len())
	}
	gi := got.Index(ColGrade)
	if g := got.Rows[0][gi].Num; g != 100 {
		t.Errorf("first kept grade = %v, want 100", g)
	}
	if g := got.Rows[1][gi].Num; g != 0 {
		t.Errorf("second kept grade = %v, want 0", g)
	}
}

func TestFilterErrors_ConfigurableGradeRange(t *testing.T) {
	opts := testFilterOptions()
	opts.MinGrade, opts.MaxGrade = 1, 5

	ctx := context.Background()
	raw := NewFrame(gradeHeader, [][]string{
		{"1", "Anna", "Math", "5", "2024-01-10"},
		{"2", "Boris", "Math", "6", "2024-01-10"},
		{"3", "Clara", "Math", "0.5", "2024-01-10"},
	})
	got := FilterErrors(ctx, Normalize(ctx, raw), opts)

	if got.Len() != 1 {
		t.Errorf("Len() = %d, want 1", got.Len())
	}
}

func TestFilterErrors_DropsInvalidRows(t *testing.T) {
	tests := []struct {
		name string
		row  []string
	}{
		{name: "missing student id", row: []string{"", "Anna", "Math", "50", "2024-01-10"}},
		{name: "zero student id", row: []string{"0", "Anna", "Math", "50", "2024-01-10"}},
		{name: "negative student id", row: []string{"-3", "Anna", "Math", "50", "2024-01-10"}},
		{name: "fractional id below one", row: []string{"0.7", "Anna", "Math", "50", "2024-01-10"}},
		{name: "sentinel name", row: []string{"1", "N/A", "Math", "50", "2024-01-10"}},
		{name: "null subject", row: []string{"1", "Anna", "null", "50", "2024-01-10"}},
		{name: "nan subject", row: []string{"1", "Anna", "NaN", "50", "2024-01-10"}},
		{name: "unparseable grade", row: []string{"1", "Anna", "Math", "A+", "2024-01-10"}},
		{name: "unparseable date", row: []string{"1", "Anna", "Math", "50", "tomorrow"}},
		{name: "date before 1900", row: []string{"1", "Anna", "Math", "50", "1899-12-31"}},
		{name: "date after next year", row: []string{"1", "Anna", "Math", "50", "2026-01-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cleaned(gradeHeader, [][]string{tt.row})
			if got.Len() != 0 {
				t.Errorf("Len() = %d, want 0 for %v", got.Len(), tt.row)
			}
		})
	}
}

func TestFilterErrors_KeepsBoundaryDates(t *testing.T) {
	got := cleaned(gradeHeader, [][]string{
		{"1", "Anna", "Math", "50", "1900-01-01"},
		{"2", "Boris", "Math", "50", "2025-12-31"},
	})
	if got.Len() != 2 {
		t.Errorf("Len() = %d, want 2", got.Len())
	}
}

func TestFilterErrors_TruncatesStudentID(t *testing.T) {
	got := cleaned(gradeHeader, [][]string{
		{"7.9", "Anna", "Math", "50", "2024-01-10"},
	})
	if got.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", got.Len())
	}
	if id := got.Rows[0][got.Index(ColStudentID)].Num; id != 7 {
		t.Errorf("student_id = %v, want 7", id)
	}
}

func TestFilterErrors_OptionalSentinelsBecomeMissing(t *testing.T) {
	header := append(append([]string(nil), gradeHeader...), "teacher", "notes")
	got := cleaned(header, [][]string{
		{"1", "Anna", "Math", "50", "2024-01-10", "none", "good work"},
	})
	if got.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (optional sentinels never drop a row)", got.Len())
	}
	if v := got.Rows[0][got.Index(ColTeacher)]; !v.IsMissing() {
		t.Errorf("teacher = %+v, want Missing", v)
	}
	if v := got.Rows[0][got.Index(ColNotes)].String(); v != "good work" {
		t.Errorf("notes = %q, want %q", v, "good work")
	}
}

func TestFilterErrors_MergesStudentNames(t *testing.T) {
	got := cleaned(gradeHeader, [][]string{
		{"7", "john smith", "Math", "80", "2024-01-10"},
		{"7", "JOHN SMITH", "Math", "81", "2024-01-11"},
		{"7", "John Smith", "Math", "82", "2024-01-12"},
		{"7", "John Smith", "Math", "83", "2024-01-13"},
	})

	if got.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", got.Len())
	}
	ni := got.Index(ColStudentName)
	for i, row := range got.Rows {
		if name := row[ni].String(); name != "John Smith" {
			t.Errorf("row %d student_name = %q, want %q", i, name, "John Smith")
		}
	}
}

func TestFilterErrors_NameTieGoesToFirstSeen(t *testing.T) {
	got := cleaned(gradeHeader, [][]string{
		{"3", "maria petrova", "Math", "80", "2024-01-10"},
		{"3", "Maria Ivanova", "Math", "81", "2024-01-11"},
	})

	ni := got.Index(ColStudentName)
	for i, row := range got.Rows {
		if name := row[ni].String(); name != "Maria Petrova" {
			t.Errorf("row %d student_name = %q, want %q", i, name, "Maria Petrova")
		}
	}
}

func TestFilterErrors_MergeCollapsesDuplicates(t *testing.T) {
	got := cleaned(gradeHeader, [][]string{
		{"7", "anna", "Math", "80", "2024-01-10"},
		{"7", "ANNA", "Math", "80", "2024-01-10"},
	})
	if got.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after names merge into duplicates", got.Len())
	}
}

func TestFilterErrors_DedupesGradeEventsAfterMerge(t *testing.T) {
	header := []string{"student_id", "student_name", "subject", "grade", "date", "teacher"}
	got := cleaned(header, [][]string{
		{"7", "anna", "Math", "80", "2024-01-10", "Smith"},
		{"7", "Anna", "Math", "80", "2024-01-10", "Jones"},
		{"7", "ANNA", "Math", "85", "2024-01-10", "Smith"},
		{"7", "Anna", "Physics", "80", "2024-01-10", "Smith"},
	})

	if got.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", got.Len())
	}
	ti := got.Index(ColTeacher)
	for _, row := range got.Rows {
		if row[got.Index(ColGrade)].Num == 80 && row[got.Index(ColSubject)].String() == "Math" {
			if teacher := row[ti].String(); teacher != "Smith" {
				t.Errorf("kept teacher = %q, want first row's %q", teacher, "Smith")
			}
		}
	}
}

func TestDropDuplicatesOn_AbsentColumns(t *testing.T) {
	f := NewFrame([]string{"student_id", "notes"}, [][]string{
		{"1", "a"},
		{"1", "b"},
	})
	if removed := f.dropDuplicatesOn(gradeKey...); removed != 1 || f.Len() != 1 {
		t.Errorf("dropDuplicatesOn() removed %d, Len() = %d, want 1 and 1", removed, f.Len())
	}

	g := NewFrame([]string{"notes"}, [][]string{{"a"}, {"a"}})
	if removed := g.dropDuplicatesOn(gradeKey...); removed != 0 {
		t.Errorf("dropDuplicatesOn() with no key columns removed %d, want 0", removed)
	}
}

func TestFilterErrors_SortsByDateThenIDThenSubject(t *testing.T) {
	got := cleaned(gradeHeader, [][]string{
		{"2", "Boris", "Math", "50", "2024-01-02"},
		{"2", "Boris", "Art", "50", "2024-01-02"},
		{"1", "Anna", "Math", "50", "2024-01-02"},
		{"3", "Clara", "Math", "50", "2024-01-01"},
	})

	want := []string{"3/Math", "1/Math", "2/Art", "2/Math"}
	ii, si := got.Index(ColStudentID), got.Index(ColSubject)
	for i, row := range got.Rows {
		if key := row[ii].String() + "/" + row[si].String(); key != want[i] {
			t.Errorf("row %d = %s, want %s", i, key, want[i])
		}
	}
}

func TestFilterErrors_DropsFullyEmptyRows(t *testing.T) {
	got := cleaned(gradeHeader, [][]string{
		{"", "", "", "", ""},
		{"1", "Anna", "Math", "50", "2024-01-10"},
	})
	if got.Len() != 1 {
		t.Errorf("Len() = %d, want 1", got.Len())
	}
}

func TestFilterErrors_SkipsChecksForAbsentColumns(t *testing.T) {
	got := cleaned([]string{"student_id", "grade"}, [][]string{
		{"1", "50"},
		{"2", "500"},
	})
	if got.Len() != 1 {
		t.Errorf("Len() = %d, want 1", got.Len())
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"john smith", "John Smith"},
		{"JOHN SMITH", "John Smith"},
		{"o'neil", "O'Neil"},
		{"anna-maria", "Anna-Maria"},
		{"иван петров", "Иван Петров"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := TitleCase(tt.input); got != tt.want {
			t.Errorf("TitleCase(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsSentinel(t *testing.T) {
	for _, s := range []string{"", "  ", "nan", "NaN", "None", "NULL", "n/a", "NA"} {
		if !IsSentinel(s) {
			t.Errorf("IsSentinel(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"Anna", "0", "nana"} {
		if IsSentinel(s) {
			t.Errorf("IsSentinel(%q) = true, want false", s)
		}
	}
}

func TestFilterOptionsValidate(t *testing.T) {
	tests := []struct {
		name     string
		min, max float64
		wantErr  bool
	}{
		{"default", 0, 100, false},
		{"five point", 1, 5, false},
		{"zero width", 0, 0, true},
		{"inverted", 10, 2, true},
		{"nan", math.NaN(), 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FilterOptions{MinGrade: tt.min, MaxGrade: tt.max}.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrGradeRange) {
				t.Errorf("Validate() error = %v, want ErrGradeRange", err)
			}
		})
	}
}
