package core

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestValidateStructure(t *testing.T) {
	day := DateValue(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	validRow := func() []Value {
		return []Value{NumberValue(1), TextValue("Anna"), TextValue("Math"), NumberValue(4.5), day}
	}

	tests := []struct {
		name           string
		frame          *Frame
		wantValid      bool
		wantViolations []string
	}{
		{
			name:      "valid table",
			frame:     &Frame{Columns: RequiredColumns, Rows: [][]Value{validRow()}},
			wantValid: true,
		},
		{
			name: "two missing columns reported together",
			frame: &Frame{
				Columns: []string{ColStudentID, ColStudentName, ColSubject},
				Rows:    [][]Value{{NumberValue(1), TextValue("Anna"), TextValue("Math")}},
			},
			wantViolations: []string{"missing required columns: grade, date"},
		},
		{
			name:           "empty table",
			frame:          &Frame{Columns: RequiredColumns},
			wantViolations: []string{"table is empty"},
		},
		{
			name:  "empty table keeps missing columns",
			frame: &Frame{Columns: []string{ColStudentID, ColStudentName, ColSubject, ColDate}},
			wantViolations: []string{
				"missing required columns: grade",
				"table is empty",
			},
		},
		{
			name: "non numeric grade",
			frame: &Frame{Columns: RequiredColumns, Rows: [][]Value{
				{NumberValue(1), TextValue("Anna"), TextValue("Math"), TextValue("A+"), day},
			}},
			wantViolations: []string{`column "grade" must be numeric`},
		},
		{
			name: "numeric text passes",
			frame: &Frame{Columns: RequiredColumns, Rows: [][]Value{
				{TextValue("1"), TextValue("Anna"), TextValue("Math"), TextValue("4,5"), TextValue("2024-01-10")},
			}},
			wantValid: true,
		},
		{
			name: "invalid dates and ids",
			frame: &Frame{Columns: RequiredColumns, Rows: [][]Value{
				{TextValue("x"), TextValue("Anna"), TextValue("Math"), NumberValue(4), TextValue("soon")},
			}},
			wantViolations: []string{
				`column "student_id" must be numeric`,
				`column "date" must contain valid dates`,
			},
		},
		{
			name:           "duplicate rows",
			frame:          &Frame{Columns: RequiredColumns, Rows: [][]Value{validRow(), validRow()}},
			wantViolations: []string{"duplicate rows found"},
		},
		{
			name: "missing values",
			frame: &Frame{Columns: RequiredColumns, Rows: [][]Value{
				{NumberValue(1), Missing, TextValue("Math"), NumberValue(4), day},
				{NumberValue(2), TextValue("Boris"), TextValue("Math"), Missing, day},
			}},
			wantViolations: []string{
				`missing values in column "student_name"`,
				`missing values in column "grade"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateStructure(tt.frame)
			if got.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (violations %v)", got.Valid, tt.wantValid, got.Violations)
			}
			if !reflect.DeepEqual(got.Violations, tt.wantViolations) {
				t.Errorf("Violations = %q, want %q", got.Violations, tt.wantViolations)
			}
		})
	}
}

func TestValidateStructure_DoesNotModifyFrame(t *testing.T) {
	f := &Frame{Columns: RequiredColumns, Rows: [][]Value{
		{TextValue("1"), TextValue("Anna"), TextValue("Math"), TextValue("4,5"), TextValue("2024-01-10")},
	}}

	_ = ValidateStructure(f)

	if f.Rows[0][3].Kind != KindText || f.Rows[0][3].Text != "4,5" {
		t.Errorf("frame modified: %+v", f.Rows[0])
	}
}

func TestValidationResultErr(t *testing.T) {
	if err := (ValidationResult{Valid: true}).Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}

	err := ValidationResult{Violations: []string{"table is empty"}}.Err()
	if !errors.Is(err, ErrValidation) {
		t.Errorf("errors.Is(%v, ErrValidation) = false", err)
	}
}
