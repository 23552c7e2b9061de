package core

// validation.go checks a cleaned Frame against the canonical schema.
//
// Every applicable check runs and every failure is collected, so a caller
// rejecting an upload can report all problems at once. The one exception is
// an empty table, which stops the remaining checks.

import (
	"fmt"
	"strings"
)

// ValidationResult contains the verdict and the ordered violations.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations,omitempty"`
}

// Err returns a *ValidationError for an invalid result, nil otherwise.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Violations: append([]string(nil), r.Violations...)}
}

// ValidateStructure runs the structural checks on f without modifying it.
func ValidateStructure(f *Frame) ValidationResult {
	var violations []string

	if missing := missingColumns(f); len(missing) > 0 {
		violations = append(violations, fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
	}

	if f.Len() == 0 {
		violations = append(violations, "table is empty")
		return ValidationResult{Valid: false, Violations: violations}
	}

	if i := f.Index(ColStudentID); i >= 0 && !columnIs(f, i, isNumeric) {
		violations = append(violations, fmt.Sprintf("column %q must be numeric", ColStudentID))
	}
	if i := f.Index(ColGrade); i >= 0 && !columnIs(f, i, isNumeric) {
		violations = append(violations, fmt.Sprintf("column %q must be numeric", ColGrade))
	}
	if i := f.Index(ColDate); i >= 0 && !columnIs(f, i, isDate) {
		violations = append(violations, fmt.Sprintf("column %q must contain valid dates", ColDate))
	}

	if f.hasDuplicates() {
		violations = append(violations, "duplicate rows found")
	}

	for _, col := range RequiredColumns {
		i := f.Index(col)
		if i < 0 {
			continue
		}
		for _, row := range f.Rows {
			if row[i].IsMissing() {
				violations = append(violations, fmt.Sprintf("missing values in column %q", col))
				break
			}
		}
	}

	return ValidationResult{Valid: len(violations) == 0, Violations: violations}
}

// missingColumns lists absent required columns in canonical order.
func missingColumns(f *Frame) []string {
	var missing []string
	for _, col := range RequiredColumns {
		if !f.Has(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// columnIs reports whether every non-missing cell in column i satisfies ok.
func columnIs(f *Frame, i int, ok func(Value) bool) bool {
	for _, row := range f.Rows {
		if v := row[i]; !v.IsMissing() && !ok(v) {
			return false
		}
	}
	return true
}

func isNumeric(v Value) bool {
	_, ok := v.AsNumber()
	return ok
}

func isDate(v Value) bool {
	_, ok := v.AsDate()
	return ok
}
