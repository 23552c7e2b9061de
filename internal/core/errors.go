package core

import (
	"errors"
	"strings"
)

// Sentinel errors for the loading pipeline. Callers match them with errors.Is.
var (
	// ErrNotFound means no source file exists, either in the source
	// directory or at an explicitly named path.
	ErrNotFound = errors.New("source not found")

	// ErrDecode means none of the candidate encodings could decode a CSV,
	// or a spreadsheet could not be opened.
	ErrDecode = errors.New("decode failed")

	// ErrUnsupportedFormat means the file extension is not .csv, .xlsx or .xls.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrValidation means the cleaned table failed structural checks.
	ErrValidation = errors.New("validation failed")

	// ErrGradeRange means the filter's grade bounds do not form a range.
	ErrGradeRange = errors.New("invalid grade range")

	// ErrCacheRead means the cache sidecar or table could not be read.
	// The loader treats it as a cache miss.
	ErrCacheRead = errors.New("cache read failed")
)

// ValidationError carries every violation found by ValidateStructure.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
