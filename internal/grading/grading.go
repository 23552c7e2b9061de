// Package grading stores the user-configured grading system.
//
// The grading system describes the valid grade scale for presentation only;
// ingestion never consults it. It lives as a small JSON document next to the
// cache generation.
package grading

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/JonMunkholm/gradebook/internal/core"
)

// FileName is the grading system document inside the cache directory.
const FileName = "grading_system.json"

// SystemType names a grade scale.
type SystemType string

const (
	FivePoint    SystemType = "5-point"
	HundredPoint SystemType = "100-point"
	Custom       SystemType = "custom"
)

// System is the grading system document.
type System struct {
	SystemType SystemType `json:"system_type" validate:"required,oneof=5-point 100-point custom"`
	MaxGrade   *float64   `json:"max_grade,omitempty"`
	MinGrade   *float64   `json:"min_grade,omitempty"`
}

// Scale returns the grade axis bounds for the system.
func (s System) Scale() (min, max float64) {
	switch s.SystemType {
	case FivePoint:
		return 0, 5
	case HundredPoint:
		return 0, 100
	default:
		if s.MinGrade != nil {
			min = *s.MinGrade
		}
		if s.MaxGrade != nil {
			max = *s.MaxGrade
		}
		return min, max
	}
}

// ErrInvalid is matched by every validation failure.
var ErrInvalid = errors.New("invalid grading system")

// ValidationError lists field problems keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

const customRangeTag = "custom_range"

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterStructValidation(customRangeValidation, System{})
	_ = validate.RegisterTranslation(customRangeTag, translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			if fe.Field() == "max_grade" && fe.Param() == "" {
				return "max_grade is required for a custom system"
			}
			return "max_grade must be greater than min_grade"
		})
}

// customRangeValidation requires a max_grade above min_grade for custom systems.
func customRangeValidation(sl validator.StructLevel) {
	s, ok := sl.Current().Interface().(System)
	if !ok || s.SystemType != Custom {
		return
	}
	if s.MaxGrade == nil {
		sl.ReportError(s.MaxGrade, "max_grade", "MaxGrade", customRangeTag, "")
		return
	}
	min := 0.0
	if s.MinGrade != nil {
		min = *s.MinGrade
	}
	if *s.MaxGrade <= min {
		sl.ReportError(s.MaxGrade, "max_grade", "MaxGrade", customRangeTag, "range")
	}
}

// Validate checks s and returns a *ValidationError on failure.
func Validate(s System) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Translate(translator)
	}
	return &ValidationError{Fields: fields}
}

// Decode parses and validates a grading system document.
func Decode(r io.Reader) (System, error) {
	var s System
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return System{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := Validate(s); err != nil {
		return System{}, err
	}
	return s, nil
}

// Store persists the grading system in a directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the document location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Load returns the saved system, or (nil, nil) when none has been saved.
// A document that no longer validates is an error.
func (s *Store) Load() (*System, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read grading system: %w", err)
	}

	sys, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("load grading system: %w", err)
	}
	return &sys, nil
}

// Save validates sys and replaces the stored document.
func (s *Store) Save(sys System) error {
	if err := Validate(sys); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create grading dir: %w", err)
	}
	return core.WriteFileAtomic(s.Path(), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sys)
	})
}
