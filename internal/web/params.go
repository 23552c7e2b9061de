package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/gradebook/internal/core"
	"github.com/JonMunkholm/gradebook/internal/logging"
)

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseStudentID parses the optional student_id query parameter.
func parseStudentID(r *http.Request) (*int64, error) {
	val := strings.TrimSpace(r.URL.Query().Get("student_id"))
	if val == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: student_id %q", errInvalidParam, val)
	}
	return &id, nil
}

// parseDateBound parses an optional date query parameter. Unparseable
// bounds are logged and ignored.
func parseDateBound(r *http.Request, name string) *time.Time {
	val := r.URL.Query().Get(name)
	t, ok := core.ParseFilterDate(val)
	if !ok {
		logging.FromContext(r.Context()).Warn("ignoring unparseable date bound",
			"param", name,
			"value", val,
		)
		return nil
	}
	return t
}

// filterFor builds the table filter from the query, with an already parsed
// student id.
func filterFor(r *http.Request, studentID *int64) core.Filter {
	return core.Filter{
		StudentID: studentID,
		Subject:   strings.TrimSpace(r.URL.Query().Get("subject")),
		Start:     parseDateBound(r, "start_date"),
		End:       parseDateBound(r, "end_date"),
	}
}

// parseFilter builds the table filter from the query. A malformed
// student_id is an error.
func parseFilter(r *http.Request) (core.Filter, error) {
	id, err := parseStudentID(r)
	if err != nil {
		return core.Filter{}, err
	}
	return filterFor(r, id), nil
}

// FilterEcho reports the filters a listing was computed with.
type FilterEcho struct {
	StudentID *int64  `json:"student_id"`
	Subject   *string `json:"subject"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

func echoFilters(r *http.Request, f core.Filter) FilterEcho {
	q := r.URL.Query()
	return FilterEcho{
		StudentID: f.StudentID,
		Subject:   optional(f.Subject),
		StartDate: optional(q.Get("start_date")),
		EndDate:   optional(q.Get("end_date")),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
