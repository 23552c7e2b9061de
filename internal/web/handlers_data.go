package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/gradebook/internal/analytics"
	"github.com/JonMunkholm/gradebook/internal/charts"
	"github.com/JonMunkholm/gradebook/internal/core"
	"github.com/JonMunkholm/gradebook/internal/grading"
	"github.com/JonMunkholm/gradebook/internal/logging"
	"github.com/go-chi/chi/v5"
)

// loadTable returns the newest source through the cache. A missing source
// yields an empty table so listing routes answer with empty results.
func (s *Server) loadTable(ctx context.Context) (*core.Table, error) {
	t, err := s.loader.Load(ctx, "", true)
	if errors.Is(err, core.ErrNotFound) {
		logging.FromContext(ctx).Info("no source data, serving empty table")
		return &core.Table{Columns: append([]string(nil), core.RequiredColumns...)}, nil
	}
	return t, err
}

// filteredTable loads the table and applies the query filters.
func (s *Server) filteredTable(r *http.Request) (*core.Table, core.Filter, error) {
	f, err := parseFilter(r)
	if err != nil {
		return nil, f, err
	}
	t, err := s.loadTable(r.Context())
	if err != nil {
		return nil, f, err
	}
	return core.GetFiltered(t, f), f, nil
}

// gradingSystem returns the saved grading system, or nil when none is
// saved or it cannot be read.
func (s *Server) gradingSystem(ctx context.Context) *grading.System {
	if s.grading == nil {
		return nil
	}
	sys, err := s.grading.Load()
	if err != nil {
		logging.FromContext(ctx).Warn("grading system unreadable", "error", err)
		return nil
	}
	return sys
}

// handleRoot describes the API.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"message": "Student Performance Dashboard API",
		"version": Version,
		"endpoints": map[string]string{
			"data_status":        "/api/data-status",
			"grading_system":     "/api/grading-system",
			"plot_data":          "/api/plot-data",
			"students":           "/api/students",
			"grades":             "/api/grades",
			"statistics":         "/api/statistics",
			"student_statistics": "/api/students/{student_id}/statistics",
			"subjects":           "/api/subjects",
			"new_grades":         "/api/new-grades",
			"import":             "/api/import",
			"imports":            "/api/imports",
			"export_csv":         "/api/export/csv",
			"export_xlsx":        "/api/export/xlsx",
			"export_html":        "/api/export/html",
		},
	})
}

// handleHealth reports whether the newest source loads. It always answers 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.loader.Load(r.Context(), "", true); err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		writeJSON(w, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, map[string]string{"status": "healthy"})
}

// DataStatusResponse is returned by /api/data-status.
type DataStatusResponse struct {
	HasData       bool                     `json:"has_data"`
	TotalRecords  int                      `json:"total_records"`
	GradingSystem *grading.System          `json:"grading_system"`
	Source        string                   `json:"source,omitempty"`
	FileHash      string                   `json:"file_hash,omitempty"`
	Imports       core.ImportLimiterStatus `json:"imports"`
	Error         string                   `json:"error,omitempty"`
}

// handleDataStatus reports whether data is loaded. Load failures degrade to
// has_data=false with the mapped message in error.
func (s *Server) handleDataStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := DataStatusResponse{
		GradingSystem: s.gradingSystem(ctx),
		Imports:       s.limiter.Status(),
	}

	st, err := s.loader.Status(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("data status failed", "error", err)
		resp.Source = st.Source
		resp.Error = core.MapError(err).Message
		writeJSON(w, resp)
		return
	}

	resp.HasData = st.HasData
	resp.TotalRecords = st.TotalRecords
	resp.Source = st.Source
	resp.FileHash = st.FileHash
	writeJSON(w, resp)
}

// handlePlotData returns chart figures for the filtered table. A malformed
// student_id is ignored rather than rejected.
func (s *Server) handlePlotData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, err := s.loadTable(ctx)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if t.Empty() {
		writeJSON(w, charts.Empty())
		return
	}

	id, err := parseStudentID(r)
	if err != nil {
		logging.FromContext(ctx).Warn("ignoring invalid student_id", "error", err)
		id = nil
	}
	f := filterFor(r, id)
	filtered := core.GetFiltered(t, f)
	if filtered.Empty() {
		writeJSON(w, charts.Empty())
		return
	}

	kind := charts.ParseKind(r.URL.Query().Get("plot_type"))
	opts := charts.Options{
		Grading: s.gradingSystem(ctx),
		Period:  analytics.ParsePeriod(r.URL.Query().Get("period")),
	}
	writeJSON(w, charts.Build(kind, filtered, charts.Scope{StudentID: id, Subject: f.Subject}, opts))
}

// StudentEntry is one row of /api/students.
type StudentEntry struct {
	StudentID    int64   `json:"student_id"`
	StudentName  string  `json:"student_name"`
	AverageGrade float64 `json:"average_grade"`
	TotalGrades  int     `json:"total_grades"`
}

// handleStudents lists every student with their average.
func (s *Server) handleStudents(w http.ResponseWriter, r *http.Request) {
	t, err := s.loadTable(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	averages := analytics.StudentAverages(t, "")
	students := make([]StudentEntry, 0, len(averages))
	for _, a := range averages {
		students = append(students, StudentEntry{
			StudentID:    a.StudentID,
			StudentName:  a.StudentName,
			AverageGrade: a.AverageGrade,
			TotalGrades:  a.GradeCount,
		})
	}
	writeJSON(w, map[string]any{"students": students, "total": len(students)})
}

// GradesResponse is returned by /api/grades and /api/new-grades.
type GradesResponse struct {
	Grades   []core.GradeRecord `json:"grades"`
	Total    int                `json:"total"`
	Filters  *FilterEcho        `json:"filters,omitempty"`
	FileHash string             `json:"file_hash,omitempty"`
}

// handleGrades lists filtered grade records, optionally capped by limit.
func (s *Server) handleGrades(w http.ResponseWriter, r *http.Request) {
	t, f, err := s.filteredTable(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	records := t.Records
	if limit := parseIntParam(r, "limit", 0); limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	if records == nil {
		records = []core.GradeRecord{}
	}

	echo := echoFilters(r, f)
	writeJSON(w, GradesResponse{Grades: records, Total: len(records), Filters: &echo})
}

// StatisticsResponse adds the per-subject comparison to the overall figures
// when no subject filter is set.
type StatisticsResponse struct {
	analytics.Statistics
	SubjectComparison []analytics.SubjectComparison `json:"subject_comparison,omitempty"`
}

// handleStatistics returns statistics of the filtered table.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	t, f, err := s.filteredTable(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	resp := StatisticsResponse{Statistics: analytics.Calculate(t)}
	if f.Subject == "" {
		resp.SubjectComparison = analytics.CompareSubjects(t)
	}
	writeJSON(w, resp)
}

// StudentStatisticsResponse adds the trend to a student's figures. The trend
// is monthly unless the period query parameter names day, week or year.
type StudentStatisticsResponse struct {
	analytics.StudentStatistics
	Trend []analytics.TrendPoint `json:"trend"`
}

// handleStudentStatistics returns one student's statistics, 404 when the
// student has no grades.
func (s *Server) handleStudentStatistics(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "studentID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: student id %q", errInvalidParam, raw), http.StatusBadRequest)
		return
	}

	t, err := s.loadTable(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	stats := analytics.ForStudent(t, id)
	if !stats.Found() {
		s.respondError(w, r, fmt.Errorf("%w: %d", errStudentNotFound, id), http.StatusNotFound)
		return
	}

	trend := analytics.Trend(t, analytics.TrendQuery{
		StudentID: &id,
		Period:    analytics.ParsePeriod(r.URL.Query().Get("period")),
	})
	if trend == nil {
		trend = []analytics.TrendPoint{}
	}
	writeJSON(w, StudentStatisticsResponse{StudentStatistics: stats, Trend: trend})
}

// handleSubjects lists every subject with its statistics.
func (s *Server) handleSubjects(w http.ResponseWriter, r *http.Request) {
	t, err := s.loadTable(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	names := core.Subjects(t)
	subjects := make([]analytics.SubjectStatistics, 0, len(names))
	for _, name := range names {
		subjects = append(subjects, analytics.ForSubject(t, name))
	}
	writeJSON(w, map[string]any{"subjects": subjects, "total": len(subjects)})
}

// handleNewGrades returns the records absent from the previous cache
// generation.
func (s *Server) handleNewGrades(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, err := s.loadTable(ctx)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	fresh, err := s.loader.FindNewGrades(ctx, t, r.URL.Query().Get("previous_hash"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	records := fresh.Records
	if records == nil {
		records = []core.GradeRecord{}
	}
	writeJSON(w, GradesResponse{
		Grades:   records,
		Total:    len(records),
		FileHash: s.loader.LastProcessedHash(),
	})
}
