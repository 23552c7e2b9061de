package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/gradebook/internal/export"
	"github.com/JonMunkholm/gradebook/internal/logging"
	"github.com/JonMunkholm/gradebook/internal/report"
)

const (
	exportCSV  = export.FormatCSV
	exportXLSX = export.FormatXLSX
	exportHTML = export.FormatHTML
)

// handleExport returns a handler that downloads the filtered table in f.
// The body is rendered fully before any header is written so a failure
// still produces a clean error response.
func (s *Server) handleExport(f export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, _, err := s.filteredTable(r)
		if err != nil {
			s.respondError(w, r, err, statusFor(err))
			return
		}

		now := s.now()
		var buf bytes.Buffer
		switch f {
		case export.FormatCSV:
			err = export.WriteCSV(&buf, t)
		case export.FormatXLSX:
			err = export.WriteXLSX(&buf, t)
		case export.FormatHTML:
			err = report.Render(r.Context(), &buf, report.Build(t, now))
		default:
			err = fmt.Errorf("%w: export format %q", errInvalidParam, f)
		}
		if err != nil {
			s.respondError(w, r, fmt.Errorf("export %s: %w", f, err), statusFor(err))
			return
		}

		filename := export.Filename(f, now)
		w.Header().Set("Content-Type", f.ContentType())
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		if _, err := buf.WriteTo(w); err != nil {
			logging.FromContext(r.Context()).Error("export write failed", "format", f, "error", err)
			return
		}
		logging.FromContext(r.Context()).Info("export served", "format", f, "rows", t.Len(), "filename", filename)
	}
}
