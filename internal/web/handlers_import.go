package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/gradebook/internal/core"
	"github.com/JonMunkholm/gradebook/internal/history"
	"github.com/JonMunkholm/gradebook/internal/logging"
	"github.com/google/uuid"
)

// multipartMemory is how much of a multipart form is held in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

// ImportResponse is returned for an accepted import.
type ImportResponse struct {
	Message  string    `json:"message"`
	ImportID uuid.UUID `json:"import_id"`
	Filename string    `json:"filename"`
	StoredAs string    `json:"stored_as"`
	Rows     int       `json:"rows"`
	Columns  []string  `json:"columns"`
}

// handleImport stores an uploaded grade file in the source directory,
// validates it and makes it the current data. Rejected files are removed.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Ingest.MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		status := http.StatusBadRequest
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			status = http.StatusRequestEntityTooLarge
		}
		s.respondError(w, r, fmt.Errorf("parse upload form: %w", err), status)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) || strings.TrimSpace(name) == "" {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	if !core.IsSupportedFile(name) {
		s.respondError(w, r, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, filepath.Ext(name)), http.StatusBadRequest)
		return
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer s.limiter.Release()

	outcome := history.StatusRejected
	if s.metrics != nil {
		s.metrics.ImportStarted()
		defer func() { s.metrics.ImportFinished(string(outcome)) }()
	}

	rec := history.NewRecord(name, history.StatusRejected, s.now())
	logger := logging.WithFields(ctx, "import_id", rec.ID, "filename", name)

	dir := s.loader.SourceDir()
	staged, cleanup, err := stageUpload(dir, name, file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("store upload: %w", err), http.StatusInternalServerError)
		return
	}
	defer cleanup()

	if hash, _, err := core.FingerprintFile(staged); err == nil {
		rec.FileHash = hash
	}

	frame, result, err := s.loader.Prepare(ctx, staged)
	if err == nil {
		err = result.Err()
	}
	if err != nil {
		if frame != nil {
			rec.Rows = frame.Len()
		}
		s.reject(ctx, rec, err)
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	stored, err := publishUpload(staged, dir, name, s.now())
	if err != nil {
		s.respondError(w, r, fmt.Errorf("store upload: %w", err), http.StatusInternalServerError)
		return
	}
	rec.StoredPath = stored

	if err := s.loader.Invalidate(ctx); err != nil {
		logger.Error("cache invalidation after import failed", "error", err)
	}
	if _, err := s.loader.Load(ctx, stored, true); err != nil {
		logger.Warn("reload after import failed", "error", err)
	}

	rec.Status = history.StatusAccepted
	rec.Rows = frame.Len()
	s.recordImport(ctx, rec)
	outcome = history.StatusAccepted
	logger.Info("import accepted", "rows", rec.Rows, "stored_as", stored)

	writeJSON(w, ImportResponse{
		Message:  "File imported and validated",
		ImportID: rec.ID,
		Filename: name,
		StoredAs: filepath.Base(stored),
		Rows:     frame.Len(),
		Columns:  frame.Columns,
	})
}

// reject records the failed attempt. Validation failures keep every
// violation; other causes are stored as the mapped user message.
func (s *Server) reject(ctx context.Context, rec history.Record, cause error) {
	var verr *core.ValidationError
	if errors.As(cause, &verr) {
		rec.Violations = append([]string(nil), verr.Violations...)
	} else {
		rec.Violations = []string{core.FormatUserError(cause)}
	}
	s.recordImport(ctx, rec)
	logging.WithFields(ctx, "import_id", rec.ID, "filename", rec.Filename).
		Warn("import rejected", "violations", rec.Violations)
}

// recordImport adds rec to the history. Failures are logged, never returned.
func (s *Server) recordImport(ctx context.Context, rec history.Record) {
	if err := s.history.Add(ctx, rec); err != nil {
		logging.FromContext(ctx).Error("failed to record import", "import_id", rec.ID, "error", err)
	}
}

// stageUpload copies src to name inside a fresh hidden directory under dir.
// Source resolution skips directories, so a staged file is never loaded
// before it is published. cleanup removes the staging directory.
func stageUpload(dir, name string, src io.Reader) (path string, cleanup func(), err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, err
	}
	staging, err := os.MkdirTemp(dir, ".import-")
	if err != nil {
		return "", nil, err
	}
	cleanup = func() { os.RemoveAll(staging) }

	path = filepath.Join(staging, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

// maxNameAttempts bounds the numbered fallbacks tried after a timestamp
// collision.
const maxNameAttempts = 100

// publishUpload hard-links staged into dir as name. It never replaces an
// existing file: a taken name gets a _YYYYMMDD_HHMMSS suffix, then a
// counter. The link either appears complete or not at all.
func publishUpload(staged, dir, name string, now time.Time) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	stamp := now.Format("20060102_150405")

	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		switch {
		case i == 1:
			candidate = fmt.Sprintf("%s_%s%s", base, stamp, ext)
		case i > 1:
			candidate = fmt.Sprintf("%s_%s_%d%s", base, stamp, i, ext)
		}

		path := filepath.Join(dir, candidate)
		err := os.Link(staged, path)
		if err == nil {
			return path, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", fmt.Errorf("publish %s: %w", candidate, err)
	}
	return "", fmt.Errorf("publish %s: no free name after %d attempts", name, maxNameAttempts)
}

// handleImports lists recent import attempts, newest first.
func (s *Server) handleImports(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", history.DefaultLimit)

	records, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, map[string]any{"imports": records, "total": len(records)})
}
