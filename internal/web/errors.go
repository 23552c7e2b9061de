package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - logged with full technical details and the request ID (server-side)
//   - returned as JSON carrying the user-friendly message, action and code
//     from core.MapError
//
// Handlers either pass an explicit status to respondError or let statusFor
// choose one from the error chain.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/gradebook/internal/core"
	"github.com/JonMunkholm/gradebook/internal/grading"
	"github.com/JonMunkholm/gradebook/internal/logging"
)

var (
	// errInvalidParam marks a query or path parameter that could not be parsed.
	errInvalidParam = errors.New("invalid parameter")

	// errStudentNotFound marks a student id with no grades.
	errStudentNotFound = errors.New("student not found")

	// errNoFile marks an import request without a file part.
	errNoFile = errors.New("no file provided")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error      string   `json:"error"`
	Message    string   `json:"message"`
	Action     string   `json:"action,omitempty"`
	Code       string   `json:"code"`
	Violations []string `json:"violations,omitempty"`
}

// respondError logs the technical error and writes the mapped JSON response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	resp := ErrorResponse{
		Error:   err.Error(),
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		resp.Error = userMsg.Message
	}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		resp.Violations = verr.Violations
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errInvalidParam),
		errors.Is(err, errNoFile),
		errors.Is(err, grading.ErrInvalid),
		errors.Is(err, core.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, errStudentNotFound), errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
