package web

import (
	"net/http"

	"github.com/JonMunkholm/gradebook/internal/grading"
	"github.com/JonMunkholm/gradebook/internal/logging"
)

// maxGradingBody bounds the grading system document.
const maxGradingBody = 64 << 10

// handleGetGradingSystem returns the saved grading system or null.
func (s *Server) handleGetGradingSystem(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"grading_system": s.gradingSystem(r.Context())})
}

// handleSetGradingSystem validates and saves a grading system document.
func (s *Server) handleSetGradingSystem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxGradingBody)

	sys, err := grading.Decode(r.Body)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := s.grading.Save(sys); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	logging.FromContext(r.Context()).Info("grading system saved", "system_type", sys.SystemType)
	writeJSON(w, map[string]any{
		"message":        "Grading system saved",
		"grading_system": sys,
	})
}
