package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aleister1102/pagewatch/internal/common"
	"github.com/aleister1102/pagewatch/internal/models"
)

// errorResponse is the envelope for every failed request.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError maps domain errors onto HTTP statuses and the error envelope.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case common.IsValidationError(err):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrJobNotFound), errors.Is(err, models.ErrJobDeleted):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrJobAlreadyRunning), errors.Is(err, models.ErrJobNotRunning):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("Request failed")
	}
	s.respondJSON(w, status, errorResponse{Success: false, Error: err.Error()})
}
