package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"skill-barter-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondServiceError maps a service-layer error onto the HTTP taxonomy:
// validation and state conflicts are 400, authorization 403, unknown ids
// 404, everything else 500 and logged.
func respondServiceError(w http.ResponseWriter, err error) {
	var validationErr *services.ValidationError
	var authErr *services.AuthorizationError
	var notFoundErr *services.NotFoundError
	var conflictErr *services.StateConflictError

	switch {
	case errors.As(err, &validationErr):
		respondError(w, validationErr.Reason, http.StatusBadRequest)
	case errors.As(err, &authErr):
		respondError(w, authErr.Reason, http.StatusForbidden)
	case errors.As(err, &notFoundErr):
		respondError(w, notFoundErr.Reason, http.StatusNotFound)
	case errors.As(err, &conflictErr):
		respondError(w, conflictErr.Reason, http.StatusBadRequest)
	default:
		log.Error().Err(err).Msg("Internal error")
		respondError(w, "internal server error", http.StatusInternalServerError)
	}
}
