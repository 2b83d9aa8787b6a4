package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/lens/backend/internal/contracts"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:     message,
		Kind:      kind,
		RequestID: RequestIDFrom(r.Context()),
	})
}

// statusFor maps engine error kinds to HTTP statuses.
// Anything that is not an engine error is internal and never exposed.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, contracts.ErrInvalidPeriod):
		return http.StatusBadRequest, "invalid_period"
	case errors.Is(err, contracts.ErrInvalidPortfolio):
		return http.StatusBadRequest, "invalid_portfolio"
	case errors.Is(err, contracts.ErrUnsupportedInput):
		return http.StatusUnprocessableEntity, "unsupported_input"
	case errors.Is(err, contracts.ErrInsufficientData):
		return http.StatusUnprocessableEntity, "insufficient_data"
	case errors.Is(err, contracts.ErrDataQuality):
		return http.StatusUnprocessableEntity, "data_quality"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusFor(err)
	respondError(w, r, status, kind, contracts.UserMessage(err))
}
