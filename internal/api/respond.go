package api

import (
	"encoding/json"
	"net/http"

	"sibyl/pkg/errors"
	"sibyl/pkg/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warnf("Response encode failed: %v", err)
	}
}

// writeError maps domain sentinels to HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, errors.ErrTradeCapReached):
		status = http.StatusTooManyRequests
	case errors.Is(err, errors.ErrUnavailable), errors.Is(err, errors.ErrNoDecisionProvider):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
