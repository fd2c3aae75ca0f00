package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ListResponse wraps a page of rows with the query that produced it.
type ListResponse[T any] struct {
	Kind   string `json:"kind"`
	Count  int    `json:"count"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Order  string `json:"order"`
	Data   []T    `json:"data"`
}

func respondJSON(w http.ResponseWriter, log *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn("failed to encode JSON response", slog.Any("error", err))
	}
}

func respondError(w http.ResponseWriter, log *slog.Logger, status int, err error) {
	respondJSON(w, log, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
	})
}
