package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rcliao/plura-proxy/internal/proxy"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: status})
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, proxy.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, proxy.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, proxy.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, proxy.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, proxy.ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
