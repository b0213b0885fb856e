package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/erdemdnmz2/WebQuery/internal/core"
	"github.com/erdemdnmz2/WebQuery/internal/logger"
)

// errorResponse carries a machine-readable reason alongside the message so
// clients can distinguish "re-authenticate" from "not allowed".
type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error.Printf("api: failed to encode response: %v", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses and reasons.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Reason: "not_found"})
	case errors.Is(err, core.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error(), Reason: "forbidden"})
	case errors.Is(err, core.ErrSessionExpired), errors.Is(err, core.ErrCredentialNotFound):
		// Distinct from forbidden: the client should prompt for re-login.
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error(), Reason: "session_expired"})
	case errors.Is(err, core.ErrNotConfigured):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Reason: "not_configured"})
	case errors.Is(err, core.ErrNotApproved), errors.Is(err, core.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Reason: "not_approved"})
	case errors.Is(err, core.ErrPoolExhausted):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Reason: "pool_exhausted"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Reason: "execution_error"})
	}
}
