package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"agrohub/requests"
)

// apiResponse is the envelope every endpoint returns.
type apiResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message,omitempty"`
	Data    interface{}          `json:"data,omitempty"`
	Errors  []requests.Violation `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: true, Message: msg})
}

func respondError(w http.ResponseWriter, status int, msg string, violations []requests.Violation) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: false, Message: msg, Errors: violations})
}

// respondEngineError translates the engine's error taxonomy into the API
// envelope. Unexpected errors are logged and surfaced as a generic 500.
func (a *App) respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, requests.ErrNotFound), errors.Is(err, requests.ErrAgentNotFound):
		respondError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, requests.ErrPermissionDenied):
		respondError(w, http.StatusForbidden, "permission denied", nil)
	case errors.Is(err, requests.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, requests.ErrConflict):
		respondError(w, http.StatusConflict, "the request was modified concurrently, retry", nil)
	case errors.Is(err, requests.ErrFeedbackAlreadySubmitted):
		respondError(w, http.StatusConflict, err.Error(), nil)
	default:
		if vs := requests.ViolationsOf(err); vs != nil {
			respondError(w, http.StatusUnprocessableEntity, "validation failed", vs)
			return
		}
		a.log.Error().Err(err).Msg("internal error")
		respondError(w, http.StatusInternalServerError, "internal error", nil)
	}
}
