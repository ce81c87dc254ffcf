package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cabinmix/pkg/audio"
	"cabinmix/pkg/store"
	"cabinmix/pkg/zone"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, zone.ErrUnknownZone),
		errors.Is(err, zone.ErrMissingZone),
		errors.Is(err, zone.ErrBaseVolume),
		errors.Is(err, audio.ErrUnknownEffect):
		return http.StatusBadRequest
	case errors.Is(err, zone.ErrUnknownVehicle), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, audio.ErrEngineUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}
