package api

import (
	"net/http"
	"sync"

	"cabinmix/pkg/sim"
)

// TelemetryResponse is the API response structure.
type TelemetryResponse struct {
	sim.Telemetry
	SimState string `json:"sim_state"`
}

// TelemetryHandler keeps the latest observer sample for the UI.
type TelemetryHandler struct {
	mu        sync.RWMutex
	telemetry sim.Telemetry
	simState  sim.State
}

func NewTelemetryHandler() *TelemetryHandler {
	return &TelemetryHandler{simState: sim.StateDisconnected}
}

// Update implements core.TelemetrySink.
func (h *TelemetryHandler) Update(t *sim.Telemetry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.telemetry = *t
}

// UpdateState updates the position source state.
func (h *TelemetryHandler) UpdateState(s sim.State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.simState = s
}

func (h *TelemetryHandler) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	resp := TelemetryResponse{
		Telemetry: h.telemetry,
		SimState:  string(h.simState),
	}
	h.mu.RUnlock()

	writeJSON(w, http.StatusOK, resp)
}
