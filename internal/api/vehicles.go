package api

import (
	"log/slog"
	"net/http"

	"cabinmix/pkg/config"
	"cabinmix/pkg/logging"
	"cabinmix/pkg/store"
	"cabinmix/pkg/zone"
)

// VehicleHandler serves and edits vehicle geometries.
type VehicleHandler struct {
	registry *zone.Registry
	store    store.VehicleStore
	cfg      config.Provider
}

// NewVehicleHandler creates a new VehicleHandler. st may be nil, in which case
// edits are not persisted.
func NewVehicleHandler(reg *zone.Registry, st store.VehicleStore, cfg config.Provider) *VehicleHandler {
	return &VehicleHandler{registry: reg, store: st, cfg: cfg}
}

// VehicleListResponse is returned by GET /api/vehicles.
type VehicleListResponse struct {
	Vehicles []string `json:"vehicles"`
	Active   string   `json:"active"`
}

// HandleList handles GET /api/vehicles
func (h *VehicleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VehicleListResponse{
		Vehicles: h.registry.Vehicles(),
		Active:   h.cfg.ActiveVehicle(r.Context()),
	})
}

// HandleGet handles GET /api/vehicles/{id}
func (h *VehicleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// HandlePut handles PUT /api/vehicles/{id}. The geometry is validated and
// registered before it is persisted.
func (h *VehicleHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var cfg zone.Config
	if !decodeBody(w, r, &cfg) {
		return
	}
	if err := h.registry.Register(id, cfg); err != nil {
		writeError(w, err)
		return
	}
	stored, err := h.registry.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.store != nil {
		if err := h.store.SaveVehicle(r.Context(), id, stored); err != nil {
			slog.Error("Failed to persist vehicle geometry", "vehicle", id, "error", err)
			http.Error(w, "failed to persist vehicle", http.StatusInternalServerError)
			return
		}
	}

	slog.Info("Vehicle geometry updated", "vehicle", id)
	logging.LogEvent(&logging.Event{Type: "vehicle", Title: "Geometry updated", Summary: id})
	writeJSON(w, http.StatusOK, stored)
}
