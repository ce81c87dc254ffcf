package api

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"cabinmix/pkg/audio"
	"cabinmix/pkg/config"
	"cabinmix/pkg/sim"
	"cabinmix/pkg/store"
	"cabinmix/pkg/zone"
)

// MixerService is the control surface of the zone mixer.
type MixerService interface {
	State() audio.State
	UpdatePosition(pos float64, cfg zone.Config)
	SetMasterVolume(v float64)
	SetZoneBaseVolume(z zone.Name, v float64) error
	SetFadeDuration(seconds float64) error
	SetEffect(e audio.Effect, enabled bool) error
	ForceUpdate()
	Wake(ctx context.Context) error
	ResetVolumes()
	PlayTestTone(z zone.Name, freq float64, d time.Duration) error
	Spectrum() ([]float64, error)
	Level() float64
}

// MixerHandler handles the /api/mixer endpoints.
type MixerHandler struct {
	mixer    MixerService
	vehicles *zone.Registry
	cfg      config.Provider
	store    store.StateStore
	sim      sim.Client
}

// NewMixerHandler creates a new MixerHandler. simClient may be nil.
func NewMixerHandler(m MixerService, reg *zone.Registry, cfg config.Provider, st store.StateStore, simClient sim.Client) *MixerHandler {
	return &MixerHandler{
		mixer:    m,
		vehicles: reg,
		cfg:      cfg,
		store:    st,
		sim:      simClient,
	}
}

type volumeRequest struct {
	Volume float64 `json:"volume"`
}

type fadeRequest struct {
	Seconds float64 `json:"seconds"`
}

type effectRequest struct {
	Enabled bool `json:"enabled"`
}

// maxToneDuration bounds a single test tone.
const maxToneDuration = 10 * time.Second

type toneRequest struct {
	Zone       string  `json:"zone"`
	Frequency  float64 `json:"frequency"`
	DurationMS int     `json:"duration_ms"`
}

type positionRequest struct {
	Position float64 `json:"position"`
	Vehicle  string  `json:"vehicle"`
}

// HandleState handles GET /api/mixer
func (h *MixerHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mixer.State())
}

// HandleMaster handles PUT /api/mixer/master
func (h *MixerHandler) HandleMaster(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.mixer.SetMasterVolume(req.Volume)
	st := h.mixer.State()
	h.persist(r.Context(), config.KeyMasterVolume, fmt.Sprintf("%.2f", st.MasterVolume))

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"volume": st.MasterVolume,
	})
}

// HandleZone handles PUT /api/mixer/zones/{zone}
func (h *MixerHandler) HandleZone(w http.ResponseWriter, r *http.Request) {
	z, err := zone.ParseName(r.PathValue("zone"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req volumeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.mixer.SetZoneBaseVolume(z, req.Volume); err != nil {
		writeError(w, err)
		return
	}
	vol := h.mixer.State().BaseVolumes[z]
	h.persist(r.Context(), config.ZoneVolumeKey(string(z)), fmt.Sprintf("%.2f", vol))

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"zone":   z,
		"volume": vol,
	})
}

// HandleFade handles PUT /api/mixer/fade
func (h *MixerHandler) HandleFade(w http.ResponseWriter, r *http.Request) {
	var req fadeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.mixer.SetFadeDuration(req.Seconds); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.persist(r.Context(), config.KeyFadeDuration, strconv.FormatFloat(req.Seconds, 'f', -1, 64))

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"seconds": req.Seconds,
	})
}

// HandleEffect handles PUT /api/mixer/effects/{effect}
func (h *MixerHandler) HandleEffect(w http.ResponseWriter, r *http.Request) {
	e, err := audio.ParseEffect(r.PathValue("effect"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req effectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.mixer.SetEffect(e, req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	h.persist(r.Context(), effectKey(e), strconv.FormatBool(req.Enabled))

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"effects": h.mixer.State().Effects,
	})
}

// HandleForceUpdate handles POST /api/mixer/force-update
func (h *MixerHandler) HandleForceUpdate(w http.ResponseWriter, r *http.Request) {
	h.mixer.ForceUpdate()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleWake handles POST /api/mixer/wake
func (h *MixerHandler) HandleWake(w http.ResponseWriter, r *http.Request) {
	if err := h.mixer.Wake(r.Context()); err != nil {
		slog.Warn("Audio wake failed", "error", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"engine_ready": h.mixer.State().EngineReady,
	})
}

// HandleReset handles POST /api/mixer/reset
func (h *MixerHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.mixer.ResetVolumes()
	if h.store != nil {
		ctx := r.Context()
		_ = h.store.DeleteState(ctx, config.KeyMasterVolume)
		for _, z := range zone.Names {
			_ = h.store.DeleteState(ctx, config.ZoneVolumeKey(string(z)))
		}
	}
	writeJSON(w, http.StatusOK, h.mixer.State())
}

// HandleTestTone handles POST /api/mixer/test-tone
func (h *MixerHandler) HandleTestTone(w http.ResponseWriter, r *http.Request) {
	var req toneRequest
	if !decodeBody(w, r, &req) {
		return
	}
	z, err := zone.ParseName(req.Zone)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Frequency == 0 {
		req.Frequency = 440
	}
	if req.DurationMS == 0 {
		req.DurationMS = 1000
	}
	if int64(req.DurationMS) > maxToneDuration.Milliseconds() {
		http.Error(w, fmt.Sprintf("test tone longer than %s", maxToneDuration), http.StatusBadRequest)
		return
	}
	d := time.Duration(req.DurationMS) * time.Millisecond
	if err := h.mixer.PlayTestTone(z, req.Frequency, d); err != nil {
		http.Error(w, err.Error(), statusForTone(err))
		return
	}
	slog.Debug("Test tone", "zone", z, "frequency", req.Frequency, "duration", d)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusForTone(err error) int {
	if s := statusFor(err); s != http.StatusInternalServerError {
		return s
	}
	return http.StatusBadRequest
}

// HandlePosition handles POST /api/mixer/position. When the position source
// accepts manual positions it is moved and the position loop picks the change
// up; otherwise the mixer is updated directly.
func (h *MixerHandler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if math.IsNaN(req.Position) || math.IsInf(req.Position, 0) {
		http.Error(w, "invalid position", http.StatusBadRequest)
		return
	}
	if req.Vehicle != "" {
		if _, err := h.vehicles.Get(req.Vehicle); err != nil {
			writeError(w, err)
			return
		}
		h.persist(r.Context(), config.KeyActiveVehicle, req.Vehicle)
	}

	if p, ok := h.sim.(sim.Positioner); ok {
		if err := p.SetPosition(req.Position, req.Vehicle); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		vehicle := req.Vehicle
		if vehicle == "" {
			vehicle = h.cfg.ActiveVehicle(r.Context())
		}
		h.mixer.UpdatePosition(req.Position, h.vehicles.Lookup(vehicle))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"position": req.Position,
	})
}

// HandleSpectrum handles GET /api/mixer/spectrum
func (h *MixerHandler) HandleSpectrum(w http.ResponseWriter, r *http.Request) {
	bins, err := h.mixer.Spectrum()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bins":  bins,
		"level": h.mixer.Level(),
	})
}

func (h *MixerHandler) persist(ctx context.Context, key, val string) {
	if h.store == nil {
		return
	}
	if err := h.store.SetState(ctx, key, val); err != nil {
		slog.Error("Failed to persist mixer setting", "key", key, "error", err)
	}
}

func effectKey(e audio.Effect) string {
	switch e {
	case audio.EffectReverb:
		return config.KeyEffectReverb
	case audio.EffectDelay:
		return config.KeyEffectDelay
	default:
		return config.KeyEffectCompress
	}
}
