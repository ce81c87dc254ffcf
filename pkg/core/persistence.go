package core

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"cabinmix/pkg/sim"
	"cabinmix/pkg/store"
)

// KeyLastPosition is the state key holding the last observer sample.
const KeyLastPosition = "last_position"

// PositionPersistence saves the last observer sample so a restart can resume
// where the observer stood. Save is meant to run as a TimeJob action.
type PositionPersistence struct {
	st store.StateStore

	lastSaved []byte
}

func NewPositionPersistence(st store.StateStore) *PositionPersistence {
	return &PositionPersistence{st: st}
}

// Save writes the sample when it differs from the last one written.
func (p *PositionPersistence) Save(ctx context.Context, tel sim.Telemetry) {
	data, err := json.Marshal(tel)
	if err != nil {
		slog.Error("Persistence: Failed to serialize position", "error", err)
		return
	}
	if bytes.Equal(data, p.lastSaved) {
		return
	}
	if err := p.st.SetState(ctx, KeyLastPosition, string(data)); err != nil {
		slog.Error("Persistence: Failed to save position", "error", err)
		return
	}
	p.lastSaved = data
	slog.Debug("Persistence: Position saved", "position", tel.Position, "vehicle", tel.Vehicle)
}

// LoadLastPosition returns the persisted sample, if any.
func LoadLastPosition(ctx context.Context, st store.StateStore) (sim.Telemetry, bool) {
	raw, ok := st.GetState(ctx, KeyLastPosition)
	if !ok || raw == "" {
		return sim.Telemetry{}, false
	}
	var tel sim.Telemetry
	if err := json.Unmarshal([]byte(raw), &tel); err != nil {
		slog.Warn("Persistence: Ignoring corrupt position", "error", err)
		return sim.Telemetry{}, false
	}
	return tel, true
}
