package core

import (
	"context"
	"testing"

	"cabinmix/pkg/sim"
)

type memState struct {
	data   map[string]string
	writes int
}

func (m *memState) GetState(ctx context.Context, key string) (string, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *memState) SetState(ctx context.Context, key, val string) error {
	m.writes++
	m.data[key] = val
	return nil
}

func (m *memState) DeleteState(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestPositionPersistence(t *testing.T) {
	ctx := context.Background()
	st := &memState{data: map[string]string{}}

	if _, ok := LoadLastPosition(ctx, st); ok {
		t.Fatal("expected no saved position")
	}

	p := NewPositionPersistence(st)
	tel := sim.Telemetry{Position: -17.2, CameraState: 2, Vehicle: "B787"}
	p.Save(ctx, tel)
	p.Save(ctx, tel)
	if st.writes != 1 {
		t.Errorf("expected one write for identical samples, got %d", st.writes)
	}

	got, ok := LoadLastPosition(ctx, st)
	if !ok || got != tel {
		t.Errorf("LoadLastPosition() = %+v, %v", got, ok)
	}

	st.data[KeyLastPosition] = "{broken"
	if _, ok := LoadLastPosition(ctx, st); ok {
		t.Error("expected corrupt value to be ignored")
	}
}
