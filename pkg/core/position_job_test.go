package core

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cabinmix/pkg/config"
	"cabinmix/pkg/logging"
	"cabinmix/pkg/sim"
	"cabinmix/pkg/zone"
)

type mixerCall struct {
	pos float64
	cfg zone.Config
}

type mockMixer struct {
	mu    sync.Mutex
	calls []mixerCall
}

func (m *mockMixer) UpdatePosition(pos float64, cfg zone.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mixerCall{pos: pos, cfg: cfg})
}

func (m *mockMixer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockMixer) last() mixerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

func TestPositionJob_Triggers(t *testing.T) {
	prov := config.NewProvider(config.DefaultConfig(), nil)
	mixer := &mockMixer{}
	reg := zone.NewRegistry()
	job := NewPositionJob(prov, mixer, reg)

	now := time.Unix(1000, 0)
	job.now = func() time.Time { return now }
	ctx := context.Background()

	steps := []struct {
		name     string
		tel      sim.Telemetry
		advance  time.Duration
		wantFire bool
	}{
		{"first sample", sim.Telemetry{Position: -5, Vehicle: "A320"}, 0, true},
		{"inside deadband", sim.Telemetry{Position: -5.05, Vehicle: "A320"}, 0, false},
		{"beyond deadband", sim.Telemetry{Position: -5.2, Vehicle: "A320"}, 0, true},
		{"vehicle change", sim.Telemetry{Position: -5.2, Vehicle: "B747"}, 0, true},
		{"idle before refresh", sim.Telemetry{Position: -5.2, Vehicle: "B747"}, time.Second, false},
		{"forced refresh", sim.Telemetry{Position: -5.2, Vehicle: "B747"}, time.Second, true},
	}

	fired := 0
	for _, s := range steps {
		now = now.Add(s.advance)
		tel := s.tel
		got := job.ShouldFire(&tel)
		if got != s.wantFire {
			t.Errorf("%s: ShouldFire() = %v, want %v", s.name, got, s.wantFire)
		}
		if got {
			job.Run(ctx, &tel)
			fired++
		}
	}

	if mixer.count() != fired {
		t.Fatalf("expected %d mixer updates, got %d", fired, mixer.count())
	}
	want, _ := reg.Get("B747")
	if last := mixer.last(); last.pos != -5.2 || last.cfg[zone.Cabin] != want[zone.Cabin] {
		t.Errorf("unexpected last update %+v", last)
	}

	job.ResetSession(ctx)
	tel := sim.Telemetry{Position: -5.2, Vehicle: "B747"}
	if !job.ShouldFire(&tel) {
		t.Error("expected fire after reset")
	}
}

func TestPositionJob_IgnoresNonFinite(t *testing.T) {
	job := NewPositionJob(config.NewProvider(config.DefaultConfig(), nil), &mockMixer{}, zone.NewRegistry())
	tel := sim.Telemetry{Position: math.NaN(), Vehicle: "A320"}
	if job.ShouldFire(&tel) {
		t.Error("NaN position should not fire")
	}
}

func TestPositionJob_EmptyVehicleUsesActive(t *testing.T) {
	mixer := &mockMixer{}
	reg := zone.NewRegistry()
	job := NewPositionJob(config.NewProvider(config.DefaultConfig(), nil), mixer, reg)

	tel := sim.Telemetry{Position: -17}
	job.Run(context.Background(), &tel)

	want, _ := reg.Get("A320")
	if got := mixer.last().cfg; got[zone.Jetway] != want[zone.Jetway] {
		t.Errorf("expected the A320 geometry, got %+v", got)
	}
}

func TestPositionJob_ZoneEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.log")
	logging.SetEventLogPath(path)
	defer logging.SetEventLogPath("")

	job := NewPositionJob(config.NewProvider(config.DefaultConfig(), nil), &mockMixer{}, zone.NewRegistry())
	ctx := context.Background()
	for _, p := range []float64{-5, -6, -17.2} {
		tel := sim.Telemetry{Position: p, Vehicle: "A320"}
		job.Run(ctx, &tel)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read event log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 zone events, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[zone] Entered jetway") || !strings.Contains(lines[1], "Entered cabin") {
		t.Errorf("unexpected events %q", lines)
	}
}
