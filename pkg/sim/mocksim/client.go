// Package mocksim walks a simulated observer through a vehicle's zones.
package mocksim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"cabinmix/pkg/sim"
	"cabinmix/pkg/zone"
)

const (
	StepWalk = "WALK"
	StepWait = "WAIT"

	tickRateMs = 100

	defaultSpeed = 1.2 // m/s
)

// Config holds the walk parameters.
type Config struct {
	Vehicle  string
	Geometry zone.Config
	Speed    float64 // meters per second
	Dwell    time.Duration
	StartPos float64
}

// ScenarioStep is one leg of the walk.
type ScenarioStep struct {
	Type     string
	Target   float64       // for WALK
	Duration time.Duration // for WAIT
}

// MockClient implements sim.Client and sim.Positioner.
type MockClient struct {
	mu          sync.Mutex
	tel         sim.Telemetry
	config      Config
	session     string
	scenario    []ScenarioStep
	scenarioIdx int
	stepStart   time.Time
	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewClient creates a mock client and starts the walk loop.
func NewClient(cfg Config) *MockClient {
	m := newClient(cfg)
	slog.Info("Mock walk started", "session", m.session, "vehicle", cfg.Vehicle, "legs", len(m.scenario))

	m.wg.Add(1)
	go m.walkLoop()
	return m
}

func newClient(cfg Config) *MockClient {
	if cfg.Speed <= 0 {
		cfg.Speed = defaultSpeed
	}
	if cfg.Dwell < 0 {
		cfg.Dwell = 0
	}
	if len(cfg.Geometry) == 0 {
		cfg.Geometry = zone.Default()
	}
	m := &MockClient{
		config:  cfg,
		session: uuid.NewString(),
		stopCh:  make(chan struct{}),
		tel: sim.Telemetry{
			Position:    cfg.StartPos,
			CameraState: 2,
			Vehicle:     cfg.Vehicle,
		},
	}
	m.scenario = Scenario(cfg.Geometry, cfg.StartPos, cfg.Dwell)
	return m
}

// Scenario builds the round trip from start to the cockpit and back, dwelling
// at the center of every zone on the way.
func Scenario(geom zone.Config, start float64, dwell time.Duration) []ScenarioStep {
	var inward []float64
	for _, n := range zone.Names[1:] {
		z, ok := geom[n]
		if !ok || !z.Finite() {
			continue
		}
		inward = append(inward, (z.Start+z.End)/2)
	}

	var steps []ScenarioStep
	leg := func(target float64) {
		steps = append(steps,
			ScenarioStep{Type: StepWalk, Target: target},
			ScenarioStep{Type: StepWait, Duration: dwell},
		)
	}
	for _, p := range inward {
		leg(p)
	}
	for i := len(inward) - 2; i >= 0; i-- {
		leg(inward[i])
	}
	leg(start)
	return steps
}

// Session returns the id of this walk, for correlating logs.
func (m *MockClient) Session() string {
	return m.session
}

// SetScenario replaces the walk. Used by tests and the render tool.
func (m *MockClient) SetScenario(steps []ScenarioStep) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenario = steps
	m.scenarioIdx = 0
	m.stepStart = time.Time{}
}

func (m *MockClient) GetTelemetry(ctx context.Context) (sim.Telemetry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tel, nil
}

// GetState returns the activity state. The mock is always active.
func (m *MockClient) GetState() sim.State {
	return sim.StateActive
}

// SetPosition teleports the observer; the walk resumes from there.
func (m *MockClient) SetPosition(pos float64, vehicle string) error {
	if math.IsNaN(pos) || math.IsInf(pos, 0) {
		return fmt.Errorf("mocksim: invalid position %v", pos)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tel.Position = pos
	if vehicle != "" {
		m.tel.Vehicle = vehicle
	}
	return nil
}

// Close stops the walk loop.
func (m *MockClient) Close() error {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
	return nil
}

func (m *MockClient) walkLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(time.Duration(tickRateMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			m.advance(float64(tickRateMs)/1000.0, now)
			m.mu.Unlock()
		}
	}
}

// advance moves the walk forward by dt seconds. Caller holds m.mu.
func (m *MockClient) advance(dt float64, now time.Time) {
	if len(m.scenario) == 0 {
		return
	}
	if m.scenarioIdx >= len(m.scenario) {
		m.scenarioIdx = 0
		m.stepStart = time.Time{}
	}

	step := m.scenario[m.scenarioIdx]
	switch step.Type {
	case StepWalk:
		delta := step.Target - m.tel.Position
		move := m.config.Speed * dt
		if math.Abs(delta) <= move {
			m.tel.Position = step.Target
			m.nextStep()
		} else {
			m.tel.Position += math.Copysign(move, delta)
		}
	case StepWait:
		if m.stepStart.IsZero() {
			m.stepStart = now
		}
		if now.Sub(m.stepStart) >= step.Duration {
			m.nextStep()
		}
	default:
		m.nextStep()
	}
}

func (m *MockClient) nextStep() {
	m.scenarioIdx = (m.scenarioIdx + 1) % len(m.scenario)
	m.stepStart = time.Time{}
}
