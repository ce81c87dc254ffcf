package core

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"cabinmix/pkg/config"
	"cabinmix/pkg/logging"
	"cabinmix/pkg/sim"
	"cabinmix/pkg/zone"
)

// PositionJob pushes observer positions into the mixer. It fires when the
// observer moved more than the deadband, when the vehicle changed, or when the
// forced refresh interval elapsed.
type PositionJob struct {
	BaseJob
	cfg      config.Provider
	mixer    PositionMixer
	vehicles VehicleLookup
	now      func() time.Time

	mu          sync.Mutex
	firstRun    bool
	lastPos     float64
	lastVehicle string
	lastTime    time.Time
	lastZone    zone.Name
}

func NewPositionJob(cfg config.Provider, m PositionMixer, vehicles VehicleLookup) *PositionJob {
	return &PositionJob{
		BaseJob:  NewBaseJob("Position"),
		cfg:      cfg,
		mixer:    m,
		vehicles: vehicles,
		now:      time.Now,
		firstRun: true,
	}
}

func (j *PositionJob) ShouldFire(t *sim.Telemetry) bool {
	if j.isRunning() {
		return false
	}
	if math.IsNaN(t.Position) || math.IsInf(t.Position, 0) {
		return false
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.firstRun || t.Vehicle != j.lastVehicle {
		return true
	}

	ctx := context.Background()
	if math.Abs(t.Position-j.lastPos) > j.cfg.Deadband(ctx) {
		return true
	}
	forced := j.cfg.ForcedRefresh(ctx)
	return forced > 0 && j.now().Sub(j.lastTime) >= forced
}

func (j *PositionJob) Run(ctx context.Context, t *sim.Telemetry) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	vehicle := t.Vehicle
	if vehicle == "" {
		vehicle = j.cfg.ActiveVehicle(ctx)
	}
	geom := j.vehicles.Lookup(vehicle)
	j.mixer.UpdatePosition(t.Position, geom)

	current := zone.Resolve(t.Position, geom)

	j.mu.Lock()
	prev := j.lastZone
	j.firstRun = false
	j.lastPos = t.Position
	j.lastVehicle = t.Vehicle
	j.lastTime = j.now()
	j.lastZone = current
	j.mu.Unlock()

	if current != prev {
		slog.Debug("PositionJob: Zone changed", "from", prev, "to", current, "position", t.Position, "vehicle", vehicle)
		logging.LogEvent(&logging.Event{
			Type:    "zone",
			Title:   fmt.Sprintf("Entered %s", current),
			Summary: fmt.Sprintf("position %.2fm in %s", t.Position, vehicle),
		})
	}
}

// ResetSession forgets the last pushed sample so the next tick fires.
func (j *PositionJob) ResetSession(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.firstRun = true
	j.lastZone = ""
}
