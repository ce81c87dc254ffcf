package core

import (
	"context"
	"log/slog"
	"time"

	"cabinmix/pkg/config"
	"cabinmix/pkg/sim"
)

// TelemetrySink is an interface for consumers of the position stream.
type TelemetrySink interface {
	Update(t *sim.Telemetry)
	UpdateState(s sim.State)
}

// Scheduler manages the position heartbeat and scheduled jobs.
type Scheduler struct {
	cfg         config.Provider
	sim         sim.Client
	sink        TelemetrySink
	jobs        []Job
	resettables []SessionResettable

	lastVehicle string
}

// NewScheduler creates a new Scheduler.
func NewScheduler(cfg config.Provider, simClient sim.Client, sink TelemetrySink) *Scheduler {
	return &Scheduler{
		cfg:  cfg,
		sim:  simClient,
		sink: sink,
		jobs: []Job{},
	}
}

// AddJob registers a job.
func (s *Scheduler) AddJob(j Job) {
	s.jobs = append(s.jobs, j)
}

// AddResettable registers a component to reset on vehicle change.
func (s *Scheduler) AddResettable(r SessionResettable) {
	s.resettables = append(s.resettables, r)
}

// Start runs the main loop. It blocks until context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	interval := s.cfg.PositionLoop(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Scheduler started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	simState := s.sim.GetState()
	if s.sink != nil {
		s.sink.UpdateState(simState)
	}

	// Paused or in a menu: the mix stays where it was.
	if simState != sim.StateActive {
		return
	}

	tel, err := s.sim.GetTelemetry(ctx)
	if err != nil {
		slog.Debug("failed to read telemetry", "error", err)
		return
	}

	if s.sink != nil {
		s.sink.Update(&tel)
	}

	if s.lastVehicle != "" && tel.Vehicle != s.lastVehicle {
		slog.Info("Vehicle changed, resetting session", "from", s.lastVehicle, "to", tel.Vehicle)
		for _, r := range s.resettables {
			r.ResetSession(ctx)
		}
	}
	s.lastVehicle = tel.Vehicle

	for _, job := range s.jobs {
		if job.ShouldFire(&tel) {
			// Fire and forget
			go job.Run(ctx, &tel)
		}
	}
}
