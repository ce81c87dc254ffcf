package probe

import (
	"context"
	"errors"
	"fmt"

	"cabinmix/pkg/zone"
)

// Pinger is satisfied by *db.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ReadyChecker is satisfied by the audio engines.
type ReadyChecker interface {
	Ready() bool
}

// VehicleGetter is satisfied by *zone.Registry.
type VehicleGetter interface {
	Get(id string) (zone.Config, error)
}

// ErrEngineSuspended is reported while the output device is not running.
var ErrEngineSuspended = errors.New("audio engine suspended; updates are queued until resume")

// Database checks that the state database answers.
func Database(p Pinger) Probe {
	return Probe{
		Name:     "Database",
		Critical: true,
		Check: func(ctx context.Context) error {
			return p.PingContext(ctx)
		},
	}
}

// AudioEngine reports a suspended engine. The mixer queues updates meanwhile,
// so this is not critical.
func AudioEngine(e ReadyChecker) Probe {
	return Probe{
		Name:     "Audio Engine",
		Critical: false,
		Check: func(ctx context.Context) error {
			if !e.Ready() {
				return ErrEngineSuspended
			}
			return nil
		},
	}
}

// Vehicle checks that the active vehicle resolves to a valid geometry.
func Vehicle(reg VehicleGetter, id string) Probe {
	return Probe{
		Name:     "Vehicle Registry",
		Critical: true,
		Check: func(ctx context.Context) error {
			cfg, err := reg.Get(id)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("vehicle %s: %w", id, err)
			}
			return nil
		},
	}
}
