package core

import (
	"context"

	"cabinmix/pkg/zone"
)

// SessionResettable is implemented by components that hold per-vehicle state
// and must start over when the observer boards a different vehicle.
type SessionResettable interface {
	ResetSession(ctx context.Context)
}

// PositionMixer is the part of the zone mixer driven by the position loop.
type PositionMixer interface {
	UpdatePosition(pos float64, cfg zone.Config)
}

// VehicleLookup resolves a vehicle id to its zone geometry.
type VehicleLookup interface {
	Lookup(id string) zone.Config
}
