package store

import (
	"context"
	"errors"
	"time"

	"cabinmix/pkg/zone"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// VehicleRecord is a persisted custom vehicle geometry.
type VehicleRecord struct {
	ID        string
	Config    zone.Config
	UpdatedAt time.Time
}

// VehicleStore handles custom vehicle geometry persistence.
type VehicleStore interface {
	GetVehicle(ctx context.Context, id string) (zone.Config, error)
	SaveVehicle(ctx context.Context, id string, cfg zone.Config) error
	ListVehicles(ctx context.Context) ([]VehicleRecord, error)
	DeleteVehicle(ctx context.Context, id string) error
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
