package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrNotConnected is returned when the position source has no data yet.
var ErrNotConnected = errors.New("sim: not connected")

// Client defines a source of observer positions.
type Client interface {
	// GetTelemetry returns the latest observer sample.
	GetTelemetry(ctx context.Context) (Telemetry, error)
	// GetState returns the current connection/activity state.
	GetState() State
	// Close releases resources.
	Close() error
}

// Positioner is implemented by clients whose position can be set from outside,
// e.g. by the manual positioning endpoint.
type Positioner interface {
	SetPosition(pos float64, vehicle string) error
}

// Telemetry is one observer sample along the vehicle's long axis.
type Telemetry struct {
	// Position in meters; positive is beyond the door, negative is inside.
	Position    float64 `json:"position"`
	CameraState int32   `json:"camera_state"`
	Vehicle     string  `json:"vehicle"`
}

// StaticClient holds a position until it is told otherwise.
type StaticClient struct {
	mu    sync.RWMutex
	tel   Telemetry
	state State
}

// NewStaticClient creates a client parked at pos in the given vehicle.
func NewStaticClient(pos float64, vehicle string) *StaticClient {
	return &StaticClient{
		tel:   Telemetry{Position: pos, CameraState: 2, Vehicle: vehicle},
		state: StateActive,
	}
}

func (c *StaticClient) GetTelemetry(ctx context.Context) (Telemetry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state == StateDisconnected {
		return Telemetry{}, ErrNotConnected
	}
	return c.tel, nil
}

func (c *StaticClient) GetState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SetPosition moves the observer. An empty vehicle keeps the current one.
func (c *StaticClient) SetPosition(pos float64, vehicle string) error {
	if math.IsNaN(pos) || math.IsInf(pos, 0) {
		return fmt.Errorf("sim: invalid position %v", pos)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tel.Position = pos
	if vehicle != "" {
		c.tel.Vehicle = vehicle
	}
	return nil
}

// SetCamera applies a camera state the way a live sim would report it.
func (c *StaticClient) SetCamera(cameraState int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tel.CameraState = cameraState
	if s := UpdateState(cameraState); s != nil {
		c.state = *s
	}
}

func (c *StaticClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateDisconnected
	return nil
}
