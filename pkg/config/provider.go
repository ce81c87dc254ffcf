package config

import (
	"context"
	"strconv"
	"time"

	"cabinmix/pkg/store"
)

// Provider defines the interface for accessing unified configuration.
type Provider interface {
	// General
	SimProvider(ctx context.Context) string
	ActiveVehicle(ctx context.Context) string

	// Mixer
	MasterVolume(ctx context.Context) float64
	FadeDuration(ctx context.Context) time.Duration
	TransitionBuffer(ctx context.Context) float64
	ZoneVolumes(ctx context.Context, zones []string) map[string]float64

	// Effects
	Reverb(ctx context.Context) bool
	Delay(ctx context.Context) bool
	Compression(ctx context.Context) bool

	// Position polling
	PositionLoop(ctx context.Context) time.Duration
	Deadband(ctx context.Context) float64
	ForcedRefresh(ctx context.Context) time.Duration

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

// --- Implementations ---

func (p *UnifiedProvider) SimProvider(ctx context.Context) string {
	fallback := p.base.Sim.Provider
	if fallback == "" {
		fallback = "mock"
	}
	return p.getString(ctx, KeySimSource, fallback)
}

func (p *UnifiedProvider) ActiveVehicle(ctx context.Context) string {
	fallback := p.base.Vehicles.Default
	if fallback == "" {
		fallback = "A320"
	}
	return p.getString(ctx, KeyActiveVehicle, fallback)
}

func (p *UnifiedProvider) MasterVolume(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyMasterVolume, p.base.Audio.MasterVolume)
}

// FadeDuration is stored as seconds.
func (p *UnifiedProvider) FadeDuration(ctx context.Context) time.Duration {
	fallback := time.Duration(p.base.Audio.FadeDuration)
	secs := p.getFloat64(ctx, KeyFadeDuration, -1)
	if secs < 0 {
		return fallback
	}
	return time.Duration(secs * float64(time.Second))
}

func (p *UnifiedProvider) TransitionBuffer(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyTransitionBuffer, p.base.Audio.TransitionBuffer)
}

// ZoneVolumes returns the base volume overrides for the given zones. Zones
// without a configured or persisted override are omitted.
func (p *UnifiedProvider) ZoneVolumes(ctx context.Context, zones []string) map[string]float64 {
	out := make(map[string]float64)
	for _, z := range zones {
		fallback, ok := p.base.Audio.ZoneVolumes[z]
		if !ok {
			fallback = -1
		}
		if v := p.getFloat64(ctx, ZoneVolumeKey(z), fallback); v >= 0 {
			out[z] = v
		}
	}
	return out
}

func (p *UnifiedProvider) Reverb(ctx context.Context) bool {
	return p.getBool(ctx, KeyEffectReverb, p.base.Effects.Reverb)
}

func (p *UnifiedProvider) Delay(ctx context.Context) bool {
	return p.getBool(ctx, KeyEffectDelay, p.base.Effects.Delay)
}

func (p *UnifiedProvider) Compression(ctx context.Context) bool {
	return p.getBool(ctx, KeyEffectCompress, p.base.Effects.Compression)
}

func (p *UnifiedProvider) PositionLoop(ctx context.Context) time.Duration {
	if d := time.Duration(p.base.Ticker.PositionLoop); d > 0 {
		return d
	}
	return 100 * time.Millisecond
}

func (p *UnifiedProvider) Deadband(ctx context.Context) float64 {
	return float64(p.base.Audio.Deadband)
}

func (p *UnifiedProvider) ForcedRefresh(ctx context.Context) time.Duration {
	return time.Duration(p.base.Audio.ForcedRefresh)
}

// --- Helpers ---

func (p *UnifiedProvider) getString(ctx context.Context, key, fallback string) string {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val
		}
	}
	return fallback
}

func (p *UnifiedProvider) getFloat64(ctx context.Context, key string, fallback float64) float64 {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getBool(ctx context.Context, key string, fallback bool) bool {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val == "true"
		}
	}
	return fallback
}
