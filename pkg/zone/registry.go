package zone

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrUnknownVehicle is returned when a vehicle id has no registered config.
var ErrUnknownVehicle = errors.New("zone: unknown vehicle")

// DefaultVehicle is used when the position source does not name a vehicle.
const DefaultVehicle = "A320"

// Registry is the per-vehicle geometry store. It only ever holds configs
// that passed Validate.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]Config
}

// NewRegistry returns a registry seeded with the built-in vehicles.
func NewRegistry() *Registry {
	r := &Registry{configs: make(map[string]Config)}
	for id, cfg := range builtinVehicles() {
		r.configs[id] = cfg
	}
	return r
}

// Register validates cfg and stores it under id. On error the previously
// registered config for id, if any, stays in effect.
func (r *Registry) Register(id string, cfg Config) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("zone: empty vehicle id")
	}
	if cfg.unset() {
		cfg = Default().WithBaseVolumes(baseVolumesOf(cfg))
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("register %s: %w", id, err)
	}

	r.mu.Lock()
	r.configs[id] = cfg.Clone()
	r.mu.Unlock()
	return nil
}

// Get returns a copy of the config for id.
func (r *Registry) Get(id string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVehicle, id)
	}
	return cfg.Clone(), nil
}

// Lookup returns the config for id, falling back to the default vehicle.
func (r *Registry) Lookup(id string) Config {
	if cfg, err := r.Get(id); err == nil {
		return cfg
	}
	if cfg, err := r.Get(DefaultVehicle); err == nil {
		return cfg
	}
	return Default()
}

// Vehicles returns the registered ids in sorted order.
func (r *Registry) Vehicles() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.configs))
	for id := range r.configs {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// vehicleFile is the YAML layout accepted by LoadFile.
type vehicleFile struct {
	Vehicles map[string]Config `yaml:"vehicles"`
}

// LoadFile registers every vehicle in a YAML geometry file. Invalid entries
// are logged and skipped; the count of registered entries is returned.
func (r *Registry) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read vehicle file: %w", err)
	}
	var vf vehicleFile
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return 0, fmt.Errorf("failed to parse vehicle file: %w", err)
	}

	n := 0
	for id, cfg := range vf.Vehicles {
		if err := r.Register(id, cfg); err != nil {
			slog.Warn("Skipping vehicle geometry", "vehicle", id, "error", err)
			continue
		}
		n++
	}
	return n, nil
}

func baseVolumesOf(cfg Config) map[Name]float64 {
	vols := DefaultBaseVolumes()
	for n, z := range cfg {
		if _, ok := vols[n]; ok && z.BaseVolume != 0 {
			vols[n] = z.BaseVolume
		}
	}
	return vols
}

// cabinGeometry lays out a vehicle with the reference outside and jetway
// zones followed by a cabin of the given length and a cockpit behind it.
func cabinGeometry(cabinLen, cockpitLen float64) Config {
	v := DefaultBaseVolumes()
	cabinEnd := -12.0 - cabinLen
	return Config{
		Outside: {Start: 0.0, End: -1.6, BaseVolume: v[Outside]},
		Jetway:  {Start: -1.6, End: -12.0, BaseVolume: v[Jetway]},
		Cabin:   {Start: -12.0, End: cabinEnd, BaseVolume: v[Cabin]},
		Cockpit: {Start: cabinEnd, End: cabinEnd - cockpitLen, BaseVolume: v[Cockpit]},
	}
}

func builtinVehicles() map[string]Config {
	return map[string]Config{
		"A319":   cabinGeometry(8.6, 1.9),
		"A320":   Default(),
		"A321":   cabinGeometry(13.9, 1.9),
		"A350":   cabinGeometry(19.4, 2.2),
		"B737":   cabinGeometry(10.0, 1.8),
		"B787":   cabinGeometry(17.6, 2.1),
		"B747":   cabinGeometry(22.0, 2.4),
		"CRJ":    cabinGeometry(6.8, 1.6),
		"E-Jet":  cabinGeometry(8.0, 1.7),
		"Custom": Default(),
	}
}
