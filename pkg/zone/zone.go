// Package zone models the longitudinal zones of a vehicle interior and the
// pure functions that turn an observer position into per-zone gains.
package zone

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Name identifies a zone along the tracked axis.
type Name string

const (
	Outside Name = "outside"
	Jetway  Name = "jetway"
	Cabin   Name = "cabin"
	Cockpit Name = "cockpit"
)

// Names lists the canonical zones from the outermost to the innermost.
var Names = []Name{Outside, Jetway, Cabin, Cockpit}

// precedence is the innermost-first order used to break ties at shared edges.
var precedence = []Name{Cockpit, Cabin, Jetway, Outside}

// Errors returned when a Config is registered.
var (
	ErrMissingZone = errors.New("zone: missing canonical zone")
	ErrUnknownZone = errors.New("zone: unknown zone")
	ErrBaseVolume  = errors.New("zone: base volume out of range")
)

// ParseName converts a user-supplied value into a canonical Name.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	if !n.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownZone, s)
	}
	return n, nil
}

// Valid reports whether n is one of the four canonical zones.
func (n Name) Valid() bool {
	switch n {
	case Outside, Jetway, Cabin, Cockpit:
		return true
	}
	return false
}

// Zone is one region of the axis. Start and End may be given in either order.
type Zone struct {
	Start      float64 `yaml:"start" json:"start"`
	End        float64 `yaml:"end" json:"end"`
	BaseVolume float64 `yaml:"base_volume" json:"base_volume"`
}

// Bounds returns the zone's absolute range as (low, high).
func (z Zone) Bounds() (lo, hi float64) {
	return math.Min(z.Start, z.End), math.Max(z.Start, z.End)
}

// Contains reports whether pos lies inside the inclusive absolute range.
func (z Zone) Contains(pos float64) bool {
	lo, hi := z.Bounds()
	return pos >= lo && pos <= hi
}

// Finite reports whether both boundaries are usable numbers.
func (z Zone) Finite() bool {
	return isFinite(z.Start) && isFinite(z.End)
}

// Config is the zone geometry of one vehicle type.
type Config map[Name]Zone

// Validate checks the shape of the config: exactly the canonical zones, each
// with a base volume in [0,1]. Boundary values are checked at calculation time.
func (c Config) Validate() error {
	for n := range c {
		if !n.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownZone, n)
		}
	}
	for _, n := range Names {
		z, ok := c[n]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingZone, n)
		}
		if math.IsNaN(z.BaseVolume) || z.BaseVolume < 0 || z.BaseVolume > 1 {
			return fmt.Errorf("%w: %s=%v", ErrBaseVolume, n, z.BaseVolume)
		}
	}
	return nil
}

// Clone returns an independent copy of the config.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for n, z := range c {
		out[n] = z
	}
	return out
}

// WithBaseVolumes returns a copy of c with the given base volumes applied.
func (c Config) WithBaseVolumes(vols map[Name]float64) Config {
	out := c.Clone()
	for n, v := range vols {
		if z, ok := out[n]; ok {
			z.BaseVolume = v
			out[n] = z
		}
	}
	return out
}

// unset reports whether every boundary of the config is zero.
func (c Config) unset() bool {
	for _, z := range c {
		if z.Start != 0 || z.End != 0 {
			return false
		}
	}
	return true
}

// Gains maps each zone to a gain in [0,1].
type Gains map[Name]float64

// Sum returns the total of all gains.
func (g Gains) Sum() float64 {
	var s float64
	for _, v := range g {
		s += v
	}
	return s
}

// DefaultBaseVolumes are the per-zone levels used when nothing else is set.
func DefaultBaseVolumes() map[Name]float64 {
	return map[Name]float64{
		Outside: 0.45,
		Jetway:  0.8,
		Cabin:   0.7,
		Cockpit: 0.65,
	}
}

// Default returns the reference narrow-body geometry.
func Default() Config {
	v := DefaultBaseVolumes()
	return Config{
		Outside: {Start: 0.0, End: -1.6, BaseVolume: v[Outside]},
		Jetway:  {Start: -1.6, End: -12.0, BaseVolume: v[Jetway]},
		Cabin:   {Start: -12.0, End: -22.4, BaseVolume: v[Cabin]},
		Cockpit: {Start: -22.4, End: -24.3, BaseVolume: v[Cockpit]},
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
