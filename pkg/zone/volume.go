package zone

import (
	"fmt"
	"math"
)

// DefaultTransitionBuffer is how far each zone is extended past its edges.
const DefaultTransitionBuffer = 0.2

// GeometryWarning describes a zone that was muted because its geometry or the
// position could not be used.
type GeometryWarning struct {
	Zone   Name
	Reason string
}

func (w GeometryWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Zone, w.Reason)
}

// Resolve returns the zone that contains pos. Overlapping edges resolve toward
// the innermost zone; positions outside every zone resolve to Outside.
func Resolve(pos float64, cfg Config) Name {
	if !isFinite(pos) {
		return Outside
	}
	for _, n := range precedence {
		z, ok := cfg[n]
		if !ok || !z.Finite() {
			continue
		}
		if z.Contains(pos) {
			return n
		}
	}
	return Outside
}

// Calculate returns the normalized gain of every zone at pos. The result
// always holds all canonical zones and never sums to more than 1.
func Calculate(pos float64, cfg Config, buffer float64) (Gains, []GeometryWarning) {
	if !isFinite(buffer) || buffer < 0 {
		buffer = DefaultTransitionBuffer
	}

	gains := make(Gains, len(Names))
	var warnings []GeometryWarning

	if !isFinite(pos) {
		for _, n := range Names {
			gains[n] = 0
		}
		return gains, []GeometryWarning{{Zone: Outside, Reason: fmt.Sprintf("non-finite position %v", pos)}}
	}

	for _, n := range Names {
		z, ok := cfg[n]
		switch {
		case !ok:
			gains[n] = 0
			warnings = append(warnings, GeometryWarning{Zone: n, Reason: "zone missing"})
		case !z.Finite():
			gains[n] = 0
			warnings = append(warnings, GeometryWarning{Zone: n, Reason: fmt.Sprintf("non-finite bounds [%v, %v]", z.Start, z.End)})
		default:
			gains[n] = rawGain(pos, z, buffer)
		}
	}

	if sum := gains.Sum(); sum > 1 {
		for n, g := range gains {
			gains[n] = g / sum
		}
	}
	return gains, warnings
}

func rawGain(pos float64, z Zone, buffer float64) float64 {
	base := clamp01(z.BaseVolume)
	lo, hi := z.Bounds()

	if lo == hi {
		if math.Abs(pos-lo) <= buffer {
			return base
		}
		return 0
	}

	if pos < lo-buffer || pos > hi+buffer {
		return 0
	}

	center := (lo + hi) / 2
	halfWidth := (hi-lo)/2 + buffer
	dist := clamp01(math.Abs(pos-center) / halfWidth)

	return base * math.Cos(dist*math.Pi/2)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
