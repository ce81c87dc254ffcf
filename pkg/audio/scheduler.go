package audio

import (
	"math"
	"time"

	"cabinmix/pkg/zone"
)

// Epsilon is the smallest gain change worth a ramp.
const Epsilon = 0.01

// Scheduler writes gain ramps onto the zone buses. Each zone is independent;
// a new request always starts from the gain the bus is producing right now.
type Scheduler struct {
	engine Engine
	buses  map[zone.Name]*Bus
}

// NewScheduler creates a scheduler over the given buses.
func NewScheduler(engine Engine, buses map[zone.Name]*Bus) *Scheduler {
	return &Scheduler{engine: engine, buses: buses}
}

// TransitionTo cancels the zone's ramp in flight and schedules a linear ramp
// from the current gain to target over d. When the current gain is already
// within Epsilon of target the bus is held where it is and no ramp is
// scheduled. It reports whether a ramp was scheduled.
func (s *Scheduler) TransitionTo(z zone.Name, target float64, d time.Duration) bool {
	b, ok := s.buses[z]
	if !ok {
		return false
	}
	target = clampGain(target)

	s.engine.Lock()
	defer s.engine.Unlock()

	cur := b.Gain()
	if math.Abs(cur-target) < Epsilon {
		if !b.Transition().Done(b.Now()) {
			b.Set(cur)
		}
		return false
	}
	b.RampTo(target, d)
	return true
}

// Apply jumps the zone's bus to v without a ramp.
func (s *Scheduler) Apply(z zone.Name, v float64) {
	b, ok := s.buses[z]
	if !ok {
		return
	}
	s.engine.Lock()
	b.Set(clampGain(v))
	s.engine.Unlock()
}

// Gain returns the instantaneous gain of a zone bus.
func (s *Scheduler) Gain(z zone.Name) float64 {
	b, ok := s.buses[z]
	if !ok {
		return 0
	}
	s.engine.Lock()
	defer s.engine.Unlock()
	return b.Gain()
}

func clampGain(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
