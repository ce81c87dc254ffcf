package audio

import (
	"time"

	"github.com/gopxl/beep/v2"
)

// Bus is a gain stage driven by a Transition. It keeps its own sample clock so
// a scheduled ramp plays out exactly as written regardless of block size.
//
// Bus is not internally synchronized. Stream runs on the engine goroutine
// with the engine lock held; callers must hold the same lock for every other
// method.
type Bus struct {
	name  string
	input beep.Streamer
	rate  beep.SampleRate
	pos   int64
	ramp  Transition
}

// NewBus creates a bus with the given input and initial gain.
func NewBus(name string, rate beep.SampleRate, input beep.Streamer, gain float64) *Bus {
	return &Bus{
		name:  name,
		input: input,
		rate:  rate,
		ramp:  Transition{From: gain, To: gain},
	}
}

// Stream renders the input with the ramp applied. A bus never drains: a
// short or exhausted input is padded with silence.
func (b *Bus) Stream(samples [][2]float64) (n int, ok bool) {
	got := 0
	if b.input != nil {
		got, _ = b.input.Stream(samples)
	}
	for i := got; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}

	if b.ramp.Done(b.pos) {
		g := b.ramp.To
		for i := range samples {
			samples[i][0] *= g
			samples[i][1] *= g
		}
	} else {
		for i := range samples {
			g := b.ramp.ValueAt(b.pos + int64(i))
			samples[i][0] *= g
			samples[i][1] *= g
		}
	}

	b.pos += int64(len(samples))
	return len(samples), true
}

func (b *Bus) Err() error { return nil }

// Name returns the bus label used in topology listings.
func (b *Bus) Name() string { return b.name }

// Now returns the bus clock in frames.
func (b *Bus) Now() int64 { return b.pos }

// Gain returns the gain the bus is applying at this instant, including any
// ramp in progress.
func (b *Bus) Gain() float64 { return b.ramp.ValueAt(b.Now()) }

// Target returns the gain the current ramp is heading for.
func (b *Bus) Target() float64 { return b.ramp.To }

// Transition returns the current ramp.
func (b *Bus) Transition() Transition { return b.ramp }

// RampTo replaces any ramp in flight with one from the current gain to target.
func (b *Bus) RampTo(target float64, d time.Duration) {
	now := b.Now()
	b.ramp = Transition{From: b.ramp.ValueAt(now), To: target, StartedAt: now, Length: int64(b.rate.N(d))}
}

// Set jumps to v immediately.
func (b *Bus) Set(v float64) {
	b.ramp = Transition{From: v, To: v, StartedAt: b.Now()}
}
