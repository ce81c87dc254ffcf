package audio

import (
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-dsp/dsp/effects"
	"github.com/gopxl/beep/v2"
)

const (
	minDelayTime = time.Millisecond
	maxDelayTime = 2 * time.Second
)

// DelaySettings configures the feedback delay.
type DelaySettings struct {
	Time     time.Duration
	Feedback float64
	// Mix is the wet share of the output; 1 outputs the delay line only.
	Mix float64
}

// DefaultDelaySettings returns the fixed 300ms echo.
func DefaultDelaySettings() DelaySettings {
	return DelaySettings{Time: 300 * time.Millisecond, Feedback: 0.3, Mix: 1.0}
}

// Validate checks the settings against the supported ranges.
func (s DelaySettings) Validate() error {
	if s.Time < minDelayTime || s.Time > maxDelayTime {
		return fmt.Errorf("delay time must be in [%s, %s]: %s", minDelayTime, maxDelayTime, s.Time)
	}
	if s.Feedback < 0 || s.Feedback > 0.99 || math.IsNaN(s.Feedback) {
		return fmt.Errorf("delay feedback must be in [0, 0.99]: %f", s.Feedback)
	}
	if s.Mix < 0 || s.Mix > 1 || math.IsNaN(s.Mix) {
		return fmt.Errorf("delay mix must be in [0, 1]: %f", s.Mix)
	}
	return nil
}

// Delay is a stereo feedback delay node running one delay line per channel.
type Delay struct {
	in       Junction
	settings DelaySettings
	lines    [2]*effects.Delay
}

// NewDelay creates a delay node.
func NewDelay(rate beep.SampleRate, s DelaySettings) (*Delay, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	d := &Delay{settings: s}
	for ch := range d.lines {
		line, err := effects.NewDelay(float64(rate))
		if err != nil {
			return nil, err
		}
		if err := configureDelay(line, s); err != nil {
			return nil, err
		}
		d.lines[ch] = line
	}
	return d, nil
}

func configureDelay(line *effects.Delay, s DelaySettings) error {
	if err := line.SetTime(s.Time.Seconds()); err != nil {
		return err
	}
	if err := line.SetFeedback(s.Feedback); err != nil {
		return err
	}
	return line.SetMix(s.Mix)
}

func (d *Delay) Stream(samples [][2]float64) (int, bool) {
	d.in.Stream(samples)
	l, r := d.lines[0], d.lines[1]
	for i := range samples {
		samples[i][0] = l.ProcessSample(samples[i][0])
		samples[i][1] = r.ProcessSample(samples[i][1])
	}
	return len(samples), true
}

func (d *Delay) Err() error { return nil }

func (d *Delay) input() *Junction { return &d.in }

// Reset clears the delay lines.
func (d *Delay) Reset() {
	for _, line := range d.lines {
		line.Reset()
	}
}

// Settings returns the delay configuration.
func (d *Delay) Settings() DelaySettings { return d.settings }
