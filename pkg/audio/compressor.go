package audio

import (
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"
	"github.com/gopxl/beep/v2"
)

// maxDetectorKnee is the widest soft knee the detector supports. Wider
// settings are applied at this width.
const maxDetectorKnee = 24.0

// CompressorSettings configures the dynamics compressor.
type CompressorSettings struct {
	ThresholdDB float64
	KneeDB      float64
	Ratio       float64
	Attack      time.Duration
	Release     time.Duration
}

// DefaultCompressorSettings returns the fixed broadcast-style settings.
func DefaultCompressorSettings() CompressorSettings {
	return CompressorSettings{
		ThresholdDB: -24,
		KneeDB:      30,
		Ratio:       12,
		Attack:      3 * time.Millisecond,
		Release:     250 * time.Millisecond,
	}
}

// Validate checks the settings against the supported ranges.
func (s CompressorSettings) Validate() error {
	switch {
	case math.IsNaN(s.ThresholdDB) || math.IsInf(s.ThresholdDB, 0) || s.ThresholdDB > 0:
		return fmt.Errorf("compressor threshold must be in [-inf, 0] dB: %f", s.ThresholdDB)
	case s.KneeDB < 0 || s.KneeDB > 40 || math.IsNaN(s.KneeDB):
		return fmt.Errorf("compressor knee must be in [0, 40] dB: %f", s.KneeDB)
	case s.Ratio < 1 || s.Ratio > 20 || math.IsNaN(s.Ratio):
		return fmt.Errorf("compressor ratio must be in [1, 20]: %f", s.Ratio)
	case s.Attack < 100*time.Microsecond || s.Attack > time.Second:
		return fmt.Errorf("compressor attack must be in [100us, 1s]: %s", s.Attack)
	case s.Release < time.Millisecond || s.Release > time.Second:
		return fmt.Errorf("compressor release must be in [1ms, 1s]: %s", s.Release)
	}
	return nil
}

// Compressor is a stereo-linked soft-knee compressor node. Both channels
// share one detector fed with the louder channel's magnitude.
type Compressor struct {
	in       Junction
	settings CompressorSettings
	det      *dynamics.Compressor
}

// NewCompressor creates a compressor node.
func NewCompressor(rate beep.SampleRate, s CompressorSettings) (*Compressor, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	det, err := dynamics.NewCompressor(float64(rate))
	if err != nil {
		return nil, err
	}
	// SetMakeupGain also turns auto makeup off.
	steps := []func() error{
		func() error { return det.SetMakeupGain(0) },
		func() error { return det.SetThreshold(s.ThresholdDB) },
		func() error { return det.SetKnee(min(s.KneeDB, maxDetectorKnee)) },
		func() error { return det.SetRatio(s.Ratio) },
		func() error { return det.SetAttack(float64(s.Attack) / float64(time.Millisecond)) },
		func() error { return det.SetRelease(float64(s.Release) / float64(time.Millisecond)) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("compressor: %w", err)
		}
	}
	det.Reset()
	return &Compressor{settings: s, det: det}, nil
}

func (c *Compressor) Stream(samples [][2]float64) (int, bool) {
	c.in.Stream(samples)
	for i := range samples {
		level := math.Max(math.Abs(samples[i][0]), math.Abs(samples[i][1]))
		out := c.det.ProcessSample(level)
		if level == 0 {
			continue
		}
		g := out / level
		samples[i][0] *= g
		samples[i][1] *= g
	}
	return len(samples), true
}

func (c *Compressor) Err() error { return nil }

func (c *Compressor) input() *Junction { return &c.in }

// Gain returns the static gain multiplier for an envelope level.
func (c *Compressor) Gain(level float64) float64 {
	if level <= 0 {
		return 1.0
	}
	return c.det.CalculateOutputLevel(level) / level
}

// Reset clears the envelope and the reduction meter.
func (c *Compressor) Reset() { c.det.Reset() }

// MaxReduction returns the smallest gain applied since the last Reset.
func (c *Compressor) MaxReduction() float64 { return c.det.GetMetrics().GainReduction }

// Settings returns the compressor configuration.
func (c *Compressor) Settings() CompressorSettings { return c.settings }
