package audio

import (
	"fmt"
	"math"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-dsp/dsp/window"
	vecmath "github.com/cwbudde/algo-vecmath"
	"github.com/gopxl/beep/v2"
)

// AnalyserSize is the FFT length of the master analyser.
const AnalyserSize = 2048

// Analyser passes audio through while keeping the most recent mono samples
// for spectrum and level readouts.
type Analyser struct {
	s beep.Streamer

	mu   sync.Mutex
	buf  []float64
	pos  int
	size int

	plan   *algofft.Plan[complex128]
	window []float64
}

// NewAnalyser wraps s with a capture buffer of size frames. size must be a
// power of two.
func NewAnalyser(s beep.Streamer, size int) (*Analyser, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("analyser size must be a power of two: %d", size)
	}
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("analyser: failed to create FFT plan: %w", err)
	}

	hann, err := window.Hann(size)
	if err != nil {
		return nil, fmt.Errorf("analyser: %w", err)
	}

	return &Analyser{
		s:      s,
		buf:    make([]float64, size),
		size:   size,
		plan:   plan,
		window: hann,
	}, nil
}

func (a *Analyser) Stream(samples [][2]float64) (int, bool) {
	n, ok := a.s.Stream(samples)
	a.mu.Lock()
	for i := range n {
		a.buf[a.pos] = (samples[i][0] + samples[i][1]) / 2
		a.pos = (a.pos + 1) % a.size
	}
	a.mu.Unlock()
	return n, ok
}

func (a *Analyser) Err() error {
	return a.s.Err()
}

// Samples returns the last n captured samples in chronological order.
func (a *Analyser) Samples(n int) []float64 {
	if n > a.size {
		n = a.size
	}
	out := make([]float64, n)
	a.mu.Lock()
	start := (a.pos - n + a.size) % a.size
	for i := range n {
		out[i] = a.buf[(start+i)%a.size]
	}
	a.mu.Unlock()
	return out
}

// Level returns the RMS of the capture buffer.
func (a *Analyser) Level() float64 {
	s := a.Samples(a.size)
	var sum float64
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(s)))
}

// Spectrum returns size/2 magnitude bins of the Hann-windowed capture buffer.
func (a *Analyser) Spectrum() ([]float64, error) {
	frame := a.Samples(a.size)
	vecmath.MulBlockInPlace(frame, a.window)

	in := make([]complex128, a.size)
	for i, v := range frame {
		in[i] = complex(v, 0)
	}
	spec := make([]complex128, a.size)
	if err := a.plan.Forward(spec, in); err != nil {
		return nil, fmt.Errorf("analyser: forward FFT failed: %w", err)
	}

	half := a.size / 2
	re := make([]float64, half)
	im := make([]float64, half)
	for k := 0; k < half; k++ {
		re[k] = real(spec[k])
		im[k] = imag(spec[k])
	}
	mag := make([]float64, half)
	vecmath.Magnitude(mag, re, im)

	// Hann coherent gain is 0.5, so 4/N maps a full-scale sine to 1.
	scale := 4.0 / float64(a.size)
	for k := range mag {
		mag[k] *= scale
	}
	return mag, nil
}
