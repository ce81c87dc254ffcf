package audio

import (
	"math"

	"github.com/gopxl/beep/v2"
)

// BiquadFilter is a stereo second-order low-pass filter.
type BiquadFilter struct {
	streamer beep.Streamer

	b0, b1, b2 float64
	a1, a2     float64

	x1, x2 [2]float64
	y1, y2 [2]float64
}

// NewLowPass creates a low-pass filter with the given cutoff in Hz.
func NewLowPass(streamer beep.Streamer, sampleRate, cutoff, q float64) *BiquadFilter {
	f := &BiquadFilter{streamer: streamer}

	omega := 2.0 * math.Pi * cutoff / sampleRate
	sn := math.Sin(omega)
	cs := math.Cos(omega)
	alpha := sn / (2.0 * q)
	a0 := 1.0 + alpha

	// Coefficients are stored pre-divided by a0.
	f.b0 = (1.0 - cs) / 2.0 / a0
	f.b1 = (1.0 - cs) / a0
	f.b2 = (1.0 - cs) / 2.0 / a0
	f.a1 = -2.0 * cs / a0
	f.a2 = (1.0 - alpha) / a0
	return f
}

func (f *BiquadFilter) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = f.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		for ch := 0; ch < 2; ch++ {
			x := samples[i][ch]
			y := f.b0*x + f.b1*f.x1[ch] + f.b2*f.x2[ch] - f.a1*f.y1[ch] - f.a2*f.y2[ch]

			f.x2[ch] = f.x1[ch]
			f.x1[ch] = x
			f.y2[ch] = f.y1[ch]
			f.y1[ch] = y

			samples[i][ch] = y
		}
	}
	return n, ok
}

func (f *BiquadFilter) Err() error {
	return f.streamer.Err()
}

// Reset clears the filter history.
func (f *BiquadFilter) Reset() {
	f.x1, f.x2 = [2]float64{}, [2]float64{}
	f.y1, f.y2 = [2]float64{}, [2]float64{}
}
