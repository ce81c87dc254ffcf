package audio

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"cabinmix/pkg/zone"

	"github.com/cwbudde/algo-dsp/dsp/conv"
	vecmath "github.com/cwbudde/algo-vecmath"
	"github.com/gopxl/beep/v2"
)

// The partitioned convolver runs 2^9 = 512 frame blocks, which is also the
// wet latency, and grows partitions up to 2^12 frames for the long tails.
const (
	reverbMinOrder = 9
	reverbMaxOrder = 12
)

// ReverbProfile describes the synthetic room of one zone.
type ReverbProfile struct {
	Length time.Duration
	Decay  float64
	// DampCutoff, when non-zero, low-passes the wet signal at this frequency.
	DampCutoff float64
}

// ReverbProfiles returns the per-zone room character: short and dry outside,
// tight in the jetway, long in the cabin, dampened in the cockpit.
func ReverbProfiles(dampCutoff float64) map[zone.Name]ReverbProfile {
	return map[zone.Name]ReverbProfile{
		zone.Outside: {Length: 500 * time.Millisecond, Decay: 0.5},
		zone.Jetway:  {Length: time.Second, Decay: 0.6},
		zone.Cabin:   {Length: 3 * time.Second, Decay: 0.85},
		zone.Cockpit: {Length: 1500 * time.Millisecond, Decay: 0.7, DampCutoff: dampCutoff},
	}
}

// ImpulseResponse synthesizes a stereo impulse response: independent noise
// per channel under an exp(-t*decay*5) envelope, scaled to unit energy.
func ImpulseResponse(rate beep.SampleRate, p ReverbProfile, seed int64) [2][]float64 {
	n := rate.N(p.Length)
	if n < 1 {
		n = 1
	}
	rng := rand.New(rand.NewSource(seed))

	var ir [2][]float64
	for ch := range ir {
		ir[ch] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		t := float64(i) / float64(rate)
		amp := math.Exp(-t * p.Decay * 5)
		ir[0][i] = (rng.Float64()*2 - 1) * amp
		ir[1][i] = (rng.Float64()*2 - 1) * amp
	}

	for ch := range ir {
		var energy float64
		for _, v := range ir[ch] {
			energy += v * v
		}
		if energy > 0 {
			vecmath.ScaleBlock(ir[ch], ir[ch], 1/math.Sqrt(energy))
		}
	}
	return ir
}

// Reverb is a stereo convolution reverb node. Its input is a Junction so the
// graph manager can rewire it.
type Reverb struct {
	zone zone.Name
	in   Junction
	conv [2]*conv.PartitionedConvolution
	damp *BiquadFilter
	out  beep.Streamer
	wet  reverbStage

	inBuf, outBuf [2][]float64 // per-channel scratch
}

// reverbStage adapts the convolvers to a streamer so the optional damping
// filter can wrap it.
type reverbStage struct{ r *Reverb }

func (s reverbStage) Stream(samples [][2]float64) (int, bool) {
	r := s.r
	r.in.Stream(samples)
	n := len(samples)
	for ch := range r.conv {
		if len(r.inBuf[ch]) < n {
			r.inBuf[ch] = make([]float64, n)
			r.outBuf[ch] = make([]float64, n)
		}
		dry, wet := r.inBuf[ch][:n], r.outBuf[ch][:n]
		for i := range samples {
			dry[i] = samples[i][ch]
		}
		if err := r.conv[ch].ProcessBlock(dry, wet); err != nil {
			clear(wet)
		}
		for i := range samples {
			samples[i][ch] = wet[i]
		}
	}
	return n, true
}

func (s reverbStage) Err() error { return nil }

// NewReverb builds the reverb node for a zone.
func NewReverb(z zone.Name, rate beep.SampleRate, p ReverbProfile, seed int64) (*Reverb, error) {
	ir := ImpulseResponse(rate, p, seed)
	r := &Reverb{zone: z}
	for ch := range r.conv {
		c, err := conv.NewPartitionedConvolution(ir[ch], reverbMinOrder, reverbMaxOrder)
		if err != nil {
			return nil, fmt.Errorf("reverb %s: %w", z, err)
		}
		r.conv[ch] = c
	}
	r.wet = reverbStage{r: r}
	r.out = r.wet
	if p.DampCutoff > 0 && p.DampCutoff < float64(rate)/2 {
		r.damp = NewLowPass(r.wet, float64(rate), p.DampCutoff, 0.707)
		r.out = r.damp
	}
	return r, nil
}

func (r *Reverb) Stream(samples [][2]float64) (int, bool) {
	return r.out.Stream(samples)
}

func (r *Reverb) Err() error { return nil }

func (r *Reverb) input() *Junction { return &r.in }

// Latency returns how many frames the wet signal lags the input.
func (r *Reverb) Latency() int { return r.conv[0].Latency() }

// Reset clears the reverb tail.
func (r *Reverb) Reset() {
	r.conv[0].Reset()
	r.conv[1].Reset()
	if r.damp != nil {
		r.damp.Reset()
	}
}
