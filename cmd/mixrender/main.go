// Command mixrender renders a walk along the vehicle axis to a WAV file using
// the offline engine. Each zone plays its own tone so crossfades are audible.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"cabinmix/pkg/audio"
	"cabinmix/pkg/zone"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

const renderChunk = 512

// zoneTones are the reference frequencies per zone.
var zoneTones = map[zone.Name]float64{
	zone.Outside: 110,
	zone.Jetway:  220,
	zone.Cabin:   330,
	zone.Cockpit: 440,
}

type renderConfig struct {
	Out         string
	Vehicle     string
	From        float64
	To          float64
	Duration    time.Duration
	Rate        int
	Reverb      bool
	Delay       bool
	Compression bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "mixrender: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("mixrender", flag.ContinueOnError)
	var rc renderConfig
	fs.StringVar(&rc.Out, "out", "walk.wav", "Output WAV file")
	fs.StringVar(&rc.Vehicle, "vehicle", "A320", "Vehicle geometry")
	fs.Float64Var(&rc.From, "from", 6, "Start position in meters")
	fs.Float64Var(&rc.To, "to", -23.5, "End position in meters")
	fs.DurationVar(&rc.Duration, "duration", 20*time.Second, "Length of the walk")
	fs.IntVar(&rc.Rate, "rate", 44100, "Sample rate")
	fs.BoolVar(&rc.Reverb, "reverb", false, "Enable zone reverb")
	fs.BoolVar(&rc.Delay, "delay", false, "Enable delay")
	fs.BoolVar(&rc.Compression, "compression", false, "Enable compression")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := os.Create(rc.Out)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := render(f, rc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	fmt.Fprintf(stdout, "Rendered %s walk %.1fm -> %.1fm (%s) to %s\n", rc.Vehicle, rc.From, rc.To, rc.Duration, rc.Out)
	return nil
}

// render encodes the walk described by rc as 16-bit stereo WAV.
func render(w io.WriteSeeker, rc renderConfig) error {
	if rc.Duration <= 0 {
		return errors.New("duration must be positive")
	}
	rate := beep.SampleRate(rc.Rate)
	eng := audio.NewOfflineEngine(rate)

	opts := audio.DefaultOptions()
	opts.Effects = audio.EffectsState{Reverb: rc.Reverb, Delay: rc.Delay, Compression: rc.Compression}
	m, err := audio.NewMixer(eng, opts)
	if err != nil {
		return err
	}
	if err := m.Initialize(context.Background()); err != nil {
		return err
	}

	for z, freq := range zoneTones {
		tone, err := audio.Tone(rate, freq, 0.3, rc.Duration+opts.FadeDuration)
		if err != nil {
			return err
		}
		if err := m.Attach(z, tone); err != nil {
			return err
		}
	}

	geom := zone.NewRegistry().Lookup(rc.Vehicle)
	total := rate.N(rc.Duration)
	walk := &walkStreamer{
		eng:   eng,
		total: total,
		move: func(done int) {
			frac := float64(done) / float64(total)
			m.UpdatePosition(rc.From+(rc.To-rc.From)*frac, geom)
		},
	}

	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	if err := wav.Encode(w, walk, format); err != nil {
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	return nil
}

// walkStreamer pulls the offline engine in chunks and moves the listener
// before each chunk.
type walkStreamer struct {
	eng   *audio.OfflineEngine
	total int
	done  int
	move  func(done int)
}

func (s *walkStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.done >= s.total {
		return 0, false
	}
	n := 0
	for n < len(samples) && s.done < s.total {
		chunk := min(renderChunk, len(samples)-n, s.total-s.done)
		s.move(s.done)
		copy(samples[n:n+chunk], s.eng.Render(chunk))
		n += chunk
		s.done += chunk
	}
	return n, true
}

func (s *walkStreamer) Err() error { return nil }
