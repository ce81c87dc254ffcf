package audio

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// DecodeMedia opens an mp3 or wav file. The caller closes the streamer.
func DecodeMedia(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to open audio file: %w", err)
	}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		s, format, err = wav.Decode(f)
	default:
		s, format, err = mp3.Decode(f)
	}
	if err != nil {
		f.Close()
		slog.Error("Failed to decode audio file", "path", path, "error", err)
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return s, format, nil
}

// LoopFile decodes path, loops it forever and resamples it to rate. The
// returned closer releases the file.
func LoopFile(path string, rate beep.SampleRate) (beep.Streamer, func() error, error) {
	s, format, err := DecodeMedia(path)
	if err != nil {
		return nil, nil, err
	}
	var out beep.Streamer = beep.Loop(-1, s)
	if format.SampleRate != rate {
		out = beep.Resample(3, format.SampleRate, rate, out)
	}
	return out, s.Close, nil
}

// Tone returns a sine tone of the given frequency, amplitude and length.
func Tone(rate beep.SampleRate, freq, amplitude float64, d time.Duration) (beep.Streamer, error) {
	if freq <= 0 || freq >= float64(rate)/2 {
		return nil, fmt.Errorf("tone frequency out of range: %f", freq)
	}
	sine, err := generators.SineTone(rate, freq)
	if err != nil {
		return nil, fmt.Errorf("failed to create tone: %w", err)
	}
	// effects.Gain scales by 1+Gain.
	return beep.Take(rate.N(d), &effects.Gain{Streamer: sine, Gain: amplitude - 1}), nil
}
