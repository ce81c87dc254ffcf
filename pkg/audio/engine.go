// Package audio implements the zone mixing engine: per-zone gain buses,
// scheduled gain ramps, the switchable effects chain and the mixer that
// composes them on top of a beep render engine.
package audio

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// ErrEngineUnavailable is returned when the render engine cannot be started.
var ErrEngineUnavailable = errors.New("audio: engine unavailable")

// Engine is the real-time renderer the mixer schedules onto. Stream is called
// from the engine's own goroutine while the engine lock is held, so every
// mutation of a live streamer must happen between Lock and Unlock.
type Engine interface {
	SampleRate() beep.SampleRate
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Ready() bool
	Resume() error
	Suspend() error
	OnResume(fn func())
	Close() error
}

// hooks collects resume callbacks shared by both engines.
type hooks struct {
	mu  sync.Mutex
	fns []func()
}

func (h *hooks) add(fn func()) {
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

func (h *hooks) fire() {
	h.mu.Lock()
	fns := append([]func(){}, h.fns...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// SpeakerEngine renders to the system audio device via gopxl/beep/speaker.
// The device is opened lazily: until Resume succeeds the engine reports not
// ready and the root streamer is held back.
type SpeakerEngine struct {
	mu          sync.Mutex
	sampleRate  beep.SampleRate
	bufferSize  int
	initialized bool
	suspended   bool
	root        beep.Streamer
	playing     bool
	hooks       hooks
}

// NewSpeakerEngine prepares a speaker engine. Call Resume to open the device.
func NewSpeakerEngine(sampleRate beep.SampleRate, buffer time.Duration) *SpeakerEngine {
	if buffer <= 0 {
		buffer = time.Second / 10
	}
	return &SpeakerEngine{
		sampleRate: sampleRate,
		bufferSize: sampleRate.N(buffer),
	}
}

func (e *SpeakerEngine) SampleRate() beep.SampleRate { return e.sampleRate }

// Play sets the engine's root streamer. It starts rendering once the device
// is open.
func (e *SpeakerEngine) Play(s beep.Streamer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.root = s
	e.playing = false
	e.startLocked()
}

func (e *SpeakerEngine) startLocked() {
	if !e.initialized || e.root == nil || e.playing {
		return
	}
	speaker.Play(e.root)
	e.playing = true
}

// Lock acquires the speaker lock. Before the device is open there is no
// render goroutine, but the call still serializes control-side mutations.
func (e *SpeakerEngine) Lock() { speaker.Lock() }

func (e *SpeakerEngine) Unlock() { speaker.Unlock() }

func (e *SpeakerEngine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized && !e.suspended
}

// Resume opens the device on first use, or resumes a suspended device, then
// runs the registered resume hooks.
func (e *SpeakerEngine) Resume() error {
	e.mu.Lock()
	if !e.initialized {
		if err := speaker.Init(e.sampleRate, e.bufferSize); err != nil {
			e.mu.Unlock()
			slog.Error("Failed to initialize speaker", "error", err)
			return errors.Join(ErrEngineUnavailable, err)
		}
		e.initialized = true
		slog.Info("Speaker initialized", "sample_rate", int(e.sampleRate), "buffer", e.bufferSize)
	} else if e.suspended {
		if err := speaker.Resume(); err != nil {
			e.mu.Unlock()
			return errors.Join(ErrEngineUnavailable, err)
		}
	}
	e.suspended = false
	e.startLocked()
	e.mu.Unlock()

	e.hooks.fire()
	return nil
}

// Suspend pauses the device without discarding the graph.
func (e *SpeakerEngine) Suspend() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized || e.suspended {
		return nil
	}
	if err := speaker.Suspend(); err != nil {
		return err
	}
	e.suspended = true
	return nil
}

func (e *SpeakerEngine) OnResume(fn func()) { e.hooks.add(fn) }

// Close stops playback and releases the device.
func (e *SpeakerEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		speaker.Clear()
		speaker.Close()
		e.initialized = false
		e.playing = false
	}
	return nil
}

// OfflineEngine renders on demand. It backs the tests and the WAV renderer.
type OfflineEngine struct {
	render     sync.Mutex
	state      sync.Mutex
	sampleRate beep.SampleRate
	root       beep.Streamer
	ready      bool
	hooks      hooks
}

// NewOfflineEngine returns an engine that is ready immediately.
func NewOfflineEngine(sampleRate beep.SampleRate) *OfflineEngine {
	return &OfflineEngine{sampleRate: sampleRate, ready: true}
}

func (e *OfflineEngine) SampleRate() beep.SampleRate { return e.sampleRate }

func (e *OfflineEngine) Play(s beep.Streamer) {
	e.render.Lock()
	e.root = s
	e.render.Unlock()
}

func (e *OfflineEngine) Lock() { e.render.Lock() }

func (e *OfflineEngine) Unlock() { e.render.Unlock() }

func (e *OfflineEngine) Ready() bool {
	e.state.Lock()
	defer e.state.Unlock()
	return e.ready
}

func (e *OfflineEngine) Resume() error {
	e.state.Lock()
	e.ready = true
	e.state.Unlock()
	e.hooks.fire()
	return nil
}

func (e *OfflineEngine) Suspend() error {
	e.state.Lock()
	e.ready = false
	e.state.Unlock()
	return nil
}

func (e *OfflineEngine) OnResume(fn func()) { e.hooks.add(fn) }

func (e *OfflineEngine) Close() error { return nil }

// Render pulls n frames from the root streamer. A suspended engine renders
// silence without advancing the graph.
func (e *OfflineEngine) Render(n int) [][2]float64 {
	out := make([][2]float64, n)
	if !e.Ready() {
		return out
	}
	e.render.Lock()
	defer e.render.Unlock()
	if e.root == nil {
		return out
	}
	for off := 0; off < n; {
		got, ok := e.root.Stream(out[off:])
		off += got
		if !ok || got == 0 {
			break
		}
	}
	return out
}

// RenderDuration renders d worth of frames.
func (e *OfflineEngine) RenderDuration(d time.Duration) [][2]float64 {
	return e.Render(e.sampleRate.N(d))
}
