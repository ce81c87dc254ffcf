package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"cabinmix/pkg/zone"

	"github.com/gopxl/beep/v2"
)

const (
	// MasterRamp smooths master volume changes.
	MasterRamp = 50 * time.Millisecond
	// DefaultFadeDuration is the zone crossfade time.
	DefaultFadeDuration = 1500 * time.Millisecond

	wakeToneLength = 100 * time.Millisecond
)

// ErrNotInitialized is returned by operations that need a wired graph.
var ErrNotInitialized = errors.New("audio: mixer not initialized")

// Options configures a Mixer.
type Options struct {
	FadeDuration     time.Duration
	MasterVolume     float64
	TransitionBuffer float64
	Delay            DelaySettings
	Compressor       CompressorSettings
	DampCutoff       float64
	Effects          EffectsState
	Seed             int64
}

// DefaultOptions returns the stock mixer configuration.
func DefaultOptions() Options {
	return Options{
		FadeDuration:     DefaultFadeDuration,
		MasterVolume:     1.0,
		TransitionBuffer: zone.DefaultTransitionBuffer,
		Delay:            DefaultDelaySettings(),
		Compressor:       DefaultCompressorSettings(),
		DampCutoff:       2500,
		Seed:             1,
	}
}

// State is the readout handed to the UI.
type State struct {
	CurrentZone  zone.Name             `json:"current_zone"`
	Position     float64               `json:"position"`
	HasPosition  bool                  `json:"has_position"`
	MasterVolume float64               `json:"master_volume"`
	PerZoneGain  map[zone.Name]float64 `json:"per_zone_gain"`
	LiveGain     map[zone.Name]float64 `json:"live_gain"`
	BaseVolumes  map[zone.Name]float64 `json:"base_volumes"`
	FadeDuration float64               `json:"fade_duration"`
	Effects      EffectsState          `json:"effects"`
	EngineReady  bool                  `json:"engine_ready"`
	Pending      bool                  `json:"pending"`
}

// Settings is the persistable subset of the mixer state.
type Settings struct {
	MasterVolume float64
	FadeDuration time.Duration
	BaseVolumes  map[zone.Name]float64
	Effects      EffectsState
}

// Mixer is the composition root: one gain bus per zone, the effects graph
// and a master bus. Control calls only schedule work on the engine; while
// the engine is not ready targets are recorded and re-applied by ForceUpdate
// once it resumes.
type Mixer struct {
	engine Engine
	opts   Options

	sources   map[zone.Name]*beep.Mixer
	buses     map[zone.Name]*Bus
	masterIn  *Junction
	master    *Bus
	analyser  *Analyser
	system    *beep.Mixer
	output    *Junction
	scheduler *Scheduler
	graph     *Graph

	mu          sync.Mutex
	initialized bool
	position    float64
	hasPosition bool
	config      zone.Config
	overrides   map[zone.Name]float64
	targets     zone.Gains
	currentZone zone.Name
	masterVol   float64
	fade        time.Duration
	pending     bool
}

// NewMixer builds the buses and effect nodes. Nothing is routed to the
// engine until Initialize.
func NewMixer(engine Engine, opts Options) (*Mixer, error) {
	rate := engine.SampleRate()
	if rate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", rate)
	}
	if opts.FadeDuration < 0 {
		opts.FadeDuration = DefaultFadeDuration
	}

	m := &Mixer{
		engine:      engine,
		opts:        opts,
		sources:     make(map[zone.Name]*beep.Mixer, len(zone.Names)),
		buses:       make(map[zone.Name]*Bus, len(zone.Names)),
		masterIn:    &Junction{},
		system:      &beep.Mixer{},
		output:      &Junction{},
		overrides:   make(map[zone.Name]float64),
		targets:     make(zone.Gains, len(zone.Names)),
		currentZone: zone.Outside,
		masterVol:   clampGain(opts.MasterVolume),
		fade:        opts.FadeDuration,
		config:      zone.Default(),
	}

	for _, z := range zone.Names {
		src := &beep.Mixer{}
		m.sources[z] = src
		m.buses[z] = NewBus(BusNode(z), rate, src, 0)
		m.targets[z] = 0
	}
	m.master = NewBus(NodeMaster, rate, m.masterIn, m.masterVol)

	an, err := NewAnalyser(m.master, AnalyserSize)
	if err != nil {
		return nil, err
	}
	m.analyser = an
	m.output.Connect(m.analyser)
	m.output.Connect(m.system)

	fx, err := NewEffects(rate, EffectsOptions{
		Delay:      opts.Delay,
		Compressor: opts.Compressor,
		DampCutoff: opts.DampCutoff,
		Seed:       opts.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build effects: %w", err)
	}

	m.scheduler = NewScheduler(engine, m.buses)
	m.graph = NewGraph(engine, m.buses, fx, m.masterIn, opts.Effects)
	return m, nil
}

// Initialize wires the graph and hands the output to the engine. It is safe
// to call more than once.
func (m *Mixer) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.initialized = true
	m.pending = true
	m.mu.Unlock()

	m.graph.Rebuild()
	m.engine.OnResume(m.ForceUpdate)
	m.engine.Play(m.output)

	if m.engine.Ready() {
		m.ForceUpdate()
	} else {
		slog.Warn("Audio engine not ready, mixer targets will be applied on resume")
	}
	slog.Info("Zone mixer initialized", "sample_rate", int(m.engine.SampleRate()), "fade", m.fade)
	return nil
}

// UpdatePosition recomputes the zone mix for pos and ramps every bus toward
// its new target. A nil cfg keeps the last config. Non-finite positions are
// ignored.
func (m *Mixer) UpdatePosition(pos float64, cfg zone.Config) {
	if math.IsNaN(pos) || math.IsInf(pos, 0) {
		slog.Warn("Ignoring non-finite position", "position", pos)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.position = pos
	m.hasPosition = true
	if cfg != nil {
		m.config = cfg.Clone()
	}
	m.remixLocked()
}

// remixLocked computes targets for the current position and schedules them.
func (m *Mixer) remixLocked() {
	cfg := m.effectiveConfigLocked()
	gains, warnings := zone.Calculate(m.position, cfg, m.opts.TransitionBuffer)
	for _, w := range warnings {
		slog.Warn("Invalid zone geometry", "zone", w.Zone, "reason", w.Reason)
	}
	m.targets = gains

	if m.readyLocked() {
		for _, z := range zone.Names {
			m.scheduler.TransitionTo(z, gains[z], m.fade)
		}
	} else {
		m.pending = true
	}

	m.currentZone = zone.Resolve(m.position, cfg)
}

func (m *Mixer) effectiveConfigLocked() zone.Config {
	return m.config.WithBaseVolumes(m.overrides)
}

func (m *Mixer) readyLocked() bool {
	return m.initialized && m.engine.Ready()
}

// SetMasterVolume ramps the master bus to v over MasterRamp.
func (m *Mixer) SetMasterVolume(v float64) {
	v = clampGain(v)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.masterVol = v
	if !m.readyLocked() {
		m.pending = true
		return
	}
	m.engine.Lock()
	m.master.RampTo(v, MasterRamp)
	m.engine.Unlock()
}

// SetZoneBaseVolume overrides the base volume of z and remixes.
func (m *Mixer) SetZoneBaseVolume(z zone.Name, v float64) error {
	if !z.Valid() {
		return fmt.Errorf("%w: %q", zone.ErrUnknownZone, z)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[z] = clampGain(v)
	if m.hasPosition {
		m.remixLocked()
	}
	return nil
}

// SetFadeDuration changes the crossfade time used for future ramps.
func (m *Mixer) SetFadeDuration(seconds float64) error {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return fmt.Errorf("invalid fade duration: %v", seconds)
	}
	m.mu.Lock()
	m.fade = time.Duration(seconds * float64(time.Second))
	m.mu.Unlock()
	return nil
}

// SetEffect switches an effect on or off and rebuilds the chain.
func (m *Mixer) SetEffect(e Effect, enabled bool) error {
	if err := m.graph.SetEffect(e, enabled); err != nil {
		return err
	}
	slog.Info("Audio effect toggled", "effect", e, "enabled", enabled)
	return nil
}

// ForceUpdate re-applies every current target immediately. It is the resume
// hook and is idempotent.
func (m *Mixer) ForceUpdate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.readyLocked() {
		return
	}
	for _, z := range zone.Names {
		m.scheduler.Apply(z, m.targets[z])
	}
	m.engine.Lock()
	m.master.Set(m.masterVol)
	m.engine.Unlock()
	m.pending = false
	slog.Debug("Mixer targets force-applied", "zone", m.currentZone, "master", m.masterVol)
}

// Wake resumes the engine and primes the output with a near-silent tone.
func (m *Mixer) Wake(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.engine.Resume(); err != nil {
		return err
	}
	tone, err := Tone(m.engine.SampleRate(), 440, 0.001, wakeToneLength)
	if err != nil {
		return err
	}
	m.engine.Lock()
	m.system.Add(tone)
	m.engine.Unlock()
	m.ForceUpdate()
	return nil
}

// ResetVolumes restores the default zone base volumes and full master volume.
func (m *Mixer) ResetVolumes() {
	m.mu.Lock()
	m.overrides = zone.DefaultBaseVolumes()
	if m.hasPosition {
		m.remixLocked()
	}
	m.mu.Unlock()
	m.SetMasterVolume(1.0)
}

// Attach feeds s into the bus of z.
func (m *Mixer) Attach(z zone.Name, s beep.Streamer) error {
	src, ok := m.sources[z]
	if !ok {
		return fmt.Errorf("%w: %q", zone.ErrUnknownZone, z)
	}
	m.engine.Lock()
	src.Add(s)
	m.engine.Unlock()
	return nil
}

// PlayTestTone plays a sine tone through the bus of z.
func (m *Mixer) PlayTestTone(z zone.Name, freq float64, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("invalid tone duration: %s", d)
	}
	tone, err := Tone(m.engine.SampleRate(), freq, 0.3, d)
	if err != nil {
		return err
	}
	return m.Attach(z, tone)
}

// Spectrum returns the analyser bins of the master output.
func (m *Mixer) Spectrum() ([]float64, error) {
	return m.analyser.Spectrum()
}

// Level returns the RMS level of the master output.
func (m *Mixer) Level() float64 {
	return m.analyser.Level()
}

// Topology returns the current effects wiring.
func (m *Mixer) Topology() []Edge {
	return m.graph.Topology()
}

// State returns a snapshot of the mixer.
func (m *Mixer) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	eff := m.effectiveConfigLocked()
	st := State{
		CurrentZone:  m.currentZone,
		Position:     m.position,
		HasPosition:  m.hasPosition,
		MasterVolume: m.masterVol,
		PerZoneGain:  make(map[zone.Name]float64, len(zone.Names)),
		LiveGain:     make(map[zone.Name]float64, len(zone.Names)),
		BaseVolumes:  make(map[zone.Name]float64, len(zone.Names)),
		FadeDuration: m.fade.Seconds(),
		Effects:      m.graph.State(),
		EngineReady:  m.engine.Ready(),
		Pending:      m.pending,
	}
	for _, z := range zone.Names {
		st.PerZoneGain[z] = m.targets[z]
		st.LiveGain[z] = m.scheduler.Gain(z)
		st.BaseVolumes[z] = eff[z].BaseVolume
	}
	return st
}

// Restore applies previously saved settings through the public setters. A
// zero FadeDuration means none was saved and keeps the current fade. Invalid
// entries are skipped and reported together.
func (m *Mixer) Restore(s Settings) error {
	var errs []error
	m.SetMasterVolume(s.MasterVolume)
	if s.FadeDuration != 0 {
		if err := m.SetFadeDuration(s.FadeDuration.Seconds()); err != nil {
			errs = append(errs, err)
		}
	}
	for z, v := range s.BaseVolumes {
		if err := m.SetZoneBaseVolume(z, v); err != nil {
			errs = append(errs, err)
		}
	}
	current := m.graph.State()
	for _, e := range chainOrder {
		if current.Enabled(e) != s.Effects.Enabled(e) {
			if err := m.SetEffect(e, s.Effects.Enabled(e)); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
