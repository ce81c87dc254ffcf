package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"cabinmix/pkg/zone"

	"github.com/gopxl/beep/v2"
)

// Effect names one stage of the serial effects chain.
type Effect string

const (
	EffectReverb      Effect = "reverb"
	EffectDelay       Effect = "delay"
	EffectCompression Effect = "compression"
)

// ErrUnknownEffect is returned for effect names outside the chain.
var ErrUnknownEffect = errors.New("audio: unknown effect")

// chainOrder fixes the position of each effect when several are enabled.
var chainOrder = []Effect{EffectReverb, EffectDelay, EffectCompression}

// ParseEffect converts a user-supplied value into an Effect.
func ParseEffect(s string) (Effect, error) {
	e := Effect(strings.ToLower(strings.TrimSpace(s)))
	switch e {
	case EffectReverb, EffectDelay, EffectCompression:
		return e, nil
	case "compressor":
		return EffectCompression, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEffect, s)
}

// EffectsState is the enabled subset of the chain.
type EffectsState struct {
	Reverb      bool `json:"reverb" yaml:"reverb"`
	Delay       bool `json:"delay" yaml:"delay"`
	Compression bool `json:"compression" yaml:"compression"`
}

// Enabled reports whether e is switched on.
func (s EffectsState) Enabled(e Effect) bool {
	switch e {
	case EffectReverb:
		return s.Reverb
	case EffectDelay:
		return s.Delay
	case EffectCompression:
		return s.Compression
	}
	return false
}

// With returns a copy of s with e set to on.
func (s EffectsState) With(e Effect, on bool) EffectsState {
	switch e {
	case EffectReverb:
		s.Reverb = on
	case EffectDelay:
		s.Delay = on
	case EffectCompression:
		s.Compression = on
	}
	return s
}

// Node identifiers used in topology listings.
const (
	NodeMaster     = "master"
	NodeDelay      = "delay"
	NodeCompressor = "compressor"
)

// BusNode returns the node id of a zone bus.
func BusNode(z zone.Name) string { return "bus:" + string(z) }

// ReverbNode returns the node id of a zone's reverb.
func ReverbNode(z zone.Name) string { return "reverb:" + string(z) }

// Edge is one connection in the signal path.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Plan returns the full wiring for state: every zone bus feeds its reverb or
// the next enabled effect, each enabled effect feeds the next, and the last
// node feeds master.
func Plan(state EffectsState) []Edge {
	after := func(idx int) string {
		for _, e := range chainOrder[idx+1:] {
			if !state.Enabled(e) {
				continue
			}
			switch e {
			case EffectDelay:
				return NodeDelay
			case EffectCompression:
				return NodeCompressor
			}
		}
		return NodeMaster
	}

	var edges []Edge
	for _, z := range zone.Names {
		if state.Reverb {
			edges = append(edges,
				Edge{From: BusNode(z), To: ReverbNode(z)},
				Edge{From: ReverbNode(z), To: after(0)},
			)
			continue
		}
		edges = append(edges, Edge{From: BusNode(z), To: after(0)})
	}
	if state.Delay {
		edges = append(edges, Edge{From: NodeDelay, To: after(1)})
	}
	if state.Compression {
		edges = append(edges, Edge{From: NodeCompressor, To: NodeMaster})
	}
	return edges
}

// Effects holds the effect nodes shared by a graph.
type Effects struct {
	Reverbs    map[zone.Name]*Reverb
	Delay      *Delay
	Compressor *Compressor
}

// EffectsOptions configures NewEffects.
type EffectsOptions struct {
	Delay      DelaySettings
	Compressor CompressorSettings
	DampCutoff float64
	Seed       int64
}

// NewEffects builds one reverb per zone plus the shared delay and compressor.
func NewEffects(rate beep.SampleRate, opts EffectsOptions) (*Effects, error) {
	fx := &Effects{Reverbs: make(map[zone.Name]*Reverb, len(zone.Names))}
	profiles := ReverbProfiles(opts.DampCutoff)
	for i, z := range zone.Names {
		r, err := NewReverb(z, rate, profiles[z], opts.Seed+int64(i))
		if err != nil {
			return nil, err
		}
		fx.Reverbs[z] = r
	}

	d, err := NewDelay(rate, opts.Delay)
	if err != nil {
		return nil, fmt.Errorf("delay: %w", err)
	}
	fx.Delay = d

	c, err := NewCompressor(rate, opts.Compressor)
	if err != nil {
		return nil, fmt.Errorf("compressor: %w", err)
	}
	fx.Compressor = c
	return fx, nil
}

// Graph owns the routing between the zone buses, the effect nodes and the
// master input. Rebuilds are serialized; wiring is swapped in one step under
// the engine lock so the render thread never sees a partial graph. Bus gains
// are never touched.
type Graph struct {
	engine Engine
	buses  map[zone.Name]*Bus
	fx     *Effects
	master *Junction

	rebuild sync.Mutex

	mu      sync.RWMutex
	state   EffectsState
	applied EffectsState
	edges   []Edge
}

// NewGraph creates a graph. Call Rebuild to apply the initial wiring.
func NewGraph(engine Engine, buses map[zone.Name]*Bus, fx *Effects, master *Junction, initial EffectsState) *Graph {
	return &Graph{
		engine: engine,
		buses:  buses,
		fx:     fx,
		master: master,
		state:  initial,
	}
}

// SetEffect records the new enabled set and rebuilds the graph.
func (g *Graph) SetEffect(e Effect, enabled bool) error {
	if _, err := ParseEffect(string(e)); err != nil {
		return err
	}
	g.mu.Lock()
	g.state = g.state.With(e, enabled)
	g.mu.Unlock()

	g.Rebuild()
	return nil
}

// State returns the requested effect set.
func (g *Graph) State() EffectsState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Topology returns the wiring currently applied.
func (g *Graph) Topology() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Edge(nil), g.edges...)
}

// Rebuild disconnects every node and reconnects them for the latest state.
func (g *Graph) Rebuild() {
	g.rebuild.Lock()
	defer g.rebuild.Unlock()

	g.mu.RLock()
	state, prev := g.state, g.applied
	first := g.edges == nil
	g.mu.RUnlock()

	edges := Plan(state)

	g.engine.Lock()
	for _, j := range g.sinks() {
		j.Disconnect()
	}
	for _, e := range edges {
		src, sink := g.source(e.From), g.sink(e.To)
		if src == nil || sink == nil {
			slog.Error("Effects graph references unknown node", "from", e.From, "to", e.To)
			continue
		}
		sink.Connect(src)
	}
	for _, eff := range chainOrder {
		if state.Enabled(eff) && (first || !prev.Enabled(eff)) {
			g.resetLocked(eff)
		}
	}
	g.engine.Unlock()

	g.mu.Lock()
	g.edges = edges
	g.applied = state
	g.mu.Unlock()

	slog.Debug("Effects graph rebuilt",
		"reverb", state.Reverb,
		"delay", state.Delay,
		"compression", state.Compression,
		"edges", len(edges))
}

func (g *Graph) resetLocked(e Effect) {
	switch e {
	case EffectReverb:
		for _, r := range g.fx.Reverbs {
			r.Reset()
		}
	case EffectDelay:
		g.fx.Delay.Reset()
	case EffectCompression:
		g.fx.Compressor.Reset()
	}
}

func (g *Graph) sinks() []*Junction {
	out := []*Junction{g.master, g.fx.Delay.input(), g.fx.Compressor.input()}
	for _, z := range zone.Names {
		if r, ok := g.fx.Reverbs[z]; ok {
			out = append(out, r.input())
		}
	}
	return out
}

func (g *Graph) sink(id string) *Junction {
	switch id {
	case NodeMaster:
		return g.master
	case NodeDelay:
		return g.fx.Delay.input()
	case NodeCompressor:
		return g.fx.Compressor.input()
	}
	if name, ok := strings.CutPrefix(id, "reverb:"); ok {
		if r, ok := g.fx.Reverbs[zone.Name(name)]; ok {
			return r.input()
		}
	}
	return nil
}

func (g *Graph) source(id string) beep.Streamer {
	switch id {
	case NodeDelay:
		return g.fx.Delay
	case NodeCompressor:
		return g.fx.Compressor
	}
	if name, ok := strings.CutPrefix(id, "bus:"); ok {
		if b, ok := g.buses[zone.Name(name)]; ok {
			return b
		}
		return nil
	}
	if name, ok := strings.CutPrefix(id, "reverb:"); ok {
		if r, ok := g.fx.Reverbs[zone.Name(name)]; ok {
			return r
		}
	}
	return nil
}
