package audio

import (
	"context"
	"math"
	"testing"
	"time"

	"cabinmix/pkg/zone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.DampCutoff = 200
	return opts
}

func newTestMixer(t *testing.T, opts Options) (*OfflineEngine, *Mixer) {
	t.Helper()
	eng := NewOfflineEngine(1000)
	m, err := NewMixer(eng, opts)
	require.NoError(t, err)
	return eng, m
}

func TestMixer_CrossfadeAtBoundary(t *testing.T) {
	eng, m := newTestMixer(t, testOptions())
	require.NoError(t, m.Initialize(context.Background()))

	m.UpdatePosition(-12.0, zone.Default())

	want, _ := zone.Calculate(-12.0, zone.Default(), zone.DefaultTransitionBuffer)
	st := m.State()
	assert.Equal(t, zone.Cabin, st.CurrentZone)
	assert.True(t, st.HasPosition)
	for _, z := range zone.Names {
		assert.InDelta(t, want[z], st.PerZoneGain[z], 1e-12, "zone %s", z)
	}
	assert.Greater(t, st.PerZoneGain[zone.Cabin], 0.0)
	assert.Greater(t, st.PerZoneGain[zone.Jetway], 0.0)
	assert.Equal(t, 0.0, st.PerZoneGain[zone.Cockpit])

	// Ramps are still in flight right after the update.
	assert.Equal(t, 0.0, st.LiveGain[zone.Cabin])

	eng.RenderDuration(DefaultFadeDuration)
	st = m.State()
	for _, z := range zone.Names {
		assert.InDelta(t, want[z], st.LiveGain[z], 1e-9, "zone %s", z)
	}
}

func TestMixer_PendingUntilResume(t *testing.T) {
	eng, m := newTestMixer(t, testOptions())
	require.NoError(t, eng.Suspend())
	require.NoError(t, m.Initialize(context.Background()))

	m.UpdatePosition(-17.2, zone.Default())
	st := m.State()
	assert.True(t, st.Pending)
	assert.False(t, st.EngineReady)
	assert.Equal(t, 0.0, st.LiveGain[zone.Cabin])
	assert.InDelta(t, 0.7, st.PerZoneGain[zone.Cabin], 1e-12)

	require.NoError(t, eng.Resume())
	st = m.State()
	assert.False(t, st.Pending)
	assert.InDelta(t, 0.7, st.LiveGain[zone.Cabin], 1e-12)
}

func TestMixer_WakeResumesEngine(t *testing.T) {
	eng, m := newTestMixer(t, testOptions())
	require.NoError(t, eng.Suspend())
	require.NoError(t, m.Initialize(context.Background()))
	m.UpdatePosition(-17.2, zone.Default())

	require.NoError(t, m.Wake(context.Background()))
	st := m.State()
	assert.True(t, st.EngineReady)
	assert.False(t, st.Pending)
	assert.InDelta(t, 0.7, st.LiveGain[zone.Cabin], 1e-12)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, m.Wake(ctx))
}

func TestMixer_InitializeIdempotent(t *testing.T) {
	_, m := newTestMixer(t, testOptions())
	require.NoError(t, m.Initialize(context.Background()))
	require.NoError(t, m.Initialize(context.Background()))
	assert.Len(t, m.Topology(), len(zone.Names))
}

func TestMixer_NonFinitePositionIgnored(t *testing.T) {
	_, m := newTestMixer(t, testOptions())
	require.NoError(t, m.Initialize(context.Background()))

	m.UpdatePosition(-17.2, zone.Default())
	before := m.State()

	m.UpdatePosition(math.NaN(), nil)
	m.UpdatePosition(math.Inf(1), nil)
	assert.Equal(t, before.Position, m.State().Position)
	assert.Equal(t, before.PerZoneGain, m.State().PerZoneGain)
}

func TestMixer_SetZoneBaseVolume(t *testing.T) {
	_, m := newTestMixer(t, testOptions())
	require.NoError(t, m.Initialize(context.Background()))
	m.UpdatePosition(-17.2, zone.Default())

	require.NoError(t, m.SetZoneBaseVolume(zone.Cabin, 0.5))
	st := m.State()
	assert.InDelta(t, 0.5, st.PerZoneGain[zone.Cabin], 1e-12)
	assert.Equal(t, 0.5, st.BaseVolumes[zone.Cabin])

	// Overrides survive a config update.
	m.UpdatePosition(-17.2, zone.Default())
	assert.InDelta(t, 0.5, m.State().PerZoneGain[zone.Cabin], 1e-12)

	err := m.SetZoneBaseVolume(zone.Name("galley"), 0.5)
	assert.ErrorIs(t, err, zone.ErrUnknownZone)
}

func TestMixer_SetFadeDuration(t *testing.T) {
	_, m := newTestMixer(t, testOptions())

	assert.Error(t, m.SetFadeDuration(-1))
	assert.Error(t, m.SetFadeDuration(math.NaN()))
	assert.Equal(t, 1.5, m.State().FadeDuration)

	require.NoError(t, m.SetFadeDuration(0.25))
	assert.Equal(t, 0.25, m.State().FadeDuration)
}

func TestMixer_MasterVolume(t *testing.T) {
	opts := testOptions()
	opts.FadeDuration = 0
	eng, m := newTestMixer(t, opts)
	require.NoError(t, m.Initialize(context.Background()))
	require.NoError(t, m.Attach(zone.Cabin, constStreamer{1}))

	m.UpdatePosition(-17.2, zone.Default())
	out := eng.Render(10)
	assert.InDelta(t, 0.7, out[9][0], 1e-12)

	m.SetMasterVolume(0.5)
	out = eng.Render(100)
	assert.InDelta(t, 0.35, out[99][0], 1e-12)
	// The master ramp is audible, not a jump.
	assert.Greater(t, out[10][0], 0.35)

	m.SetMasterVolume(4)
	assert.Equal(t, 1.0, m.State().MasterVolume)
}

func TestMixer_Compression(t *testing.T) {
	opts := testOptions()
	opts.FadeDuration = 0
	eng, m := newTestMixer(t, opts)
	require.NoError(t, m.Initialize(context.Background()))
	require.NoError(t, m.Attach(zone.Cabin, constStreamer{1}))
	m.UpdatePosition(-17.2, zone.Default())

	require.NoError(t, m.SetEffect(EffectCompression, true))
	out := eng.Render(200)
	assert.Less(t, out[199][0], 0.5)
	assert.True(t, m.State().Effects.Compression)
}

func TestMixer_Delay(t *testing.T) {
	opts := testOptions()
	opts.FadeDuration = 0
	eng, m := newTestMixer(t, opts)
	require.NoError(t, m.Initialize(context.Background()))
	require.NoError(t, m.Attach(zone.Cabin, constStreamer{1}))
	m.UpdatePosition(-17.2, zone.Default())

	require.NoError(t, m.SetEffect(EffectDelay, true))
	out := eng.Render(400)
	for i := 0; i < 300; i++ {
		assert.Equal(t, 0.0, out[i][0], "sample %d", i)
	}
	assert.InDelta(t, 0.7, out[350][0], 1e-9)

	assert.ErrorIs(t, m.SetEffect(Effect("phaser"), true), ErrUnknownEffect)
}

func TestMixer_Restore(t *testing.T) {
	_, m := newTestMixer(t, testOptions())
	require.NoError(t, m.Initialize(context.Background()))

	saved := Settings{
		MasterVolume: 0.6,
		FadeDuration: 2 * time.Second,
		BaseVolumes:  map[zone.Name]float64{zone.Cockpit: 0.3},
		Effects:      EffectsState{Reverb: true},
	}
	require.NoError(t, m.Restore(saved))

	st := m.State()
	assert.Equal(t, 0.6, st.MasterVolume)
	assert.Equal(t, 2.0, st.FadeDuration)
	assert.Equal(t, 0.3, st.BaseVolumes[zone.Cockpit])
	assert.Equal(t, EffectsState{Reverb: true}, st.Effects)

	bad := saved
	bad.FadeDuration = -time.Second
	bad.BaseVolumes = map[zone.Name]float64{"lavatory": 1}
	assert.Error(t, m.Restore(bad))
}

func TestMixer_RestoreKeepsFadeWhenUnset(t *testing.T) {
	opts := testOptions()
	opts.FadeDuration = 1500 * time.Millisecond
	_, m := newTestMixer(t, opts)
	require.NoError(t, m.Initialize(context.Background()))

	require.NoError(t, m.Restore(Settings{MasterVolume: 0.8}))
	st := m.State()
	assert.Equal(t, 1.5, st.FadeDuration)
	assert.Equal(t, 0.8, st.MasterVolume)
}

func TestMixer_ResetVolumes(t *testing.T) {
	_, m := newTestMixer(t, testOptions())
	require.NoError(t, m.Initialize(context.Background()))
	m.UpdatePosition(-17.2, zone.Default())

	require.NoError(t, m.SetZoneBaseVolume(zone.Cabin, 0.2))
	m.SetMasterVolume(0.1)

	m.ResetVolumes()
	st := m.State()
	assert.Equal(t, 1.0, st.MasterVolume)
	assert.Equal(t, zone.DefaultBaseVolumes(), st.BaseVolumes)
	assert.InDelta(t, 0.7, st.PerZoneGain[zone.Cabin], 1e-12)
}

func TestMixer_PlayTestTone(t *testing.T) {
	opts := testOptions()
	opts.FadeDuration = 0
	eng, m := newTestMixer(t, opts)
	require.NoError(t, m.Initialize(context.Background()))
	m.UpdatePosition(-17.2, zone.Default())

	assert.ErrorIs(t, m.PlayTestTone("galley", 440, time.Second), zone.ErrUnknownZone)
	assert.Error(t, m.PlayTestTone(zone.Cabin, 440, 0))
	assert.Error(t, m.PlayTestTone(zone.Cabin, 600, time.Second))

	require.NoError(t, m.PlayTestTone(zone.Cabin, 50, 100*time.Millisecond))
	out := eng.Render(100)
	var peak float64
	for _, v := range out {
		peak = math.Max(peak, math.Abs(v[0]))
	}
	assert.InDelta(t, 0.3*0.7, peak, 0.01)
	assert.Greater(t, m.Level(), 0.0)

	bins, err := m.Spectrum()
	require.NoError(t, err)
	assert.Len(t, bins, AnalyserSize/2)
}
