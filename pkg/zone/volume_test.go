package zone

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name string
		pos  float64
		want Name
	}{
		{"AtDoor", 0.0, Outside},
		{"OutsideFarAway", 5.0, Outside},
		{"OutsideToJetwayBoundary", -1.6, Jetway},
		{"InJetway", -6.0, Jetway},
		{"JetwayToCabinBoundary", -12.0, Cabin},
		{"InCabin", -17.0, Cabin},
		{"CabinToCockpitBoundary", -22.4, Cockpit},
		{"InCockpit", -23.5, Cockpit},
		{"PastCockpit", -30.0, Outside},
		{"NaN", math.NaN(), Outside},
		{"Inf", math.Inf(-1), Outside},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.pos, cfg))
		})
	}
}

func TestResolve_ReversedBounds(t *testing.T) {
	cfg := Default()
	cab := cfg[Cabin]
	cab.Start, cab.End = cab.End, cab.Start
	cfg[Cabin] = cab

	assert.Equal(t, Cabin, Resolve(-17.0, cfg))
	assert.Equal(t, Cabin, Resolve(-12.0, cfg))
}

func TestCalculate_Normalization(t *testing.T) {
	// Overlapping zones with full base volume force normalization.
	loud := Config{
		Outside: {Start: 0, End: -10, BaseVolume: 1},
		Jetway:  {Start: -2, End: -12, BaseVolume: 1},
		Cabin:   {Start: -4, End: -14, BaseVolume: 1},
		Cockpit: {Start: -6, End: -16, BaseVolume: 1},
	}

	for _, cfg := range []Config{Default(), loud} {
		for pos := 2.0; pos >= -30.0; pos -= 0.05 {
			g, _ := Calculate(pos, cfg, DefaultTransitionBuffer)
			assert.LessOrEqual(t, g.Sum(), 1.0+1e-9, "pos=%v", pos)
			for n, v := range g {
				assert.GreaterOrEqual(t, v, 0.0, "zone %s pos=%v", n, pos)
			}
		}
	}

	g, _ := Calculate(-8.0, loud, DefaultTransitionBuffer)
	assert.InDelta(t, 1.0, g.Sum(), 1e-9)
}

func TestCalculate_FalloffMonotonic(t *testing.T) {
	cfg := Default()
	for _, n := range Names {
		z := cfg[n]
		lo, hi := z.Bounds()
		center := (lo + hi) / 2
		edge := hi + DefaultTransitionBuffer

		prev := math.Inf(1)
		for pos := center; pos <= edge; pos += 0.01 {
			// Single-zone config isolates the falloff from normalization.
			single := Config{n: z}
			for _, other := range Names {
				if other != n {
					single[other] = Zone{Start: 1000, End: 1001}
				}
			}
			g, _ := Calculate(pos, single, DefaultTransitionBuffer)
			assert.LessOrEqual(t, g[n], prev+1e-12, "zone %s pos=%v", n, pos)
			prev = g[n]
		}
	}
}

func TestCalculate_CenterIsBaseVolume(t *testing.T) {
	cfg := Default()
	g, _ := Calculate(-17.2, cfg, DefaultTransitionBuffer)
	assert.InDelta(t, 0.7, g[Cabin], 1e-9)
	assert.Equal(t, 0.0, g[Outside])
	assert.Equal(t, 0.0, g[Cockpit])
}

func TestCalculate_DegenerateZone(t *testing.T) {
	cfg := Default()
	cfg[Cockpit] = Zone{Start: -24.3, End: -24.3, BaseVolume: 0.65}

	tests := []struct {
		name string
		pos  float64
		want float64
	}{
		{"AtPoint", -24.3, 0.65},
		{"InsideBufferBelow", -24.45, 0.65},
		{"InsideBufferAbove", -24.15, 0.65},
		{"OutsideBuffer", -24.6, 0},
		{"FarAway", -10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := Calculate(tt.pos, cfg, DefaultTransitionBuffer)
			assert.InDelta(t, tt.want, g[Cockpit], 1e-9)
		})
	}
}

func TestCalculate_InvalidGeometry(t *testing.T) {
	cfg := Default()
	cfg[Jetway] = Zone{Start: math.NaN(), End: -12, BaseVolume: 0.8}

	g, warnings := Calculate(-6.0, cfg, DefaultTransitionBuffer)
	assert.Equal(t, 0.0, g[Jetway])
	assert.Len(t, warnings, 1)
	assert.Equal(t, Jetway, warnings[0].Zone)
	assert.Len(t, g, 4)
}

func TestCalculate_NonFinitePosition(t *testing.T) {
	g, warnings := Calculate(math.NaN(), Default(), DefaultTransitionBuffer)
	assert.NotEmpty(t, warnings)
	assert.Equal(t, 0.0, g.Sum())
	assert.Len(t, g, 4)
}

func TestCalculate_CabinJetwayCrossfade(t *testing.T) {
	cfg := Default()

	assert.Equal(t, Cabin, Resolve(-12.0, cfg))

	g, warnings := Calculate(-12.0, cfg, DefaultTransitionBuffer)
	assert.Empty(t, warnings)
	assert.Greater(t, g[Cabin], 0.0)
	assert.Greater(t, g[Jetway], 0.0)
	assert.InDelta(t, 1.0, g[Cabin]/g[Jetway], 0.25)
	assert.InDelta(t, 0.0, g[Outside], 1e-9)
	assert.InDelta(t, 0.0, g[Cockpit], 1e-9)
}

func TestCalculate_NegativeBufferUsesDefault(t *testing.T) {
	cfg := Default()
	a, _ := Calculate(-12.0, cfg, -1)
	b, _ := Calculate(-12.0, cfg, DefaultTransitionBuffer)
	assert.Equal(t, b, a)
}
