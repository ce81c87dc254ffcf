package zone

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register(t *testing.T) {
	missing := Default()
	delete(missing, Cockpit)

	unknown := Default()
	unknown["galley"] = Zone{Start: -5, End: -6}

	loud := Default()
	loud[Cabin] = Zone{Start: -12, End: -22.4, BaseVolume: 1.5}

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"Valid", Default(), nil},
		{"MissingZone", missing, ErrMissingZone},
		{"UnknownZone", unknown, ErrUnknownZone},
		{"BaseVolumeOutOfRange", loud, ErrBaseVolume},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := r.Register("TEST", tt.cfg)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestRegistry_RejectKeepsPrevious(t *testing.T) {
	r := NewRegistry()

	good := Default()
	good[Cabin] = Zone{Start: -12, End: -30, BaseVolume: 0.5}
	require.NoError(t, r.Register("A320", good))

	bad := Default()
	delete(bad, Jetway)
	err := r.Register("A320", bad)
	require.Error(t, err)

	got, err := r.Get("A320")
	require.NoError(t, err)
	assert.Equal(t, -30.0, got[Cabin].End)
	assert.Contains(t, got, Jetway)
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	cfg, err := r.Get("A320")
	require.NoError(t, err)
	cfg[Cabin] = Zone{}

	again, _ := r.Get("A320")
	assert.Equal(t, Default()[Cabin], again[Cabin])
}

func TestRegistry_UnsetGeometryFallsBack(t *testing.T) {
	r := NewRegistry()
	zero := Config{
		Outside: {BaseVolume: 0.3},
		Jetway:  {},
		Cabin:   {},
		Cockpit: {},
	}
	require.NoError(t, r.Register("Blank", zero))

	got, _ := r.Get("Blank")
	assert.Equal(t, Default()[Cabin].Start, got[Cabin].Start)
	assert.Equal(t, 0.3, got[Outside].BaseVolume)
	assert.Equal(t, DefaultBaseVolumes()[Jetway], got[Jetway].BaseVolume)
}

func TestRegistry_LookupFallback(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, Default(), r.Lookup("does-not-exist"))

	_, err := r.Get("does-not-exist")
	assert.ErrorIs(t, err, ErrUnknownVehicle)
}

func TestRegistry_Builtins(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"A319", "A320", "A321", "A350", "B737", "B787", "B747", "CRJ", "E-Jet", "Custom"} {
		cfg, err := r.Get(id)
		require.NoError(t, err, id)
		assert.NoError(t, cfg.Validate(), id)
	}
	assert.Len(t, r.Vehicles(), 10)
}

func TestRegistry_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vehicles.yaml")
	content := `vehicles:
  ATR72:
    outside: {start: 0, end: -1.2, base_volume: 0.4}
    jetway: {start: -1.2, end: -6, base_volume: 0.7}
    cabin: {start: -6, end: -14, base_volume: 0.7}
    cockpit: {start: -14, end: -15.5, base_volume: 0.6}
  Broken:
    outside: {start: 0, end: -1}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r := NewRegistry()
	n, err := r.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cfg, err := r.Get("ATR72")
	require.NoError(t, err)
	assert.Equal(t, -15.5, cfg[Cockpit].End)

	_, err = r.Get("Broken")
	assert.Error(t, err)
}

func TestParseName(t *testing.T) {
	n, err := ParseName(" Cabin ")
	assert.NoError(t, err)
	assert.Equal(t, Cabin, n)

	_, err = ParseName("galley")
	assert.ErrorIs(t, err, ErrUnknownZone)
}
