package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOfflineEngine_SuspendResume(t *testing.T) {
	eng := NewOfflineEngine(1000)
	assert.True(t, eng.Ready())

	src := &sineStreamer{rate: 1000, freq: 50, amp: 1}
	eng.Play(src)

	fired := 0
	eng.OnResume(func() { fired++ })

	assert.NoError(t, eng.Suspend())
	assert.False(t, eng.Ready())
	out := eng.Render(10)
	for _, v := range out {
		assert.Equal(t, [2]float64{}, v)
	}
	assert.Equal(t, 0, src.n, "suspended engine must not pull the graph")

	assert.NoError(t, eng.Resume())
	assert.True(t, eng.Ready())
	assert.Equal(t, 1, fired)

	assert.Len(t, eng.RenderDuration(250*time.Millisecond), 250)
	assert.Equal(t, 250, src.n)
}

func TestOfflineEngine_NoRoot(t *testing.T) {
	eng := NewOfflineEngine(1000)
	out := eng.Render(4)
	assert.Len(t, out, 4)
	assert.NoError(t, eng.Close())
}
