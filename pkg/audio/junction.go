package audio

import "github.com/gopxl/beep/v2"

// Junction sums a set of upstream streamers. Unlike beep.Mixer it never drops
// an input when it drains, so the graph's wiring only changes through
// Connect and Disconnect. Callers hold the engine lock.
type Junction struct {
	inputs []beep.Streamer
	buf    [][2]float64
}

// Connect adds s as an input.
func (j *Junction) Connect(s beep.Streamer) {
	j.inputs = append(j.inputs, s)
}

// Disconnect removes every input.
func (j *Junction) Disconnect() {
	clear(j.inputs)
	j.inputs = j.inputs[:0]
}

// Inputs returns the number of connected streamers.
func (j *Junction) Inputs() int { return len(j.inputs) }

func (j *Junction) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		samples[i] = [2]float64{}
	}
	if len(j.buf) < len(samples) {
		j.buf = make([][2]float64, len(samples))
	}
	buf := j.buf[:len(samples)]

	for _, in := range j.inputs {
		got, _ := in.Stream(buf)
		for i := 0; i < got; i++ {
			samples[i][0] += buf[i][0]
			samples[i][1] += buf[i][1]
		}
	}
	return len(samples), true
}

func (j *Junction) Err() error { return nil }
