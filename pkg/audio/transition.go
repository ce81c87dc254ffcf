package audio

// Transition is a linear gain ramp measured in frames on a bus's sample
// clock. Once now-StartedAt reaches Length the transition is dormant and
// yields To.
type Transition struct {
	From      float64
	To        float64
	StartedAt int64
	Length    int64
}

// ValueAt returns the gain at the given clock frame.
func (t Transition) ValueAt(now int64) float64 {
	if t.Done(now) {
		return t.To
	}
	if now <= t.StartedAt {
		return t.From
	}
	frac := float64(now-t.StartedAt) / float64(t.Length)
	return t.From + (t.To-t.From)*frac
}

// Done reports whether the ramp has reached its target.
func (t Transition) Done(now int64) bool {
	return t.Length <= 0 || now-t.StartedAt >= t.Length
}
