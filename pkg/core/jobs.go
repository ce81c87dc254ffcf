package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"cabinmix/pkg/sim"
)

// Job defines a scheduled task.
type Job interface {
	Name() string
	ShouldFire(t *sim.Telemetry) bool
	Run(ctx context.Context, t *sim.Telemetry)
}

// BaseJob provides atomic running state to prevent re-entry.
type BaseJob struct {
	name    string
	running int32 // 1 if running, 0 otherwise
}

func NewBaseJob(name string) BaseJob {
	return BaseJob{name: name}
}

func (b *BaseJob) Name() string {
	return b.name
}

// TryLock attempts to set running to 1. Returns true if successful.
func (b *BaseJob) TryLock() bool {
	return atomic.CompareAndSwapInt32(&b.running, 0, 1)
}

func (b *BaseJob) Unlock() {
	atomic.StoreInt32(&b.running, 0)
}

func (b *BaseJob) isRunning() bool {
	return atomic.LoadInt32(&b.running) == 1
}

// TimeJob fires when time elapsed exceeds threshold.
type TimeJob struct {
	BaseJob
	mu        sync.Mutex
	lastTime  time.Time
	threshold time.Duration
	action    func(context.Context, sim.Telemetry)
	firstRun  bool
}

func NewTimeJob(name string, threshold time.Duration, action func(context.Context, sim.Telemetry)) *TimeJob {
	return &TimeJob{
		BaseJob:   NewBaseJob(name),
		threshold: threshold,
		action:    action,
		firstRun:  true,
	}
}

func (j *TimeJob) ShouldFire(t *sim.Telemetry) bool {
	if j.isRunning() {
		return false
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.firstRun {
		return true
	}
	return time.Since(j.lastTime) >= j.threshold
}

func (j *TimeJob) Run(ctx context.Context, t *sim.Telemetry) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.mu.Lock()
	j.lastTime = time.Now()
	j.firstRun = false
	j.mu.Unlock()

	j.action(ctx, *t)
}
