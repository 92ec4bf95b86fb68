package scheduler

import (
	"context"
	"runtime"
	"time"
)

// DefaultFrameInterval is the pause between two chapters, enough for the
// viewer to paint the previous block
const DefaultFrameInterval = 50 * time.Millisecond

// FrameYielder suspends the scheduler for one frame interval
type FrameYielder struct {
	Interval time.Duration
}

// Yield waits one frame or until ctx is done
func (y FrameYielder) Yield(ctx context.Context) error {
	interval := y.Interval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ImmediateYielder only lets other goroutines run. Used by text hosts and
// tests.
type ImmediateYielder struct{}

func (ImmediateYielder) Yield(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}
