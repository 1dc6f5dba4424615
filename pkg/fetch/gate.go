package fetch

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate is the counting permit set that bounds simultaneous in-flight fetches.
// One Gate is shared by every listing and detail fetch of a run.
type Gate struct {
	sem      *semaphore.Weighted
	limit    int64
	inFlight atomic.Int64
	peak     atomic.Int64
	acquired atomic.Int64 // total permits ever granted
}

// NewGate creates a gate with the given number of permits (minimum 1).
func NewGate(limit int) *Gate {
	if limit < 1 {
		limit = 1
	}
	return &Gate{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: int64(limit),
	}
}

// Acquire blocks until a permit is available or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.acquired.Add(1)
	current := g.inFlight.Add(1)
	for {
		prev := g.peak.Load()
		if current <= prev || g.peak.CompareAndSwap(prev, current) {
			break
		}
	}
	return nil
}

// Release returns one permit. Every successful Acquire must be paired with exactly one Release.
func (g *Gate) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// Do runs fn while holding one permit; the permit is released on every exit path.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return fn(ctx)
}

// Limit returns the number of permits
func (g *Gate) Limit() int {
	return int(g.limit)
}

// InFlight returns the number of permits currently held
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}

// Peak returns the highest number of permits held at the same time
func (g *Gate) Peak() int {
	return int(g.peak.Load())
}

// Acquired returns the total number of permits granted so far
func (g *Gate) Acquired() int {
	return int(g.acquired.Load())
}
