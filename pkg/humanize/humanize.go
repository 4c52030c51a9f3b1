// Package humanize spaces out browser actions so a session does not move at
// machine speed. All waits go through a Sleeper so tests can observe them
// without blocking.
package humanize

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"liscraper/pkg/retry"
)

// Sleeper blocks for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// RealSleep is the wall-clock Sleeper
func RealSleep(ctx context.Context, d time.Duration) error {
	return retry.Wait(ctx, d)
}

// Scroll step bounds in CSS pixels, and the extra random pause per step
const (
	MinScrollStep   = 200
	MaxScrollStep   = 400
	maxScrollJitter = time.Second
)

// Pacer draws random delays and scroll steps
type Pacer struct {
	mu    sync.Mutex
	rng   *rand.Rand
	sleep Sleeper
}

// NewPacer creates a Pacer seeded from the runtime's random source
func NewPacer(sleep Sleeper) *Pacer {
	return NewSeededPacer(rand.Uint64(), sleep)
}

// NewSeededPacer creates a deterministic Pacer
func NewSeededPacer(seed uint64, sleep Sleeper) *Pacer {
	if sleep == nil {
		sleep = RealSleep
	}
	return &Pacer{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		sleep: sleep,
	}
}

// Between returns a duration uniformly drawn from [min, max]
func (p *Pacer) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return min + time.Duration(p.rng.Int64N(int64(max-min)+1))
}

// Pause sleeps for a random duration in [min, max]
func (p *Pacer) Pause(ctx context.Context, min, max time.Duration) error {
	return p.sleep(ctx, p.Between(min, max))
}

// Sleep waits exactly d through the Pacer's Sleeper
func (p *Pacer) Sleep(ctx context.Context, d time.Duration) error {
	return p.sleep(ctx, d)
}

// ScrollStep returns the next scroll distance in pixels
func (p *Pacer) ScrollStep() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return MinScrollStep + p.rng.IntN(MaxScrollStep-MinScrollStep+1)
}

// ScrollPause returns base plus up to one second of jitter
func (p *Pacer) ScrollPause(base time.Duration) time.Duration {
	return p.Between(base, base+maxScrollJitter)
}

// ScrollPlan lists the offsets visited when walking a page of the given
// height from the top, one random step at a time. The last offset is the
// first one at or past the bottom.
func (p *Pacer) ScrollPlan(height int) []int {
	var plan []int
	for pos := 0; pos < height; {
		pos += p.ScrollStep()
		plan = append(plan, pos)
	}
	return plan
}
