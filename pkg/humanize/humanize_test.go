package humanize

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	waits []time.Duration
}

func (r *recorder) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func TestBetweenStaysInRange(t *testing.T) {
	p := NewSeededPacer(1, nil)
	lo, hi := 3*time.Second, 7*time.Second
	seen := map[bool]int{}
	for i := 0; i < 500; i++ {
		d := p.Between(lo, hi)
		require.GreaterOrEqual(t, d, lo)
		require.LessOrEqual(t, d, hi)
		seen[d < 5*time.Second]++
	}
	assert.NotZero(t, seen[true])
	assert.NotZero(t, seen[false])
}

func TestBetweenDegenerateRange(t *testing.T) {
	p := NewSeededPacer(1, nil)
	assert.Equal(t, 2*time.Second, p.Between(2*time.Second, 2*time.Second))
	assert.Equal(t, 2*time.Second, p.Between(2*time.Second, time.Second))
}

func TestSeededPacerIsDeterministic(t *testing.T) {
	a := NewSeededPacer(42, nil)
	b := NewSeededPacer(42, nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.ScrollStep(), b.ScrollStep())
	}
}

func TestPauseUsesSleeper(t *testing.T) {
	rec := &recorder{}
	p := NewSeededPacer(7, rec.sleep)

	require.NoError(t, p.Pause(context.Background(), time.Second, 2*time.Second))
	require.NoError(t, p.Sleep(context.Background(), 5*time.Second))

	require.Len(t, rec.waits, 2)
	assert.GreaterOrEqual(t, rec.waits[0], time.Second)
	assert.LessOrEqual(t, rec.waits[0], 2*time.Second)
	assert.Equal(t, 5*time.Second, rec.waits[1])
}

func TestPausePropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewSeededPacer(7, RealSleep)
	assert.ErrorIs(t, p.Pause(ctx, time.Hour, 2*time.Hour), context.Canceled)
}

func TestScrollPlan(t *testing.T) {
	p := NewSeededPacer(3, nil)
	plan := p.ScrollPlan(2500)
	require.NotEmpty(t, plan)

	prev := 0
	for _, offset := range plan {
		step := offset - prev
		assert.GreaterOrEqual(t, step, MinScrollStep)
		assert.LessOrEqual(t, step, MaxScrollStep)
		prev = offset
	}
	assert.GreaterOrEqual(t, plan[len(plan)-1], 2500)
	assert.Less(t, plan[len(plan)-2], 2500)

	assert.Empty(t, p.ScrollPlan(0))
}

func TestScrollPause(t *testing.T) {
	p := NewSeededPacer(9, nil)
	for i := 0; i < 100; i++ {
		d := p.ScrollPause(2 * time.Second)
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.LessOrEqual(t, d, 3*time.Second)
	}
}
