package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedChecker struct {
	results []bool
	calls   int
}

func (c *scriptedChecker) Check(ctx context.Context) Result {
	i := c.calls
	if i >= len(c.results) {
		i = len(c.results) - 1
	}
	c.calls++
	return Result{Healthy: c.results[i]}
}

func (c *scriptedChecker) Type() CheckType { return CheckTypeHTTP }

func TestProbeStartsOptimistic(t *testing.T) {
	checker := &scriptedChecker{results: []bool{true}}
	p := NewProbe(checker, nil)
	assert.True(t, p.Available())
}

func TestProbeSingleFailureDoesNotTripBreaker(t *testing.T) {
	checker := &scriptedChecker{results: []bool{false, true}}
	p := NewProbe(checker, nil)

	healthy := p.CheckNow(context.Background())
	assert.False(t, healthy)

	healthy = p.CheckNow(context.Background())
	assert.True(t, healthy)
}

func TestProbeFiresOnFlipOnlyOnChange(t *testing.T) {
	checker := &scriptedChecker{results: []bool{false, false, false}}
	flips := 0
	p := NewProbe(checker, func(available bool) { flips++ })

	p.CheckNow(context.Background())
	p.CheckNow(context.Background())
	p.CheckNow(context.Background())

	assert.Equal(t, 1, flips) // only the initial true->false transition
}

func TestProbeRecoversOnSingleSuccessAfterTrip(t *testing.T) {
	// A breaker timeout of ~0 means the very next call after tripping is
	// already eligible to be a half-open trial, letting this test avoid
	// sleeping a real ProbeInterval.
	checker := &scriptedChecker{results: []bool{false, false, false, true}}
	var transitions []bool
	p := newProbe(checker, func(available bool) { transitions = append(transitions, available) }, time.Nanosecond)

	for i := 0; i < FailureThreshold; i++ {
		p.CheckNow(context.Background())
	}
	require.False(t, p.Available())

	time.Sleep(time.Millisecond)
	healthy := p.CheckNow(context.Background())
	assert.True(t, healthy)
	assert.True(t, p.Available())

	require.Len(t, transitions, 2)
	assert.False(t, transitions[0])
	assert.True(t, transitions[1])
}

func TestProbeStaysUnavailableWhileBreakerOpen(t *testing.T) {
	checker := &scriptedChecker{results: []bool{false, false, false, true}}
	p := NewProbe(checker, nil) // full ProbeInterval timeout

	for i := 0; i < FailureThreshold; i++ {
		p.CheckNow(context.Background())
	}
	require.False(t, p.Available())

	// Breaker is open and ProbeInterval has not elapsed: this call is
	// short-circuited, not a real trial, so it stays unavailable even
	// though the script's next scheduled result is healthy.
	healthy := p.CheckNow(context.Background())
	assert.False(t, healthy)
}

func TestProbeStaleBeforeFirstCheck(t *testing.T) {
	checker := &scriptedChecker{results: []bool{true}}
	p := NewProbe(checker, nil)
	assert.True(t, p.Stale())

	p.CheckNow(context.Background())
	assert.False(t, p.Stale())
}
