package hw

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/friendship-lamp/internal/fault"
	"github.com/sweeney/friendship-lamp/internal/tick"
)

// blockingClock never finishes a sleep until the context is cancelled.
type blockingClock struct {
	started chan struct{}
}

func (c *blockingClock) Now() time.Time { return time.Time{} }

func (c *blockingClock) Sleep(ctx context.Context, _ time.Duration) error {
	select {
	case c.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestConnectionFaultPatternBlinksCode(t *testing.T) {
	p := connectionFaultPattern(fault.Server, 30*time.Second)
	require.Len(t, p.steps, 8)
	on := 0
	var cycle time.Duration
	for _, s := range p.steps {
		if s.on {
			on++
		}
		cycle += s.d
	}
	assert.Equal(t, 4, on, "one blink per code unit")
	assert.Equal(t, 8*time.Second, cycle)
	assert.Equal(t, 3, p.loops)
}

func TestConnectionFaultPatternShorterThanCycle(t *testing.T) {
	p := connectionFaultPattern(fault.LocalNetwork, time.Second)
	assert.Equal(t, 0, p.loops)
}

func TestBlinkerPlaysFinitePattern(t *testing.T) {
	light := &FakeLight{}
	clock := tick.NewFakeClock(time.Unix(0, 0))
	b := NewBlinker(light, clock)

	b.ConnectionFault(fault.LocalNetwork, 10*time.Second)
	b.Wait()

	assert.Equal(t, []bool{true, false, true, false, true, false, true, false}, light.History())
	assert.Equal(t, []time.Duration{
		time.Second, 500 * time.Millisecond, time.Second, 2500 * time.Millisecond,
		time.Second, 500 * time.Millisecond, time.Second, 2500 * time.Millisecond,
	}, clock.Slept())
}

func TestBlinkerConnectedTurnsOff(t *testing.T) {
	light := &FakeLight{}
	b := NewBlinker(light, tick.NewFakeClock(time.Unix(0, 0)))

	b.Booting()
	b.Wait()
	assert.True(t, light.On())

	b.Connected()
	b.Wait()
	assert.False(t, light.On())
	assert.Equal(t, []bool{true, true, false}, light.History())
}

func TestBlinkerReplacesEndlessPattern(t *testing.T) {
	light := &FakeLight{}
	clock := &blockingClock{started: make(chan struct{}, 1)}
	b := NewBlinker(light, clock)

	b.SetupFault(nil)
	<-clock.started
	assert.True(t, light.On())

	require.NoError(t, b.Close())
	assert.False(t, light.On())
	b.Wait()
}
