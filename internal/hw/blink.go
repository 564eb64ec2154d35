package hw

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sweeney/friendship-lamp/internal/fault"
	"github.com/sweeney/friendship-lamp/internal/tick"
)

// Light is a single on/off indicator.
type Light interface {
	Set(on bool) error
}

type step struct {
	on bool
	d  time.Duration
}

// pattern plays steps loops times; loops < 0 repeats until replaced.
type pattern struct {
	name  string
	steps []step
	loops int
}

func steadyPattern(name string) pattern {
	return pattern{name: name, steps: []step{{on: true}}, loops: 1}
}

func connectedPattern() pattern {
	return pattern{name: "connected", steps: []step{{true, 3 * time.Second}, {false, 0}}, loops: 1}
}

func setupFaultPattern() pattern {
	return pattern{name: "setup-fault", steps: []step{{true, 1500 * time.Millisecond}, {false, 500 * time.Millisecond}}, loops: -1}
}

func otherFaultPattern() pattern {
	return pattern{name: "other-fault", steps: []step{{true, 2 * time.Second}, {false, time.Second}}, loops: -1}
}

// connectionFaultPattern blinks code times, pauses, and repeats for as many
// whole cycles as fit in wait.
func connectionFaultPattern(code fault.Code, wait time.Duration) pattern {
	n := int(code)
	if n < 1 {
		n = 1
	}
	steps := make([]step, 0, 2*n)
	for i := 0; i < n; i++ {
		steps = append(steps, step{true, time.Second}, step{false, 500 * time.Millisecond})
	}
	steps[len(steps)-1].d += 2 * time.Second

	var cycle time.Duration
	for _, s := range steps {
		cycle += s.d
	}
	return pattern{name: "connection-fault", steps: steps, loops: int(wait / cycle)}
}

// Blinker shows lifecycle events on a Light. Each event replaces the
// pattern currently playing.
type Blinker struct {
	light Light
	clock tick.Clock

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBlinker drives light using clock for timing.
func NewBlinker(light Light, clock tick.Clock) *Blinker {
	if clock == nil {
		clock = tick.SystemClock{}
	}
	return &Blinker{light: light, clock: clock}
}

func (b *Blinker) Booting()    { b.play(steadyPattern("booting")) }
func (b *Blinker) Connecting() { b.play(steadyPattern("connecting")) }
func (b *Blinker) Connected()  { b.play(connectedPattern()) }

func (b *Blinker) SetupFault(error) { b.play(setupFaultPattern()) }
func (b *Blinker) OtherFault(error) { b.play(otherFaultPattern()) }

func (b *Blinker) ConnectionFault(code fault.Code, wait time.Duration) {
	b.play(connectionFaultPattern(code, wait))
}

// Wait blocks until the current pattern has finished.
func (b *Blinker) Wait() {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close stops any pattern and switches the light off.
func (b *Blinker) Close() error {
	b.stop()
	return b.light.Set(false)
}

func (b *Blinker) play(p pattern) {
	b.stop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	b.mu.Lock()
	b.cancel = cancel
	b.done = done
	b.mu.Unlock()
	go b.run(ctx, p, done)
}

func (b *Blinker) stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (b *Blinker) run(ctx context.Context, p pattern, done chan struct{}) {
	defer close(done)
	slog.Debug("status: pattern", "name", p.name)
	for i := 0; p.loops < 0 || i < p.loops; i++ {
		for _, s := range p.steps {
			if err := b.light.Set(s.on); err != nil {
				slog.Debug("status: light", "error", err)
			}
			if s.d == 0 {
				continue
			}
			if err := b.clock.Sleep(ctx, s.d); err != nil {
				return
			}
		}
	}
}
