// Package lamp runs the device: it reads the touch sensor, talks to the
// peer lamp and drives the LED strip from one cooperative loop.
package lamp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/friendship-lamp/internal/animation"
	"github.com/sweeney/friendship-lamp/internal/color"
	"github.com/sweeney/friendship-lamp/internal/config"
	"github.com/sweeney/friendship-lamp/internal/hw"
	"github.com/sweeney/friendship-lamp/internal/logic"
	"github.com/sweeney/friendship-lamp/internal/mqtt"
	"github.com/sweeney/friendship-lamp/internal/tick"
)

// ErrReboot is returned by Run after a reboot request was handed to the Rebooter.
var ErrReboot = errors.New("reboot requested")

// PeerLink is the connection to the other lamp. *mqtt.Supervisor
// implements it; PublishState and CheckMsg may block while the link is
// re-established. Sessions counts the sessions opened so far.
type PeerLink interface {
	PublishState(ctx context.Context, state logic.State, c color.Color) error
	CheckMsg(ctx context.Context) (mqtt.Message, error)
	Sessions() int
}

// Rebooter restarts the device.
type Rebooter interface {
	Reboot() error
}

// RebootFunc adapts a function to Rebooter.
type RebootFunc func() error

func (f RebootFunc) Reboot() error { return f() }

// ConfigUpdater persists a setting for the next boot.
type ConfigUpdater interface {
	RequestUpdate(setting, value string) error
}

// Observer is told about every change of local or peer state.
type Observer interface {
	SetLamp(local, peer logic.State, peerColor color.Color)
}

// Deps are the coordinator's collaborators. Rebooter, Config and Observer
// may be nil.
type Deps struct {
	Sensor   hw.Sensor
	Display  animation.Display
	Link     PeerLink
	Rebooter Rebooter
	Config   ConfigUpdater
	Observer Observer
	Clock    tick.Clock
}

// Coordinator owns the lamp state and schedules the sensor, message and
// LED work on one harmonized base tick. It is not safe for concurrent use.
type Coordinator struct {
	cfg  config.Config
	deps Deps

	classifier *logic.Classifier
	engine     *animation.Engine
	palette    logic.Palette

	local     logic.State
	peer      logic.State
	peerColor color.Color

	// Pending work, set by gestures and peer updates and consumed by the
	// led and message phases.
	animDirty  bool
	colorDirty bool
	peerDirty  bool

	// sessions is the link session count at the last message tick.
	sessions int

	stateTimeout int
	fast         bool
	fastTimeout  int
	ledPeriod    float64
	intervals    tick.Intervals
	counter      uint64
}

// New creates a coordinator in the inactive state with the LED in slow mode.
func New(cfg config.Config, deps Deps) (*Coordinator, error) {
	if deps.Clock == nil {
		deps.Clock = tick.SystemClock{}
	}
	c := &Coordinator{
		cfg:        cfg,
		deps:       deps,
		classifier: logic.NewClassifier(cfg.Classifier()),
		engine:     animation.NewEngine(deps.Display, cfg.ActiveDuration, cfg.LEDSlowTick),
		palette:    cfg.Palette(),
		local:      logic.StateInactive,
		peer:       logic.StateInactive,
		ledPeriod:  cfg.LEDSlowTick,
	}
	if err := c.harmonize(); err != nil {
		return nil, err
	}
	return c, nil
}

// Run drives the loop until ctx is done, a fault escapes the peer link,
// or a reboot is requested.
func (c *Coordinator) Run(ctx context.Context) error {
	slog.Info("lamp running",
		"base", c.intervals.Base,
		"sensor_every", c.intervals.Sensor,
		"message_every", c.intervals.Message,
		"led_every", c.intervals.LED,
	)
	for {
		start := c.deps.Clock.Now()
		if err := c.Step(ctx); err != nil {
			return err
		}
		base := time.Duration(c.intervals.Base * float64(time.Second))
		elapsed := c.deps.Clock.Now().Sub(start)
		if err := c.deps.Clock.Sleep(ctx, base-elapsed); err != nil {
			return err
		}
	}
}

// Step runs one base tick: sensor, then message check, then led, each
// only when due.
func (c *Coordinator) Step(ctx context.Context) error {
	n := c.counter
	c.counter++

	if tick.Due(n, c.intervals.Sensor) {
		if err := c.sensorTick(); err != nil {
			return err
		}
	}
	if tick.Due(n, c.intervals.Message) {
		if err := c.messageTick(ctx); err != nil {
			return err
		}
	}
	if tick.Due(n, c.intervals.LED) {
		if err := c.ledTick(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) sensorTick() error {
	sample, err := c.deps.Sensor.ReadSample()
	if err != nil {
		return fmt.Errorf("read sensor: %w", err)
	}

	g := c.classifier.Process(sample)
	if g != logic.GestureNone {
		slog.Debug("gesture", "gesture", g.String(), "sample", sample)
		c.local = g.State()
		c.animDirty = true
		c.colorDirty = true
		c.peerDirty = true
		switch g {
		case logic.GestureActive:
			c.stateTimeout = c.ticksOf(c.cfg.ActiveDuration)
		case logic.GestureSleep:
			c.stateTimeout = c.ticksOf(c.cfg.SleepDuration)
		}
		c.observe()
	} else if c.local != logic.StateHolding {
		c.stateTimeout--
	}

	// Holding has no countdown.
	if c.stateTimeout == 0 && (c.local == logic.StateActive || c.local == logic.StateSleep) {
		slog.Debug("state timed out", "state", string(c.local))
		c.local = logic.StateInactive
		c.colorDirty = true
		c.peerDirty = true
		c.observe()
	}
	return nil
}

// ticksOf converts a duration in seconds to whole sensor ticks.
func (c *Coordinator) ticksOf(seconds float64) int {
	return int(seconds / c.cfg.SensorTick)
}

func (c *Coordinator) messageTick(ctx context.Context) error {
	// After a reconnect the peer holds our will, not our state.
	if n := c.deps.Link.Sessions(); n != c.sessions {
		if c.sessions != 0 {
			slog.Info("link re-established, republishing state", "state", string(c.local))
			c.peerDirty = true
		}
		c.sessions = n
	}

	if c.peerDirty {
		out, err := logic.OutgoingColor(c.local, c.palette)
		if err != nil {
			return err
		}
		if err := c.deps.Link.PublishState(ctx, c.local, out); err != nil {
			return err
		}
		c.peerDirty = false
	}

	msg, err := c.deps.Link.CheckMsg(ctx)
	if err != nil {
		return err
	}

	switch m := msg.(type) {
	case nil:
	case mqtt.PeerUpdate:
		slog.Debug("peer update", "state", string(m.State), "color", m.Color.String())
		c.peer = m.State
		c.peerColor = m.Color
		c.colorDirty = true
		if m.State != logic.StateInactive {
			c.animDirty = true
		}
		c.observe()
	case mqtt.RebootRequest:
		slog.Warn("reboot requested by remote control")
		if c.deps.Rebooter != nil {
			if err := c.deps.Rebooter.Reboot(); err != nil {
				return fmt.Errorf("reboot: %w", err)
			}
		}
		return ErrReboot
	case mqtt.ConfigUpdate:
		if c.deps.Config == nil {
			slog.Warn("config update ignored, no store", "setting", m.Setting)
			break
		}
		if err := c.deps.Config.RequestUpdate(m.Setting, m.Value); err != nil {
			slog.Warn("config update rejected", "setting", m.Setting, "value", m.Value, "error", err)
		}
	}
	return nil
}

func (c *Coordinator) ledTick() error {
	if c.animDirty {
		c.animDirty = false
		if anim, ok := logic.ComputeAnimation(c.local, c.peer); ok {
			if err := c.engine.SelectAnimation(anim); err != nil {
				return err
			}
		}
		if err := c.setFast(true); err != nil {
			return err
		}
		c.fastTimeout = int(c.cfg.ActiveDuration * 0.3 / c.ledPeriod)
	}

	if c.colorDirty {
		c.colorDirty = false
		col, err := logic.ComputeColor(c.local, c.peer, c.peerColor, c.palette)
		if err != nil {
			return err
		}
		c.engine.SelectColor(col)
	}

	if c.fastTimeout == 0 {
		if err := c.setFast(false); err != nil {
			return err
		}
	}
	if c.local != logic.StateHolding && c.peer != logic.StateHolding {
		c.fastTimeout--
	}

	return c.engine.AdvanceAndRender()
}

// setFast switches the LED period and re-harmonizes the schedule when the
// mode actually changes.
func (c *Coordinator) setFast(fast bool) error {
	if c.fast == fast {
		return nil
	}
	c.fast = fast
	if fast {
		c.ledPeriod = c.cfg.LEDFastTick
	} else {
		c.ledPeriod = c.cfg.LEDSlowTick
	}
	c.engine.SetTickLength(c.ledPeriod)
	return c.harmonize()
}

func (c *Coordinator) harmonize() error {
	iv, err := tick.Harmonize(c.cfg.SensorTick, c.ledPeriod, c.cfg.MessageCheck)
	if err != nil {
		return err
	}
	c.intervals = iv
	return nil
}

func (c *Coordinator) observe() {
	if c.deps.Observer != nil {
		c.deps.Observer.SetLamp(c.local, c.peer, c.peerColor)
	}
}

// Local returns the local state.
func (c *Coordinator) Local() logic.State { return c.local }

// Peer returns the last known peer state and colour.
func (c *Coordinator) Peer() (logic.State, color.Color) { return c.peer, c.peerColor }

// Intervals returns the current tick schedule.
func (c *Coordinator) Intervals() tick.Intervals { return c.intervals }

// Fast reports whether the LED runs at the fast period.
func (c *Coordinator) Fast() bool { return c.fast }

// Engine exposes the animation engine for inspection.
func (c *Coordinator) Engine() *animation.Engine { return c.engine }
