// Package animation renders the lamp's light as a function of elapsed
// device time. One animation (time function) is active at a time; changes
// of animation or colour blend linearly from whatever is on the strip.
package animation

import (
	"errors"
	"fmt"

	"github.com/sweeney/friendship-lamp/internal/color"
	"github.com/sweeney/friendship-lamp/internal/logic"
)

// ErrUnknownAnimation is returned for animation kinds the engine does not know.
var ErrUnknownAnimation = errors.New("unknown animation")

// Display is the pixel surface the engine draws on.
type Display interface {
	// SetAll sets every pixel to c without showing it.
	SetAll(c color.Color)
	// Show pushes the pixel buffer to the strip.
	Show() error
	// Current returns the colour of pixel index as last shown.
	Current(index int) color.Color
}

// TransitionDuration is the blend time (seconds) used when switching to kind.
func TransitionDuration(kind logic.Animation) float64 {
	if kind == logic.AnimHolding {
		return 0.5
	}
	return 1
}

// Engine owns the animation state. It is not safe for concurrent use; the
// coordinator drives it from its single loop.
type Engine struct {
	display        Display
	activeDuration float64
	tickLength     float64

	kind          logic.Animation
	target        color.Color
	prev          color.Color
	transitioning bool
	elapsed       float64
	transitionT   float64
}

// NewEngine creates an idle engine. activeDuration and tickLength are in seconds.
func NewEngine(display Display, activeDuration, tickLength float64) *Engine {
	return &Engine{
		display:        display,
		activeDuration: activeDuration,
		tickLength:     tickLength,
		kind:           logic.AnimIdle,
	}
}

// SetTickLength changes how much device time one AdvanceAndRender covers.
func (e *Engine) SetTickLength(seconds float64) {
	e.tickLength = seconds
}

// TickLength returns the current render period in seconds.
func (e *Engine) TickLength() float64 {
	return e.tickLength
}

// SelectAnimation restarts the engine on kind, blending in from the colour
// currently shown.
func (e *Engine) SelectAnimation(kind logic.Animation) error {
	switch kind {
	case logic.AnimIdle, logic.AnimActive, logic.AnimHolding, logic.AnimSleep:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAnimation, kind)
	}
	e.kind = kind
	e.elapsed = 0
	e.beginTransition()
	return nil
}

// SelectColor blends towards a new base colour, keeping the animation.
func (e *Engine) SelectColor(target color.Color) {
	e.target = target
	e.beginTransition()
}

func (e *Engine) beginTransition() {
	e.prev = e.display.Current(0)
	e.transitioning = true
	e.transitionT = 0
}

// AdvanceAndRender draws the frame for the current time and moves the
// relevant clock forward by one tick.
func (e *Engine) AdvanceAndRender() error {
	next, ok := e.frame()
	if ok {
		e.display.SetAll(next)
		if err := e.display.Show(); err != nil {
			return fmt.Errorf("show frame: %w", err)
		}
	}

	if e.transitioning {
		e.transitionT += e.tickLength
	} else {
		e.elapsed += e.tickLength
	}
	return nil
}

func (e *Engine) frame() (color.Color, bool) {
	var level float64
	switch e.kind {
	case logic.AnimActive:
		if !e.transitioning && e.elapsed > e.activeDuration {
			e.kind = logic.AnimIdle
			return color.Off, true
		}
		level = Decay(e.elapsed, e.activeDuration)
	case logic.AnimHolding:
		level = Heartbeat(e.elapsed)
	case logic.AnimSleep:
		if !e.transitioning && e.elapsed > spikeEnd {
			e.kind = logic.AnimIdle
			return color.Off, true
		}
		level = Spike(e.elapsed)
	default:
		// Idle keeps whatever is on the strip.
		e.transitioning = false
		return color.Off, false
	}

	want := color.Dim(level, e.target)
	if e.transitioning {
		return e.blend(want), true
	}
	return want, true
}

func (e *Engine) blend(to color.Color) color.Color {
	duration := TransitionDuration(e.kind)
	if e.transitionT > duration || e.display.Current(0) == to {
		e.transitioning = false
		return to
	}
	return color.Lerp(e.prev, to, e.transitionT/duration)
}

// Kind returns the running animation.
func (e *Engine) Kind() logic.Animation {
	return e.kind
}

// Target returns the undimmed base colour.
func (e *Engine) Target() color.Color {
	return e.target
}

// Transitioning reports whether a blend is in progress.
func (e *Engine) Transitioning() bool {
	return e.transitioning
}
