package hw

import (
	"log/slog"
	"sync"

	"github.com/sweeney/friendship-lamp/internal/color"
)

// SimSensor is a sensor with nothing in front of it: it always reads Level.
type SimSensor struct {
	Level int
}

func (s SimSensor) ReadSample() (int, error) { return s.Level, nil }
func (s SimSensor) Close() error             { return nil }

// SimDisplay is a strip that logs colour changes instead of driving LEDs.
type SimDisplay struct {
	pixels
	last color.Color
}

// NewSimDisplay creates a simulated strip of n pixels.
func NewSimDisplay(n int) *SimDisplay {
	return &SimDisplay{pixels: newPixels(n)}
}

func (d *SimDisplay) Show() error {
	d.commit()
	if c := d.shown[0]; c != d.last {
		slog.Debug("strip", "color", c.String())
		d.last = c
	}
	return nil
}

// SimLight logs status LED changes.
type SimLight struct {
	mu sync.Mutex
	on bool
}

func (l *SimLight) Set(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if on != l.on {
		slog.Debug("status led", "on", on)
		l.on = on
	}
	return nil
}

func (l *SimLight) Close() error { return nil }
