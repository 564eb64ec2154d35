package hw

import (
	"errors"
	"sync"

	"github.com/sweeney/friendship-lamp/internal/color"
)

// FakeSensor is a test double that returns scripted samples.
type FakeSensor struct {
	// Samples contains scripted readings. Each call to ReadSample()
	// consumes the next one.
	Samples []int

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by ReadSample()
	ReadError error
}

// NewFakeSensor creates a FakeSensor with the given samples.
func NewFakeSensor(samples ...int) *FakeSensor {
	return &FakeSensor{Samples: samples}
}

// ReadSample returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly until more
// are pushed.
func (f *FakeSensor) ReadSample() (int, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	sample := f.Samples[min(f.index, len(f.Samples)-1)]
	if f.index < len(f.Samples) {
		f.index++
	}
	return sample, nil
}

// Push appends samples to the script.
func (f *FakeSensor) Push(samples ...int) {
	f.Samples = append(f.Samples, samples...)
}

// Close marks the sensor as closed.
func (f *FakeSensor) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds to the first sample.
func (f *FakeSensor) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeDisplay is an in-memory pixel strip that records every shown frame
// (as the colour of pixel 0).
type FakeDisplay struct {
	pixels

	// Frames holds pixel 0 of every Show, oldest first.
	Frames []color.Color

	// ShowError, if set, will be returned by Show()
	ShowError error

	// OnShow, if set, is called with each shown frame.
	OnShow func(color.Color)
}

// NewFakeDisplay creates a display with n pixels, all off.
func NewFakeDisplay(n int) *FakeDisplay {
	return &FakeDisplay{pixels: newPixels(n)}
}

// Show makes the pending frame current.
func (d *FakeDisplay) Show() error {
	if d.ShowError != nil {
		return d.ShowError
	}
	d.commit()
	d.Frames = append(d.Frames, d.shown[0])
	if d.OnShow != nil {
		d.OnShow(d.shown[0])
	}
	return nil
}

// Last returns the most recent frame, or Off if nothing was shown.
func (d *FakeDisplay) Last() color.Color {
	if len(d.Frames) == 0 {
		return color.Off
	}
	return d.Frames[len(d.Frames)-1]
}

// FakeLight records every state it is set to.
type FakeLight struct {
	mu      sync.Mutex
	history []bool
}

func (l *FakeLight) Set(on bool) error {
	l.mu.Lock()
	l.history = append(l.history, on)
	l.mu.Unlock()
	return nil
}

// History returns every Set call so far.
func (l *FakeLight) History() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]bool(nil), l.history...)
}

// On reports the most recent state.
func (l *FakeLight) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.history) > 0 && l.history[len(l.history)-1]
}
