//go:build !linux

package hw

import "errors"

var errUnsupported = errors.New("hw: not supported on this platform (requires Linux)")

// SPIBus is not available on non-Linux platforms.
type SPIBus struct{}

// OpenSPI returns an error on non-Linux platforms.
func OpenSPI(int) (*SPIBus, error) { return nil, errUnsupported }

// Close is a no-op.
func (b *SPIBus) Close() error { return nil }

// ADCSensor is not available on non-Linux platforms.
type ADCSensor struct{}

// NewADCSensor returns an error on non-Linux platforms.
func NewADCSensor(*SPIBus, int) (*ADCSensor, error) { return nil, errUnsupported }

func (s *ADCSensor) ReadSample() (int, error) { return 0, errUnsupported }
func (s *ADCSensor) Close() error             { return nil }

// Strip is not available on non-Linux platforms.
type Strip struct{ pixels }

// NewStrip returns a strip whose Show always fails.
func NewStrip(_ *SPIBus, n int, _ [3]float64) *Strip {
	return &Strip{pixels: newPixels(n)}
}

func (s *Strip) Show() error { return errUnsupported }
