//go:build !linux

package hw

// GPIOLight is not available on non-Linux platforms.
type GPIOLight struct{}

// NewGPIOLight returns an error on non-Linux platforms.
func NewGPIOLight(int) (*GPIOLight, error) { return nil, errUnsupported }

func (l *GPIOLight) Set(bool) error { return errUnsupported }
func (l *GPIOLight) Close() error   { return nil }
