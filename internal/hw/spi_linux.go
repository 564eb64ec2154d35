//go:build linux

package hw

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// SPIBus owns SPI0 and serialises exchanges between the ADC and the strip.
type SPIBus struct {
	mu sync.Mutex
}

// OpenSPI maps the GPIO registers and starts SPI0 at speed Hz.
func OpenSPI(speed int) (*SPIBus, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open rpio: %w", err)
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		rpio.Close()
		return nil, fmt.Errorf("begin spi: %w", err)
	}
	rpio.SpiSpeed(speed)
	return &SPIBus{}, nil
}

func (b *SPIBus) exchange(chip uint8, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rpio.SpiChipSelect(chip)
	rpio.SpiExchange(data)
}

// Close stops SPI and unmaps the registers.
func (b *SPIBus) Close() error {
	rpio.SpiEnd(rpio.Spi0)
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("close rpio: %w", err)
	}
	return nil
}

// ADCSensor reads the touch sensor through an MCP3008 channel.
type ADCSensor struct {
	bus     *SPIBus
	channel int
}

// NewADCSensor reads from channel (0-7) of the ADC on bus.
func NewADCSensor(bus *SPIBus, channel int) (*ADCSensor, error) {
	if channel < 0 || channel > 7 {
		return nil, fmt.Errorf("adc channel %d out of range 0-7", channel)
	}
	return &ADCSensor{bus: bus, channel: channel}, nil
}

// ReadSample returns the current reading scaled to 16 bits.
func (s *ADCSensor) ReadSample() (int, error) {
	buf := mcp3008Request(s.channel)
	s.bus.exchange(ChipADC, buf)
	return mcp3008Value(buf), nil
}

// Close is a no-op; the bus is closed by its owner.
func (s *ADCSensor) Close() error { return nil }

// Strip is a WS2801 pixel strip.
type Strip struct {
	pixels
	bus        *SPIBus
	correction [3]float64
}

// NewStrip drives n pixels on bus with per-channel colour correction.
func NewStrip(bus *SPIBus, n int, correction [3]float64) *Strip {
	return &Strip{pixels: newPixels(n), bus: bus, correction: correction}
}

// Show pushes the pending frame to the strip.
func (s *Strip) Show() error {
	s.bus.exchange(ChipStrip, ws2801Frame(s.pending, s.correction))
	s.commit()
	return nil
}
