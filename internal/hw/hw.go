// Package hw drives the lamp hardware: an MCP3008 ADC reading the touch
// sensor and a WS2801 pixel strip, both on SPI0, plus a status LED on a
// GPIO line. The real implementations need Linux; fakes allow testing
// without hardware.
package hw

import (
	"math"

	"github.com/sweeney/friendship-lamp/internal/color"
)

// Sensor reads one raw touch sample. Samples are scaled to 16 bits.
type Sensor interface {
	ReadSample() (int, error)
	Close() error
}

// Chip selects on SPI0.
const (
	ChipADC   = 0
	ChipStrip = 1
)

// adcShift scales the MCP3008's 10-bit reading to 16 bits.
const adcShift = 6

// mcp3008Request builds the single-ended read command for channel.
func mcp3008Request(channel int) []byte {
	return []byte{1, byte(8+channel) << 4, 0}
}

// mcp3008Value extracts the 10-bit result from an exchanged request.
func mcp3008Value(resp []byte) int {
	return (int(resp[1]&3)<<8 + int(resp[2])) << adcShift
}

// ws2801Frame renders pixels as RGB bytes with per-channel correction.
func ws2801Frame(pixels []color.Color, correction [3]float64) []byte {
	out := make([]byte, 3*len(pixels))
	for i, p := range pixels {
		out[3*i] = corrected(p.Red, correction[0])
		out[3*i+1] = corrected(p.Green, correction[1])
		out[3*i+2] = corrected(p.Blue, correction[2])
	}
	return out
}

func corrected(v byte, f float64) byte {
	return byte(math.Min(float64(v)*f, 255))
}

// pixels is the buffer shared by every Display implementation: SetAll
// writes the pending frame, commit makes it current.
type pixels struct {
	pending []color.Color
	shown   []color.Color
}

func newPixels(n int) pixels {
	if n < 1 {
		n = 1
	}
	return pixels{
		pending: make([]color.Color, n),
		shown:   make([]color.Color, n),
	}
}

// SetAll sets every pixel of the pending frame.
func (p *pixels) SetAll(c color.Color) {
	for i := range p.pending {
		p.pending[i] = c
	}
}

// Current returns pixel index as last shown; out of range reads as Off.
func (p *pixels) Current(index int) color.Color {
	if index < 0 || index >= len(p.shown) {
		return color.Off
	}
	return p.shown[index]
}

// Len returns the number of pixels.
func (p *pixels) Len() int {
	return len(p.shown)
}

func (p *pixels) commit() {
	copy(p.shown, p.pending)
}
