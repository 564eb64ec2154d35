// Package color holds the RGB value type shared by the animation engine,
// the coordinator and the wire codec.
package color

import (
	"fmt"
	"math"
)

// Color is one RGB pixel value at full brightness unless dimmed.
type Color struct {
	Red   byte
	Green byte
	Blue  byte
}

// Off is the dark pixel.
var Off = Color{}

// RGB is a shorthand constructor.
func RGB(r, g, b byte) Color {
	return Color{Red: r, Green: g, Blue: b}
}

// IsOff is true if all components are zero.
func (c Color) IsOff() bool {
	return c.Red == 0 && c.Green == 0 && c.Blue == 0
}

// String renders the colour the way it travels on the wire: "(r, g, b)".
func (c Color) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.Red, c.Green, c.Blue)
}

// Mix sums the channels of a and b and rescales the result so that its
// largest channel is 255. Hue is kept, energy is not. Mixing two dark
// colours yields Off.
func Mix(a, b Color) Color {
	r := int(a.Red) + int(b.Red)
	g := int(a.Green) + int(b.Green)
	bl := int(a.Blue) + int(b.Blue)
	peak := max(r, g, bl)
	if peak == 0 {
		return Off
	}
	return Color{
		Red:   byte(r * 255 / peak),
		Green: byte(g * 255 / peak),
		Blue:  byte(bl * 255 / peak),
	}
}

// Dim multiplies every channel by factor, truncating and clamping into
// the valid channel range.
func Dim(factor float64, c Color) Color {
	return Color{
		Red:   clamp(float64(c.Red) * factor),
		Green: clamp(float64(c.Green) * factor),
		Blue:  clamp(float64(c.Blue) * factor),
	}
}

// Lerp interpolates linearly from a to b; frac 0 yields a, 1 yields b.
func Lerp(a, b Color, frac float64) Color {
	return Color{
		Red:   lerp(a.Red, b.Red, frac),
		Green: lerp(a.Green, b.Green, frac),
		Blue:  lerp(a.Blue, b.Blue, frac),
	}
}

func lerp(a, b byte, frac float64) byte {
	return clamp(float64(a)*(1-frac) + float64(b)*frac)
}

func clamp(v float64) byte {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v)
}
