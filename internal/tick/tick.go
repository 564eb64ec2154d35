// Package tick harmonizes the periods of the lamp's subsystems onto one
// base tick. The base tick is the greatest common divisor of all periods;
// each subsystem then runs every N base ticks.
package tick

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/sweeney/friendship-lamp/internal/fault"
)

const (
	// maxDecimals bounds the power-of-ten scaling so that periods which
	// are not representable as short decimals cannot loop forever.
	maxDecimals = 9
	// roundPrec is the decimal precision applied to scaled values before
	// they are compared against integers.
	roundPrec = 6
	intTol    = 1e-6
)

// GCD returns the greatest common divisor of the given positive periods
// (in seconds, possibly fractional). A single period is returned as is.
func GCD(periods ...float64) (float64, error) {
	if len(periods) == 0 {
		return 0, fault.Setupf("tick", "no periods to harmonize")
	}
	for _, p := range periods {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			return 0, fault.Setupf("tick", "period must be > 0, got %v", p)
		}
	}
	if len(periods) == 1 {
		return periods[0], nil
	}

	scale := 1.0
	scaled := make([]float64, len(periods))
	copy(scaled, periods)
	for decimals := 0; !allIntegral(scaled); decimals++ {
		if decimals == maxDecimals {
			return 0, fault.Setupf("tick", "periods %v need more than %d decimals", periods, maxDecimals)
		}
		scale *= 10
		for i, p := range periods {
			scaled[i] = scalar.Round(p*scale, roundPrec)
		}
	}

	g := int64(math.Round(scaled[0]))
	for _, s := range scaled[1:] {
		g = gcdTwo(g, int64(math.Round(s)))
	}
	return float64(g) / scale, nil
}

func gcdTwo(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func allIntegral(values []float64) bool {
	for _, v := range values {
		if !scalar.EqualWithinAbs(v, math.Round(v), intTol) {
			return false
		}
	}
	return true
}

// Intervals is the derived schedule: the base tick length and how many
// base ticks each subsystem waits between activations.
type Intervals struct {
	Base    float64
	Sensor  int
	LED     int
	Message int
}

// Harmonize computes Intervals for the sensor, led and message-check periods.
func Harmonize(sensor, led, message float64) (Intervals, error) {
	base, err := GCD(sensor, led, message)
	if err != nil {
		return Intervals{}, err
	}
	return Intervals{
		Base:    base,
		Sensor:  ticksOf(sensor, base),
		LED:     ticksOf(led, base),
		Message: ticksOf(message, base),
	}, nil
}

func ticksOf(period, base float64) int {
	return int(math.Round(period / base))
}

// Due reports whether a subsystem running every `every` base ticks is due
// on base tick number counter.
func Due(counter uint64, every int) bool {
	if every <= 0 {
		return false
	}
	return counter%uint64(every) == 0
}
