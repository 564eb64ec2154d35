package animation

import "math"

// Normalised brightness curves. Each maps elapsed seconds to a dim factor
// that is applied to the base colour.

const (
	heartbeatPeriod = 1.5
	spikeEnd        = 3.0
	// decayRate makes the active decay reach ~0.4% at activeDuration.
	decayRate = 5.541
)

// Decay is the active-mode exponential decay.
func Decay(t, activeDuration float64) float64 {
	return math.Exp(-decayRate * t / activeDuration)
}

// Heartbeat is a double pulse repeating every 1.5 seconds.
func Heartbeat(t float64) float64 {
	t -= math.Floor(t/heartbeatPeriod) * heartbeatPeriod
	if t < 0.5 {
		return math.Exp(-100*sq(t-0.2)) + 0.75*math.Exp(-100*sq(t-0.5))
	}
	return 0.75 * math.Exp(-7*math.Pow(t-0.5, 1.8))
}

// Spike rises sharply to full brightness at 0.5s and fades out by 3s.
func Spike(t float64) float64 {
	switch {
	case t < 0.5:
		return math.Exp(-20 * sq(t-0.5))
	case t < spikeEnd:
		return math.Exp(-sq(t - 0.5))
	default:
		return 0
	}
}

func sq(x float64) float64 {
	return x * x
}
