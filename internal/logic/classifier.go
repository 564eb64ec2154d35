package logic

// ClassifierConfig holds the gesture thresholds. Sensitivities are signed
// sample deltas; windows are counted in sensor ticks.
type ClassifierConfig struct {
	PlacedSensitivity  int
	RemovedSensitivity int
	SleepWindow        int
	HoldThreshold      int
}

// Classifier turns a noisy single-channel sensor into discrete gestures.
// A hand being placed shows up as a positive jump between two samples, a
// hand being removed as a negative one.
type Classifier struct {
	cfg ClassifierConfig

	prev    int
	primed  bool
	placed  bool
	holding bool
	// Ticks the hand has been on the sensor.
	placedFor int
	// Unplaced ticks since the last placement. Starts at SleepWindow so
	// the very first placement is not taken for a double tap.
	sinceRemoval int
}

// NewClassifier creates an idle classifier.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	return &Classifier{
		cfg:          cfg,
		sinceRemoval: cfg.SleepWindow,
	}
}

// Process consumes one sample and returns at most one gesture.
// The first sample only primes the delta baseline.
func (c *Classifier) Process(sample int) Gesture {
	if !c.primed {
		c.prev = sample
		c.primed = true
		return GestureNone
	}

	if c.placed {
		c.placedFor++
	} else {
		c.sinceRemoval++
	}

	out := GestureNone
	delta := sample - c.prev

	if delta > c.cfg.PlacedSensitivity && !c.placed {
		c.placed = true
		if c.sinceRemoval < c.cfg.SleepWindow {
			out = GestureSleep
		} else {
			out = GestureActive
		}
		c.sinceRemoval = 0
	} else if delta < c.cfg.RemovedSensitivity {
		c.placed = false
		c.placedFor = 0
		if c.holding {
			c.holding = false
			out = GestureActive
		}
	}

	if c.placed && c.placedFor == c.cfg.HoldThreshold {
		c.holding = true
		out = GestureHolding
	}

	c.prev = sample
	return out
}

// Placed reports whether a hand is currently on the sensor.
func (c *Classifier) Placed() bool {
	return c.placed
}

// Holding reports whether the current placement has passed the hold threshold.
func (c *Classifier) Holding() bool {
	return c.holding
}
