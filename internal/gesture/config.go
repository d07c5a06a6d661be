package gesture

import "time"

// Config holds the timing and distance thresholds of the classifier.
type Config struct {
	LongPressDelay    time.Duration
	MoveTolerance     float64 // px
	DoubleTapWindow   time.Duration
	DoubleTapDistance float64 // px
	SwipeMaxDuration  time.Duration
	SwipeMinDistance  float64 // px
	MinScale          float64
	MaxScale          float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		LongPressDelay:    500 * time.Millisecond,
		MoveTolerance:     10,
		DoubleTapWindow:   300 * time.Millisecond,
		DoubleTapDistance: 50,
		SwipeMaxDuration:  300 * time.Millisecond,
		SwipeMinDistance:  50,
		MinScale:          1,
		MaxScale:          3,
	}
}
