package dbretry

import "time"

// SetFastBackOff shrinks the retry intervals for the duration of a test.
func SetFastBackOff() func() {
	prevInitial, prevMax := initialInterval, maxInterval
	initialInterval, maxInterval = time.Millisecond, 2*time.Millisecond

	return func() {
		initialInterval, maxInterval = prevInitial, prevMax
	}
}
