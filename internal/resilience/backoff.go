package resilience

import (
	"math/rand/v2"
	"time"
)

const maxBackoffShift = 16

// Backoff returns the exponential delay before retry number attempt
// (1-based), spread by ±jitterPct of itself (0.2 means 20%).
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << min(attempt-1, maxBackoffShift)
	if jitterPct <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * float64(d) * jitterPct
	return d + time.Duration(delta)
}
