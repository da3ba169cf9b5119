// Package backoff computes retry delays. The delay for attempt n is
// strictly non-decreasing in n before jitter, and jitter is additive and
// bounded so delays never collapse below the deterministic schedule.
package backoff

import (
	"math/rand"
	"time"
)

// Strategy computes the delay before retrying after failed attempt n
// (0-based).
type Strategy interface {
	Delay(attempt int, base time.Duration) time.Duration
}

// Exponential doubles (or multiplies) the base delay per attempt and adds
// a small random jitter to avoid synchronized retry storms.
type Exponential struct {
	// Multiplier scales the delay per attempt. Values below 1 are treated
	// as 2.
	Multiplier float64
	// MaxJitter bounds the random additive jitter. Zero disables jitter.
	MaxJitter time.Duration
	// MaxDelay caps the deterministic delay. Zero means no cap.
	MaxDelay time.Duration
}

// Delay returns base * multiplier^attempt, capped at MaxDelay, plus up to
// MaxJitter of random jitter.
func (e Exponential) Delay(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Beyond ~30 doublings any realistic base overflows; the cap applies
	// anyway.
	if attempt > 30 {
		attempt = 30
	}
	multiplier := e.Multiplier
	if multiplier < 1 {
		multiplier = 2.0
	}

	delay := time.Duration(float64(base) * Pow(multiplier, attempt))
	if delay < 0 {
		delay = e.MaxDelay
	}
	if e.MaxDelay > 0 && delay > e.MaxDelay {
		delay = e.MaxDelay
	}
	if e.MaxJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(e.MaxJitter)))
	}
	return delay
}

// Pow is an integer-exponent power without pulling in math.Pow's domain
// handling.
func Pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
