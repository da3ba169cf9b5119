package backoff

import "time"

// Calculator wraps a Strategy behind a stable façade so callers do not
// depend on the concrete strategy type.
type Calculator struct {
	strategy Strategy
}

// NewCalculator creates a Calculator using the given strategy.
func NewCalculator(strategy Strategy) *Calculator {
	return &Calculator{strategy: strategy}
}

// Delay computes the delay before retrying after failed attempt n.
func (c *Calculator) Delay(attempt int, base time.Duration) time.Duration {
	return c.strategy.Delay(attempt, base)
}
