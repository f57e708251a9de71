package resilience

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes the wait before retry number attempt (1-based).
type Backoff interface {
	Delay(attempt int) time.Duration
}

// BackoffFunc adapts a function to Backoff.
type BackoffFunc func(attempt int) time.Duration

// Delay implements Backoff.
func (f BackoffFunc) Delay(attempt int) time.Duration { return f(attempt) }

// Linear waits Interval + attempt*Step. Interval 1s and Step 500ms give
// 1.5s, 2s, 2.5s for the first three retries.
type Linear struct {
	Interval time.Duration
	Step     time.Duration
}

// Delay implements Backoff.
func (l Linear) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return l.Interval + time.Duration(attempt)*l.Step
}

// Exponential waits Initial * Factor^(attempt-1), capped at Max, with
// +/- Jitter applied as a fraction of the delay.
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	Jitter  float64
}

// Delay implements Backoff.
func (e Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(e.Initial) * math.Pow(e.Factor, float64(attempt-1))

	if e.Jitter > 0 {
		spread := d * e.Jitter
		d += (rand.Float64()*2 - 1) * spread
	}
	if e.Max > 0 && d > float64(e.Max) {
		d = float64(e.Max)
	}
	if d < 0 {
		d = float64(e.Initial)
	}
	return time.Duration(d)
}
