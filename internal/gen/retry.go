package gen

import (
	"fmt"
	"time"
)

// Policy is a data-driven retry policy: bounded attempts with exponential
// delay clamped to [Base, Cap]. The zero value is unusable; build one with
// the config values or DefaultPolicy.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration

	// Sleep is swapped out in tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Base: 2 * time.Second, Cap: 8 * time.Second}
}

// Delay is the wait before attempt n+1 (n is 1-based). Non-decreasing in n
// and never above Cap.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.Base << (attempt - 1)
	if d > p.Cap || d < p.Base { // the shift can overflow for absurd attempts
		d = p.Cap
	}
	return d
}

// Do runs op up to MaxAttempts times. onRetry is invoked before each sleep
// with the 1-based attempt number and its error. Errors are not discriminated
// by type; any failure is retried until the budget runs out.
func (p Policy) Do(op func() error, onRetry func(attempt int, err error)) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		sleep(p.Delay(attempt))
	}
	return fmt.Errorf("all %d attempts failed: %w", p.MaxAttempts, err)
}
