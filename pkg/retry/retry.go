// Package retry provides exponential backoff calculation for reconnection loops
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

var (
	// Thread-safe random source for jitter
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Config provides backoff configuration
type Config struct {
	InitialDelay time.Duration // Delay after the first failed attempt
	MaxDelay     time.Duration // Upper bound for any delay
	Multiplier   float64       // Backoff multiplier (typically 2.0)
	AddJitter    bool          // Add up to 25% randomness on top of the computed delay
}

// DefaultConfig returns the reconnection backoff used by the sink: 5s doubling to 60s.
func DefaultConfig() Config {
	return Config{
		InitialDelay: 5 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		AddJitter:    false,
	}
}

// Validate checks the configuration for impossible values
func (c Config) Validate() error {
	if c.InitialDelay <= 0 {
		return fmt.Errorf("retry: InitialDelay must be positive, got %v", c.InitialDelay)
	}
	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("retry: MaxDelay (%v) must be >= InitialDelay (%v)", c.MaxDelay, c.InitialDelay)
	}
	if c.Multiplier < 1 {
		return fmt.Errorf("retry: Multiplier must be >= 1, got %v", c.Multiplier)
	}
	return nil
}

// Delay returns the delay to wait after the given 1-based failed attempt:
// min(InitialDelay * Multiplier^(attempt-1), MaxDelay), plus jitter when enabled.
func (c Config) Delay(attempt int) time.Duration {
	multiplier := c.Multiplier
	if multiplier == 0 {
		multiplier = 2.0
	}
	// Prevent overflow with extremely large multipliers
	if multiplier > 1000 {
		multiplier = 1000
	}

	delay := backoff(attempt, c.InitialDelay, c.MaxDelay, multiplier)
	if c.AddJitter && delay >= 4 {
		randMu.Lock()
		jitter := time.Duration(randSource.Int63n(int64(delay / 4)))
		randMu.Unlock()
		delay += jitter
	}
	return delay
}

// Exponential returns min(base * 2^(attempt-1), max) for a 1-based attempt.
// Attempts below 1 are treated as the first attempt.
func Exponential(attempt int, base, max time.Duration) time.Duration {
	return backoff(attempt, base, max, 2.0)
}

func backoff(attempt int, base, max time.Duration, multiplier float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		return 0
	}

	delay := float64(base)
	for i := 1; i < attempt; i++ {
		delay *= multiplier
		// Check for overflow or exceeding max
		if max > 0 && delay >= float64(max) {
			return max
		}
		if delay > float64(time.Duration(1<<63-1)) {
			return max
		}
	}

	if max > 0 && time.Duration(delay) > max {
		return max
	}
	return time.Duration(delay)
}

// Wait blocks for d on clk, returning early with the context error if ctx is done.
func Wait(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := clk.Timer(d)
	select {
	case <-ctx.Done():
		timer.Stop() // Stop timer immediately when context cancelled
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
