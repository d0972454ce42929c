// Package retry provides exponential backoff calculation for reconnection loops.
//
// # Overview
//
// The connection sink retries forever: there is no attempt cutoff, only a bounded delay
// between attempts. This package computes that delay and waits for it on an injectable
// clock so the schedule can be driven deterministically in tests.
//
// # Core Functions
//
//   - Exponential: min(base * 2^(attempt-1), max) for a 1-based attempt
//   - Config.Delay: the same with a configurable multiplier and optional jitter
//   - Wait: sleep on a clock.Clock, interruptible through context cancellation
//
// # Usage Examples
//
// The sink's default schedule (5s, 10s, 20s, 40s, 60s, 60s, ...):
//
//	cfg := retry.DefaultConfig()
//	delay := cfg.Delay(attempt)
//	if err := retry.Wait(ctx, clk, delay); err != nil {
//	    return // stopped
//	}
//
// Tests advance a mock clock instead of sleeping:
//
//	mock := clock.NewMock()
//	go func() { _ = retry.Wait(ctx, mock, 5*time.Second) }()
//	mock.Add(5 * time.Second)
//
// # Thread Safety
//
// All functions are safe for concurrent use. The jitter mechanism uses a thread-safe
// random source to avoid contention.
package retry
