package sdk

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/stella-systems/stellanow-sdk-go/message"
)

// pump dispatches queued events every PumpInterval until ctx is cancelled.
func (s *SDK) pump(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := s.clock.Ticker(s.opts.PumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.tick(ctx); n > 0 {
				s.logger.Debug("batch dispatched", "count", n, "queue_length", s.queue.Len())
			}
		}
	}
}

// tick dispatches one batch and waits for every publish in it to finish.
// Returns the number of events dispatched.
func (s *SDK) tick(ctx context.Context) int {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	if !s.sink.IsConnected() {
		return 0
	}

	limit := s.opts.BatchSize
	if limit == 0 {
		limit = s.queue.Len()
	}

	var g errgroup.Group
	g.SetLimit(s.opts.MaxConcurrentPublishes)

	dispatched := 0
	for dispatched < limit && ctx.Err() == nil && s.sink.IsConnected() {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				break
			}
		}

		ev, ok := s.queue.TryDequeue()
		if !ok {
			break
		}
		dispatched++

		g.Go(func() error {
			s.dispatch(ctx, ev)
			return nil
		})
	}

	_ = g.Wait()
	return dispatched
}

// dispatch publishes one in-flight event. A failure puts it back in the queue
// and never affects the rest of the batch.
func (s *SDK) dispatch(ctx context.Context, ev *message.Event) {
	err := s.sink.Publish(ctx, ev)
	if err == nil {
		return
	}

	if s.queue.Requeue(ev.MessageID()) {
		s.logger.Warn("publish failed, event requeued", "message_id", ev.MessageID(), "error", err)
		return
	}
	s.logger.Debug("publish failed for event no longer in flight", "message_id", ev.MessageID(), "error", err)
}
