package sdk

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"

	"github.com/stella-systems/stellanow-sdk-go/errors"
	"github.com/stella-systems/stellanow-sdk-go/message"
	"github.com/stella-systems/stellanow-sdk-go/pkg/retry"
	"github.com/stella-systems/stellanow-sdk-go/queue"
	"github.com/stella-systems/stellanow-sdk-go/signal"
	"github.com/stella-systems/stellanow-sdk-go/sink"
)

// Sink is the connection the SDK publishes through. *sink.Sink implements it.
type Sink interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Publish(ctx context.Context, ev *message.Event) error
	IsConnected() bool
	State() sink.State
	Attempts() int
	ErrorCount() int64
	LastError() error
	Uptime() time.Duration

	OnConnected() *signal.Signal[struct{}]
	OnDisconnected() *signal.Signal[struct{}]
	OnError() *signal.Signal[error]
	OnMessageAck() *signal.Signal[string]
}

var _ Sink = (*sink.Sink)(nil)

// SDK accepts messages, queues them and delivers them through a Sink.
//
// SendMessage only enqueues. A pump goroutine started by Start dispatches
// queued events while the sink is connected; failed publishes return to the
// queue and broker acknowledgments retire in-flight events. Events in flight
// when a connection ends are queued again on the next connection, so delivery
// is at least once.
type SDK struct {
	opts    Options
	sink    Sink
	queue   queue.Queue
	logger  *slog.Logger
	clock   clock.Clock
	limiter *rate.Limiter

	lastAck atomic.Value // stores time.Time

	// tickMu serializes pump ticks with in-flight recovery on connect
	tickMu sync.Mutex

	mu      sync.Mutex // guards running, cancel, done, subs
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	subs    []signal.Subscription
}

// New creates an SDK delivering through s and buffering in q.
func New(opts Options, s Sink, q queue.Queue, options ...Option) (*SDK, error) {
	if opts.OrganizationID == "" {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "SDK", "New", "organization id")
	}
	if opts.ProjectID == "" {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "SDK", "New", "project id")
	}
	if s == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "SDK", "New", "sink")
	}
	if q == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "SDK", "New", "queue")
	}
	if opts.PumpInterval <= 0 {
		opts.PumpInterval = 100 * time.Millisecond
	}
	if opts.BatchSize < 0 {
		opts.BatchSize = 0
	}
	if opts.MaxConcurrentPublishes < 1 {
		opts.MaxConcurrentPublishes = 10
	}

	st := newSettings(options)
	sdk := &SDK{
		opts:    opts,
		sink:    s,
		queue:   q,
		logger:  st.logger.With("component", "sdk"),
		clock:   st.clock,
	}
	if opts.PublishRate > 0 {
		burst := int(opts.PublishRate)
		if burst < 1 {
			burst = 1
		}
		sdk.limiter = rate.NewLimiter(rate.Limit(opts.PublishRate), burst)
	}
	return sdk, nil
}

// OnConnected fires each time the sink connects
func (s *SDK) OnConnected() *signal.Signal[struct{}] { return s.sink.OnConnected() }

// OnDisconnected fires when an established connection ends
func (s *SDK) OnDisconnected() *signal.Signal[struct{}] { return s.sink.OnDisconnected() }

// OnError fires with connection, authentication and publish errors
func (s *SDK) OnError() *signal.Signal[error] { return s.sink.OnError() }

// IsConnected reports whether the sink is connected
func (s *SDK) IsConnected() bool {
	return s.sink.IsConnected()
}

// SendMessage wraps msg, derives its event key and enqueues it, returning the
// assigned message id. A message without entity references or with an invalid
// payload fails with an invalid-class error and nothing is enqueued. Delivery
// happens later on the pump.
func (s *SDK) SendMessage(msg *message.Message) (string, error) {
	if msg == nil {
		return "", errors.WrapInvalid(errors.ErrInvalidPayload, "SDK", "SendMessage", "check message")
	}

	w, err := message.Wrap(msg, message.WithClock(s.clock.Now))
	if err != nil {
		return "", errors.WrapInvalid(err, "SDK", "SendMessage", "wrap message")
	}

	key, err := message.NewEventKey(s.opts.OrganizationID, s.opts.ProjectID, w)
	if err != nil {
		return "", errors.WrapInvalid(err, "SDK", "SendMessage", "derive event key")
	}

	s.queue.Enqueue(message.NewEvent(key, w))
	s.logger.Debug("message queued",
		"message_id", w.MessageID(),
		"event_type", w.EventTypeDefinitionID(),
		"queue_length", s.queue.Len())

	return w.MessageID(), nil
}

// Start wires acknowledgments and connection recovery into the queue, starts
// the sink and launches the pump. It returns without waiting for a connection.
func (s *SDK) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "SDK", "Start", "check state")
	}

	s.subs = []signal.Subscription{
		s.sink.OnMessageAck().Subscribe(s.handleAck),
		s.sink.OnConnected().Subscribe(s.handleConnected),
	}

	if err := s.sink.Start(ctx); err != nil {
		s.unsubscribe()
		return errors.Wrap(err, "SDK", "Start", "start sink")
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.pump(pumpCtx, s.done)

	s.logger.Info("sdk started",
		"organization_id", s.opts.OrganizationID,
		"project_id", s.opts.ProjectID,
		"queued", s.queue.Len())
	return nil
}

// Stop ends the pump, waiting for the current tick, then stops the sink.
// Events still queued stay in the queue; a later Start delivers them.
func (s *SDK) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return errors.WrapInvalid(errors.ErrNotStarted, "SDK", "Stop", "check state")
	}
	s.running = false
	s.cancel()

	var stopErr error
	select {
	case <-s.done:
	case <-ctx.Done():
		stopErr = errors.WrapTransient(ctx.Err(), "SDK", "Stop", "wait for pump")
	}

	if err := s.sink.Stop(ctx); err != nil && stopErr == nil {
		stopErr = errors.Wrap(err, "SDK", "Stop", "stop sink")
	}
	s.unsubscribe()

	s.logger.Info("sdk stopped",
		"queued", s.queue.Len(),
		"in_flight", s.queue.NumberInFlight())
	return stopErr
}

func (s *SDK) unsubscribe() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
}

func (s *SDK) handleAck(messageID string) {
	s.queue.MarkAck(messageID)
	s.lastAck.Store(s.clock.Now())
	s.logger.Debug("message acknowledged", "message_id", messageID)
}

// handleConnected recovers events whose outcome was unknown when the previous
// connection ended.
func (s *SDK) handleConnected(struct{}) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	if n := s.queue.ReEnqueueAll(); n > 0 {
		s.logger.Info("requeued unacknowledged events", "count", n)
	}
}

// Stats is a point-in-time view of delivery
type Stats struct {
	QueueLength int
	InFlight    int
	State       sink.State
	Attempts    int
	ErrorCount  int64
}

// Stats returns current queue and connection figures
func (s *SDK) Stats() Stats {
	return Stats{
		QueueLength: s.queue.Len(),
		InFlight:    s.queue.NumberInFlight(),
		State:       s.sink.State(),
		Attempts:    s.sink.Attempts(),
		ErrorCount:  s.sink.ErrorCount(),
	}
}

// WaitForDrain blocks until nothing is queued or in flight, or ctx ends.
func (s *SDK) WaitForDrain(ctx context.Context) error {
	for {
		if s.queue.IsEmpty() && s.queue.NumberInFlight() == 0 {
			return nil
		}
		if err := retry.Wait(ctx, s.clock, s.opts.PumpInterval); err != nil {
			return errors.WrapTransient(err, "SDK", "WaitForDrain", "wait for queue")
		}
	}
}
