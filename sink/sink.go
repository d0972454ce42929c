package sink

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/stella-systems/stellanow-sdk-go/auth"
	"github.com/stella-systems/stellanow-sdk-go/errors"
	"github.com/stella-systems/stellanow-sdk-go/message"
	"github.com/stella-systems/stellanow-sdk-go/metric"
	"github.com/stella-systems/stellanow-sdk-go/pkg/retry"
	"github.com/stella-systems/stellanow-sdk-go/signal"
	"github.com/stella-systems/stellanow-sdk-go/transport"
)

// Sink drives one transport through Disconnected, Connecting and Connected.
//
// A monitor goroutine started by Start owns reconnection: whenever the sink is
// not connected it authenticates, connects, and on failure waits
// min(base*2^(attempt-1), max) before the next attempt. Attempts never stop
// until Stop is called.
type Sink struct {
	transport transport.Transport
	strategy  auth.Strategy
	logger    *slog.Logger
	clock     clock.Clock
	metrics   *metric.Metrics

	backoff        retry.Config
	pollInterval   time.Duration
	connectTimeout time.Duration

	state      atomic.Int32
	generation atomic.Uint64 // bumped on every successful connect
	attempts   atomic.Int32
	errorCount atomic.Int64
	lastError  atomic.Value // stores error
	startedAt  atomic.Value // stores time.Time

	onConnected    *signal.Signal[struct{}]
	onDisconnected *signal.Signal[struct{}]
	onError        *signal.Signal[error]
	onMessageAck   *signal.Signal[string]

	// wake interrupts the connected poll after a connection loss
	wake chan struct{}

	// waitHook observes every backoff wait after its timer is armed
	waitHook func(time.Duration)

	// connMu orders state transitions against teardown
	connMu sync.Mutex

	mu      sync.Mutex // guards running, cancel, done
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Sink publishing through t and authenticating with strategy.
func New(t transport.Transport, strategy auth.Strategy, opts ...Option) (*Sink, error) {
	if t == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Sink", "New", "transport")
	}
	if strategy == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Sink", "New", "auth strategy")
	}

	s := &Sink{
		transport:    t,
		strategy:     strategy,
		logger:       slog.Default().With("component", "sink"),
		clock:        clock.New(),
		backoff:      retry.DefaultConfig(),
		pollInterval: time.Second,
		wake:         make(chan struct{}, 1),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, errors.WrapInvalid(err, "Sink", "New", "apply option")
		}
	}

	s.onConnected = signal.New[struct{}](s.logger)
	s.onDisconnected = signal.New[struct{}](s.logger)
	s.onError = signal.New[error](s.logger)
	s.onMessageAck = signal.New[string](s.logger)

	s.setState(StateDisconnected)
	return s, nil
}

// OnConnected fires each time a connection is established.
func (s *Sink) OnConnected() *signal.Signal[struct{}] { return s.onConnected }

// OnDisconnected fires when an established connection ends.
func (s *Sink) OnDisconnected() *signal.Signal[struct{}] { return s.onDisconnected }

// OnError fires for every failed attempt, publish failure and connection loss.
func (s *Sink) OnError() *signal.Signal[error] { return s.onError }

// OnMessageAck fires with the message id of every publish the broker confirmed.
func (s *Sink) OnMessageAck() *signal.Signal[string] { return s.onMessageAck }

// State returns the current connection state
func (s *Sink) State() State {
	return State(s.state.Load())
}

// IsConnected reports whether events can be published
func (s *Sink) IsConnected() bool {
	return s.State() == StateConnected
}

// Attempts returns the number of consecutive failed or in-progress connection
// attempts. It resets to zero on a successful connection.
func (s *Sink) Attempts() int {
	return int(s.attempts.Load())
}

// ErrorCount returns the number of errors reported through OnError
func (s *Sink) ErrorCount() int64 {
	return s.errorCount.Load()
}

// LastError returns the most recent error reported through OnError, or nil
func (s *Sink) LastError() error {
	if v, ok := s.lastError.Load().(errorBox); ok {
		return v.err
	}
	return nil
}

// Uptime returns the time since Start, or zero when not running
func (s *Sink) Uptime() time.Duration {
	t, ok := s.startedAt.Load().(time.Time)
	if !ok || t.IsZero() {
		return 0
	}
	return s.clock.Since(t)
}

// errorBox gives atomic.Value a single concrete type to store
type errorBox struct{ err error }

func (s *Sink) setState(st State) {
	s.state.Store(int32(st))
	s.metrics.RecordConnectionState(st.metricValue())
}

func (s *Sink) reportError(err error) {
	s.errorCount.Add(1)
	s.lastError.Store(errorBox{err: err})
	s.onError.Trigger(err)
}

// Start opens the transport and launches the monitor. It returns immediately;
// the first connection attempt happens on the monitor goroutine.
func (s *Sink) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Sink", "Start", "check state")
	}

	if err := s.transport.Open(transport.Handlers{
		OnConnect:        s.handleConnect,
		OnConnectionLost: s.handleConnectionLost,
	}); err != nil {
		return errors.WrapFatal(err, "Sink", "Start", "open transport")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	s.attempts.Store(0)
	s.startedAt.Store(s.clock.Now())
	s.setState(StateDisconnected)

	go s.monitor(ctx, s.done)

	s.logger.Info("sink started")
	return nil
}

// Stop ends the monitor, waits for it to exit (bounded by ctx) and closes the
// transport. OnDisconnected fires if the sink was connected. A stopped sink can
// be started again.
func (s *Sink) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return errors.WrapInvalid(errors.ErrNotStarted, "Sink", "Stop", "check state")
	}
	s.running = false
	s.cancel()

	var waitErr error
	select {
	case <-s.done:
	case <-ctx.Done():
		waitErr = errors.WrapTransient(ctx.Err(), "Sink", "Stop", "wait for monitor")
	}

	s.connMu.Lock()
	wasConnected := State(s.state.Swap(int32(StateStopped))) == StateConnected
	s.connMu.Unlock()
	s.metrics.RecordConnectionState(StateStopped.metricValue())
	s.startedAt.Store(time.Time{})

	if err := s.transport.Close(); err != nil {
		s.logger.Warn("closing transport failed", "error", err)
	}
	if wasConnected {
		s.onDisconnected.Trigger(struct{}{})
	}

	s.logger.Info("sink stopped")
	return waitErr
}

// Publish sends ev and waits for the broker's confirmation. It fails fast with
// ErrNotConnected when the sink is not connected. On a transport failure the
// connection is torn down so the monitor reconnects; the caller keeps
// ownership of ev.
func (s *Sink) Publish(ctx context.Context, ev *message.Event) error {
	if !s.IsConnected() {
		return errors.WrapTransient(errors.ErrNotConnected, "Sink", "Publish", "check connection")
	}
	gen := s.generation.Load()

	payload, err := ev.Envelope()
	if err != nil {
		return errors.WrapInvalid(err, "Sink", "Publish", "encode envelope")
	}

	start := s.clock.Now()
	err = s.transport.Publish(ctx, transport.Publication{
		Topic:     ev.Topic(),
		MessageID: ev.MessageID(),
		Payload:   payload,
	})
	s.metrics.RecordPublish(s.clock.Since(start), err)

	if err != nil {
		// Cancellation from a stopping caller says nothing about the connection
		if ctx.Err() == nil {
			s.logger.Warn("publish failed, dropping connection", "message_id", ev.MessageID(), "error", err)
			s.disconnect(gen, err, true)
		}
		return errors.WrapTransient(err, "Sink", "Publish", "publish event")
	}

	s.onMessageAck.Trigger(ev.MessageID())
	return nil
}

// disconnect moves a connected sink to Disconnected exactly once per
// connection. gen names the connection the failure was observed on; a failure
// from an earlier connection is ignored.
func (s *Sink) disconnect(gen uint64, cause error, closeTransport bool) {
	s.connMu.Lock()
	stale := gen != s.generation.Load()
	swapped := !stale && s.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected))
	s.connMu.Unlock()

	if stale {
		s.logger.Debug("ignoring failure from a previous connection", "error", cause)
	}
	if !swapped {
		return
	}
	s.metrics.RecordConnectionState(StateDisconnected.metricValue())

	if closeTransport {
		if err := s.transport.Close(); err != nil {
			s.logger.Warn("closing transport failed", "error", err)
		}
	}

	s.onDisconnected.Trigger(struct{}{})
	s.reportError(cause)

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Sink) handleConnect() {
	s.logger.Debug("transport reported connect")
}

func (s *Sink) handleConnectionLost(err error) {
	if err == nil {
		err = errors.ErrConnectionLost
	}
	s.logger.Warn("connection lost", "error", err)
	s.disconnect(s.generation.Load(), errors.WrapTransient(err, "Sink", "monitor", "keep connection"), false)
}

// monitor keeps the sink connected until ctx is cancelled.
func (s *Sink) monitor(ctx context.Context, done chan struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		if s.IsConnected() {
			if !s.transport.IsConnected() {
				s.disconnect(s.generation.Load(),
					errors.WrapTransient(errors.ErrConnectionLost, "Sink", "monitor", "poll transport"), true)
				continue
			}
			s.pause(ctx)
			continue
		}

		attempt := int(s.attempts.Add(1))
		if !s.transition(ctx, StateConnecting) {
			return
		}
		s.metrics.RecordConnectAttempt()
		s.logger.Info("connecting", "attempt", attempt)

		err := s.connect(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			if !s.transition(ctx, StateConnected) {
				return
			}
			s.attempts.Store(0)
			s.logger.Info("connected", "attempt", attempt)
			s.onConnected.Trigger(struct{}{})
			continue
		}

		if !s.transition(ctx, StateDisconnected) {
			return
		}
		delay := s.backoff.Delay(attempt)
		s.logger.Warn("connection attempt failed", "attempt", attempt, "delay", delay, "error", err)
		s.reportError(err)

		if !s.sleep(ctx, delay) {
			return
		}
	}
}

// transition records a monitor state change unless ctx has ended, so a
// monitor outliving Stop cannot overwrite StateStopped.
func (s *Sink) transition(ctx context.Context, st State) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	if st == StateConnected {
		s.generation.Add(1)
	}
	s.setState(st)
	return true
}

// connect authenticates and dials one time.
func (s *Sink) connect(ctx context.Context) error {
	if s.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.connectTimeout)
		defer cancel()
	}

	if err := s.strategy.Auth(ctx, s.transport); err != nil {
		return errors.WrapTransient(err, "Sink", "connect", "authenticate")
	}
	if err := s.transport.Connect(ctx); err != nil {
		return errors.WrapTransient(err, "Sink", "connect", "connect transport")
	}
	return nil
}

// sleep waits d on the sink clock. Returns false if ctx ended first.
func (s *Sink) sleep(ctx context.Context, d time.Duration) bool {
	timer := s.clock.Timer(d)
	defer timer.Stop()

	if s.waitHook != nil {
		s.waitHook(d)
	}

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// pause waits one poll interval, or less if the connection drops.
func (s *Sink) pause(ctx context.Context) {
	timer := s.clock.Timer(s.pollInterval)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-s.wake:
	case <-ctx.Done():
	}
}
