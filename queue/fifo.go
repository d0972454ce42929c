package queue

import (
	"cmp"
	"container/list"
	"log/slog"
	"slices"
	"sync"

	"github.com/stella-systems/stellanow-sdk-go/message"
	"github.com/stella-systems/stellanow-sdk-go/metric"
)

// Option configures a FIFO
type Option func(*FIFO)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(q *FIFO) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithMetrics exports queue length, in-flight count and enqueue/ack/requeue
// counters to the registry. A nil registry is ignored.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(q *FIFO) {
		q.metrics = registry.CoreMetrics()
	}
}

type inFlightEntry struct {
	ev  *message.Event
	seq uint64
}

// FIFO is the in-memory Queue: a linked list of pending events and a map of
// in-flight events, both guarded by one mutex.
type FIFO struct {
	mu       sync.Mutex
	pending  *list.List // of *message.Event
	inFlight map[string]inFlightEntry
	seq      uint64 // dequeue order, used by ReEnqueueAll

	logger  *slog.Logger
	metrics *metric.Metrics
}

var _ Queue = (*FIFO)(nil)

// NewFIFO creates an empty queue.
func NewFIFO(opts ...Option) *FIFO {
	q := &FIFO{
		pending:  list.New(),
		inFlight: make(map[string]inFlightEntry),
		logger:   slog.Default().With("component", "queue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends ev to the tail.
func (q *FIFO) Enqueue(ev *message.Event) {
	if ev == nil {
		return
	}

	q.mu.Lock()
	q.pending.PushBack(ev)
	q.record()
	q.mu.Unlock()

	q.metrics.RecordEnqueued()
}

// TryDequeue removes the head and records it as in flight.
func (q *FIFO) TryDequeue() (*message.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := q.pending.Front()
	if front == nil {
		return nil, false
	}

	ev := q.pending.Remove(front).(*message.Event)
	q.seq++
	q.inFlight[ev.MessageID()] = inFlightEntry{ev: ev, seq: q.seq}
	q.record()

	return ev, true
}

// MarkAck forgets an in-flight event.
func (q *FIFO) MarkAck(messageID string) {
	q.mu.Lock()
	_, ok := q.inFlight[messageID]
	if ok {
		delete(q.inFlight, messageID)
		q.record()
	}
	q.mu.Unlock()

	if ok {
		q.metrics.RecordAcked()
	} else {
		q.logger.Debug("ack for unknown message ignored", "message_id", messageID)
	}
}

// ReEnqueueAll moves every in-flight event to the tail in the order it was dequeued.
func (q *FIFO) ReEnqueueAll() int {
	q.mu.Lock()

	n := len(q.inFlight)
	if n == 0 {
		q.mu.Unlock()
		return 0
	}

	entries := make([]inFlightEntry, 0, n)
	for _, e := range q.inFlight {
		entries = append(entries, e)
	}
	sortBySeq(entries)

	for _, e := range entries {
		q.pending.PushBack(e.ev)
	}
	q.inFlight = make(map[string]inFlightEntry)
	q.record()
	q.mu.Unlock()

	q.metrics.RecordRequeued(n)
	q.logger.Info("re-enqueued in-flight events", "count", n)
	return n
}

// Requeue moves one in-flight event back to the tail.
func (q *FIFO) Requeue(messageID string) bool {
	q.mu.Lock()
	e, ok := q.inFlight[messageID]
	if ok {
		delete(q.inFlight, messageID)
		q.pending.PushBack(e.ev)
		q.record()
	}
	q.mu.Unlock()

	if ok {
		q.metrics.RecordRequeued(1)
	}
	return ok
}

// IsEmpty reports whether nothing is pending.
func (q *FIFO) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of pending events.
func (q *FIFO) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// NumberInFlight returns the number of in-flight events.
func (q *FIFO) NumberInFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inFlight)
}

// Contains reports whether messageID is pending.
func (q *FIFO) Contains(messageID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for e := q.pending.Front(); e != nil; e = e.Next() {
		if e.Value.(*message.Event).MessageID() == messageID {
			return true
		}
	}
	return false
}

// IsInFlight reports whether messageID is awaiting acknowledgement.
func (q *FIFO) IsInFlight(messageID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, ok := q.inFlight[messageID]
	return ok
}

// record publishes the sizes. Caller holds mu.
func (q *FIFO) record() {
	q.metrics.RecordQueueSize(q.pending.Len(), len(q.inFlight))
}

func sortBySeq(entries []inFlightEntry) {
	slices.SortFunc(entries, func(a, b inFlightEntry) int {
		return cmp.Compare(a.seq, b.seq)
	})
}
