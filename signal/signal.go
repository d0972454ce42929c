// Package signal provides a minimal observer-list primitive used to publish lifecycle
// and acknowledgment notifications to subscribers.
package signal

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Listener receives the value passed to Trigger.
type Listener[T any] func(T)

// Subscription identifies a registered listener.
type Subscription struct {
	id     uint64
	cancel func(uint64)
}

// Unsubscribe removes the listener. Calling it more than once is a no-op.
func (s Subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel(s.id)
	}
}

type entry[T any] struct {
	id uint64
	fn Listener[T]
}

// Signal is a list of listeners notified in subscription order.
// The zero value is ready to use and safe for concurrent use.
type Signal[T any] struct {
	mu        sync.RWMutex
	listeners []entry[T]
	nextID    uint64
	logger    *slog.Logger
}

// New creates a Signal that logs recovered listener panics to logger.
func New[T any](logger *slog.Logger) *Signal[T] {
	return &Signal[T]{logger: logger}
}

// Subscribe registers fn and returns a handle for removing it.
func (s *Signal[T]) Subscribe(fn Listener[T]) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, entry[T]{id: id, fn: fn})

	return Subscription{id: id, cancel: s.remove}
}

// Unsubscribe removes the listener identified by sub.
func (s *Signal[T]) Unsubscribe(sub Subscription) {
	s.remove(sub.id)
}

func (s *Signal[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range s.listeners {
		if l.id == id {
			// Copy so a concurrent Trigger iterating the old slice is unaffected
			next := make([]entry[T], 0, len(s.listeners)-1)
			next = append(next, s.listeners[:i]...)
			s.listeners = append(next, s.listeners[i+1:]...)
			return
		}
	}
}

// Trigger calls every listener with v, synchronously and in subscription order.
// A panicking listener is recovered and the remaining listeners still run.
// It returns the number of listeners that panicked.
func (s *Signal[T]) Trigger(v T) int {
	s.mu.RLock()
	snapshot := s.listeners
	s.mu.RUnlock()

	failed := 0
	for _, l := range snapshot {
		if err := s.invoke(l, v); err != nil {
			failed++
			if s.logger != nil {
				s.logger.Error("Signal listener panicked", "listener", l.id, "error", err)
			}
		}
	}
	return failed
}

func (s *Signal[T]) invoke(l entry[T], v T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	l.fn(v)
	return nil
}

// Len returns the number of registered listeners.
func (s *Signal[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

// Clear removes every listener.
func (s *Signal[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = nil
}
