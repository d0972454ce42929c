// Package transporttest provides an in-memory Transport for tests.
package transporttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/stella-systems/stellanow-sdk-go/errors"
	"github.com/stella-systems/stellanow-sdk-go/transport"
)

// Fake is a scriptable transport.Transport. Connect and Publish consult
// queued errors first; with nothing queued they succeed.
type Fake struct {
	mu          sync.Mutex
	connected   bool
	opened      bool
	handlers    transport.Handlers
	credentials []transport.Credentials

	connectErrs []error
	publishErrs []error
	publishHook func(transport.Publication) error

	connects  int
	closes    int
	published []transport.Publication
	attempts  []transport.Publication
}

var _ transport.Transport = (*Fake)(nil)

// NewFake creates a disconnected Fake.
func NewFake() *Fake {
	return &Fake{}
}

// FailConnect queues errors returned by the next Connect calls, in order.
func (f *Fake) FailConnect(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErrs = append(f.connectErrs, errs...)
}

// FailPublish queues errors returned by the next Publish calls, in order.
func (f *Fake) FailPublish(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishErrs = append(f.publishErrs, errs...)
}

// OnPublish installs a hook consulted after queued errors. A non-nil return
// fails the publish.
func (f *Fake) OnPublish(hook func(transport.Publication) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishHook = hook
}

// IsConnected implements transport.Authenticatable.
func (f *Fake) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// SetCredentials implements transport.Authenticatable.
func (f *Fake) SetCredentials(c transport.Credentials) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credentials = append(f.credentials, c)
}

// Open implements transport.Transport.
func (f *Fake) Open(h transport.Handlers) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = h
	f.opened = true
	return nil
}

// Connect implements transport.Transport.
func (f *Fake) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.connects++
	if !f.opened {
		f.mu.Unlock()
		return fmt.Errorf("transporttest: connect before open")
	}
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		f.mu.Unlock()
		return err
	}
	f.connected = true
	onConnect := f.handlers.OnConnect
	f.mu.Unlock()

	if onConnect != nil {
		onConnect()
	}
	return nil
}

// Publish implements transport.Transport.
func (f *Fake) Publish(ctx context.Context, pub transport.Publication) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.attempts = append(f.attempts, pub)
	if !f.connected {
		f.mu.Unlock()
		return errors.ErrNotConnected
	}
	if len(f.publishErrs) > 0 {
		err := f.publishErrs[0]
		f.publishErrs = f.publishErrs[1:]
		f.mu.Unlock()
		return err
	}
	hook := f.publishHook
	f.mu.Unlock()

	if hook != nil {
		if err := hook(pub); err != nil {
			return err
		}
	}

	f.mu.Lock()
	f.published = append(f.published, pub)
	f.mu.Unlock()
	return nil
}

// Close implements transport.Transport.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	f.connected = false
	return nil
}

// DropConnection simulates the broker going away: the transport is marked
// disconnected and OnConnectionLost fires with err.
func (f *Fake) DropConnection(err error) {
	f.mu.Lock()
	f.connected = false
	lost := f.handlers.OnConnectionLost
	f.mu.Unlock()

	if lost != nil {
		lost(err)
	}
}

// Published returns the successful publications in order.
func (f *Fake) Published() []transport.Publication {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transport.Publication, len(f.published))
	copy(out, f.published)
	return out
}

// PublishAttempts returns every publication attempted, successful or not.
func (f *Fake) PublishAttempts() []transport.Publication {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transport.Publication, len(f.attempts))
	copy(out, f.attempts)
	return out
}

// Credentials returns every credential set applied, in order.
func (f *Fake) Credentials() []transport.Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transport.Credentials, len(f.credentials))
	copy(out, f.credentials)
	return out
}

// Connects returns the number of Connect calls.
func (f *Fake) Connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

// Closes returns the number of Close calls.
func (f *Fake) Closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}
