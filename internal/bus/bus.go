// Package bus maps named events onto action functions.
//
// Events are queued and executed one at a time, in the order they were
// sent, by a single worker goroutine. After an action succeeds the bus
// listener is told which event ran.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrUnknownAction = errors.New("bus: no matching action for event")
	ErrNotStarted    = errors.New("bus: not started")
	ErrStopped       = errors.New("bus: stopped")
)

// Action handles the props of one event.
type Action func(ctx context.Context, props any) error

// Listener is told about every event whose action succeeded.
type Listener func(name string, props any)

type Option func(*Bus)

func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = l
	}
}

// WithBuffer sets how many events may be queued before senders block.
func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buf = n
		}
	}
}

// WithWorkerExit registers fn to run on the worker goroutine right before
// it exits.
func WithWorkerExit(fn func()) Option {
	return func(b *Bus) {
		b.onExit = fn
	}
}

type event struct {
	ctx   context.Context
	name  string
	props any
	done  chan error
}

type Bus struct {
	id       uuid.UUID
	actions  map[string]Action
	listener Listener
	logger   *slog.Logger
	buf      int
	onExit   func()

	events chan event
	done   chan struct{}
	wg     sync.WaitGroup

	statusMu sync.RWMutex
	started  bool
	stopped  bool
}

// New returns a bus for actions. listener may be nil.
func New(actions map[string]Action, listener Listener, opts ...Option) *Bus {
	b := &Bus{
		id:       uuid.New(),
		actions:  make(map[string]Action, len(actions)),
		listener: listener,
		logger:   slog.Default(),
		buf:      64,
		done:     make(chan struct{}),
	}
	for name, a := range actions {
		b.actions[name] = a
	}
	for _, opt := range opts {
		opt(b)
	}
	b.events = make(chan event, b.buf)
	return b
}

// ID identifies this bus's event stream.
func (b *Bus) ID() string {
	return b.id.String()
}

func (b *Bus) Start() error {
	b.statusMu.Lock()
	defer b.statusMu.Unlock()

	if b.stopped {
		return ErrStopped
	}
	if b.started {
		return nil
	}
	b.started = true

	b.wg.Add(1)
	go b.loop()
	return nil
}

// Stop ends the worker once the event in progress finishes. Queued events
// are dropped.
func (b *Bus) Stop() {
	b.statusMu.Lock()
	if !b.started || b.stopped {
		b.stopped = true
		b.statusMu.Unlock()
		return
	}
	b.stopped = true
	close(b.done)
	b.statusMu.Unlock()

	b.wg.Wait()
}

// Emit queues an event and returns without waiting for it.
func (b *Bus) Emit(name string, props any) error {
	if err := b.ready(); err != nil {
		return err
	}

	select {
	case b.events <- event{ctx: context.Background(), name: name, props: props}:
		return nil
	case <-b.done:
		return ErrStopped
	}
}

// Dispatch queues an event and waits for its action to finish.
// It must not be called from inside an action of the same bus.
func (b *Bus) Dispatch(ctx context.Context, name string, props any) error {
	if err := b.ready(); err != nil {
		return err
	}

	done := make(chan error, 1)
	select {
	case b.events <- event{ctx: ctx, name: name, props: props, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return ErrStopped
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return ErrStopped
	}
}

func (b *Bus) ready() error {
	b.statusMu.RLock()
	defer b.statusMu.RUnlock()

	switch {
	case b.stopped:
		return ErrStopped
	case !b.started:
		return ErrNotStarted
	}
	return nil
}

func (b *Bus) loop() {
	defer b.wg.Done()
	if b.onExit != nil {
		defer b.onExit()
	}
	for {
		select {
		case <-b.done:
			return
		case e := <-b.events:
			err := b.handle(e)
			if e.done != nil {
				e.done <- err
			}
		}
	}
}

func (b *Bus) handle(e event) error {
	action, ok := b.actions[e.name]
	if !ok {
		b.logger.Error("bus: no matching action for event", "stream", b.ID(), "event", e.name)
		return fmt.Errorf("%w: %q", ErrUnknownAction, e.name)
	}

	if err := action(e.ctx, e.props); err != nil {
		b.logger.Error("bus: action failed", "stream", b.ID(), "event", e.name, "error", err)
		return fmt.Errorf("action %q: %w", e.name, err)
	}

	if b.listener != nil {
		b.listener(e.name, e.props)
	}
	return nil
}
