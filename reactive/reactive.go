// Package reactive provides fine-grained signals and effects with automatic
// dependency tracking.
//
// Reads and writes go through explicit accessors: Read subscribes the
// running effect, Write stores the value and synchronously re-runs every
// effect that read the signal during its latest run.
//
//	count := reactive.NewSignal(0)
//	dispose := reactive.NewEffect(func() {
//	    fmt.Println("count is", count.Read())
//	})
//	count.Write(1) // prints "count is 1" before Write returns
//	dispose()
//
// Each goroutine has its own execution stack, so effects created and
// written on one goroutine never observe another goroutine's active effect.
// The engine itself is not meant to be driven from several goroutines at
// once; confine each reactive graph to one goroutine at a time.
package reactive

import (
	"errors"
	"fmt"

	"github.com/autonome/scratchpad/internal/runtime"
)

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}

	return v.(T)
}

// ErrRunFailed is matched by errors returned from TryWrite when an effect panicked.
var ErrRunFailed = errors.New("reactive: effect run failed")

// RunError carries the value an effect panicked with.
type RunError struct {
	Value any
}

func (e *RunError) Error() string {
	return fmt.Sprintf("reactive: effect run failed: %v", e.Value)
}

func (e *RunError) Is(target error) bool {
	return target == ErrRunFailed
}

func (e *RunError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

type Signal[T any] struct {
	signal *runtime.Signal
}

// NewSignal creates a read/write signal holding initial.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{runtime.NewSignal(initial)}
}

// Read the current value of the signal, tracking the dependency if within an effect.
func (s *Signal[T]) Read() T {
	return as[T](s.signal.Read())
}

// Peek reads the current value without tracking.
func (s *Signal[T]) Peek() T {
	return as[T](s.signal.Peek())
}

// Write a new value and synchronously re-run every dependent effect.
// A panicking effect propagates out of Write; effects that already ran in
// this pass keep their side effects.
func (s *Signal[T]) Write(v T) {
	s.signal.Write(v)
}

// TryWrite is Write with effect panics returned as a *RunError.
func (s *Signal[T]) TryWrite(v T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RunError{Value: r}
		}
	}()

	s.signal.Write(v)
	return nil
}

// Update writes fn applied to the current (untracked) value.
func (s *Signal[T]) Update(fn func(T) T) {
	s.Write(fn(s.Peek()))
}

// Subscribers reports how many effects currently depend on the signal.
func (s *Signal[T]) Subscribers() int {
	return len(s.signal.Subscribers())
}

// NewEffect runs fn immediately and again whenever a signal it read during
// its latest run is written. The returned function disposes the effect,
// removing it from every signal it subscribed to.
//
// Effects created while another effect runs are owned by it: they are
// disposed when the outer effect re-runs or is disposed.
//
// If the first run panics, the effect is disposed before the panic
// propagates, so it never re-runs.
func NewEffect(fn func()) (dispose func()) {
	c := runtime.Get().NewComputation(fn)

	defer func() {
		if r := recover(); r != nil {
			c.Dispose()
			panic(r)
		}
	}()
	c.Execute()

	return c.Dispose
}

type Computed[T any] struct {
	value   *Signal[T]
	dispose func()
}

// NewComputed creates a derived value that is recomputed eagerly whenever
// one of the signals fn reads is written.
func NewComputed[T any](fn func() T) *Computed[T] {
	var zero T
	c := &Computed[T]{value: NewSignal(zero)}
	c.dispose = NewEffect(func() {
		c.value.Write(fn())
	})

	return c
}

// Read the current derived value, tracking the dependency if within an effect.
func (c *Computed[T]) Read() T {
	return c.value.Read()
}

// Peek reads the current derived value without tracking.
func (c *Computed[T]) Peek() T {
	return c.value.Peek()
}

// Dispose stops recomputation. The last value stays readable.
func (c *Computed[T]) Dispose() {
	c.dispose()
}

// Batch runs fn and defers notifications until the outermost batch returns.
// Each dependent effect then runs once.
func Batch(fn func()) {
	runtime.Get().Batch(fn)
}

// Untrack runs the given function without tracking any reactive dependencies.
func Untrack[T any](fn func() T) T {
	var result T
	runtime.Get().RunUntracked(func() { result = fn() })
	return result
}

// OnCleanup registers a function to run before the current effect re-runs
// or when its owner is disposed.
func OnCleanup(fn func()) {
	runtime.Get().OnCleanup(fn)
}

// Release drops the calling goroutine's execution stack. Call it when a
// goroutine that ran reactive code is about to exit.
func Release() {
	runtime.Release()
}

type Owner struct {
	owner *runtime.Computation
}

// NewOwner creates a reactive scope.
// Effects created within Run are children of this owner and are disposed
// together with it.
func NewOwner() *Owner {
	return &Owner{runtime.Get().NewComputation(nil)}
}

// Run a function within the context of this owner.
func (o *Owner) Run(fn func()) { o.owner.Run(fn) }

// Dispose this owner and all its children.
func (o *Owner) Dispose() { o.owner.Dispose() }

// OnCleanup adds a function to be called when the owner is disposed.
func (o *Owner) OnCleanup(fn func()) { o.owner.OnCleanup(fn) }
