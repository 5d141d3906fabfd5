package runtime

import (
	"slices"
	"sync"
)

// Signal is an observable value cell with a subscriber list.
// The list keeps registration order and holds each computation at most once.
type Signal struct {
	mu sync.Mutex

	value any
	subs  []*Computation
}

func NewSignal(initial any) *Signal {
	return &Signal{value: initial}
}

// Read returns the current value, subscribing the active computation if any.
func (s *Signal) Read() any {
	if c := Get().Active(); c != nil {
		s.subscribe(c)
	}

	return s.Peek()
}

// Peek returns the current value without subscribing anything.
func (s *Signal) Peek() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.value
}

// Write stores v and synchronously executes every subscriber registered at
// the time of the write. There is no equality check: writing the same value
// notifies again.
func (s *Signal) Write(v any) {
	s.mu.Lock()
	s.value = v
	// cloned so re-entrant runs can resubscribe while we iterate
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	Get().Notify(subs)
}

// Subscribers returns a copy of the current subscriber list.
func (s *Signal) Subscribers() []*Computation {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.subs)
}

func (s *Signal) subscribe(c *Computation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// a computation disposed mid-run keeps reading but must not resubscribe
	if c.disposed || slices.Contains(s.subs, c) {
		return
	}

	s.subs = append(s.subs, c)
	c.addSource(s)
}

func (s *Signal) unsubscribe(c *Computation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := slices.Index(s.subs, c); i >= 0 {
		s.subs = slices.Delete(s.subs, i, i+1)
	}
}
