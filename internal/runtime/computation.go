package runtime

import "slices"

// Computation is a procedure re-run whenever a signal it read during its
// latest run is written. A computation without a procedure is a plain owner
// scope: it never subscribes, but still adopts children and cleanups.
type Computation struct {
	fn func()

	// signals this computation is currently subscribed to
	sources []*Signal

	parent   *Computation
	children []*Computation

	// cleanup functions run before the next execution and on dispose
	cleanups []func()

	running  bool
	disposed bool
}

// NewComputation creates a computation owned by the current owner, if any.
// It does not run fn; callers decide when the first execution happens.
func (r *Runtime) NewComputation(fn func()) *Computation {
	c := &Computation{fn: fn}

	if owner := r.CurrentOwner(); owner != nil && !owner.disposed {
		owner.addChild(c)
	}

	return c
}

// Execute re-runs the procedure under a fresh tracking frame.
// Disposed computations and computations already on the stack are skipped.
func (c *Computation) Execute() {
	if c.fn == nil || c.disposed || c.running {
		return
	}

	c.clean()

	c.running = true
	defer func() { c.running = false }()

	Get().RunWithComputation(c, c.fn)
}

// Run executes fn with c as owner and without tracking.
func (c *Computation) Run(fn func()) {
	Get().RunWithOwner(c, fn)
}

// Dispose unsubscribes c from every signal, disposes its children, runs its
// cleanups and detaches it from its owner. Disposing twice is a no-op.
func (c *Computation) Dispose() {
	if c.disposed {
		return
	}

	c.clean()
	c.disposed = true

	if c.parent != nil {
		c.parent.removeChild(c)
		c.parent = nil
	}
}

func (c *Computation) Disposed() bool {
	return c.disposed
}

// Sources returns the signals c is subscribed to.
func (c *Computation) Sources() []*Signal {
	return slices.Clone(c.sources)
}

func (c *Computation) OnCleanup(fn func()) {
	c.cleanups = append(c.cleanups, fn)
}

func (c *Computation) clean() {
	children := c.children
	c.children = nil
	for _, child := range children {
		child.parent = nil
		child.Dispose()
	}

	cleanups := c.cleanups
	c.cleanups = nil
	for _, fn := range cleanups {
		fn()
	}

	sources := c.sources
	c.sources = nil
	for _, s := range sources {
		s.unsubscribe(c)
	}
}

func (c *Computation) addSource(s *Signal) {
	c.sources = append(c.sources, s)
}

func (c *Computation) addChild(child *Computation) {
	child.parent = c
	c.children = append(c.children, child)
}

func (c *Computation) removeChild(child *Computation) {
	if i := slices.Index(c.children, child); i >= 0 {
		c.children = slices.Delete(c.children, i, i+1)
	}
}
