package runtime

import "slices"

// frame is one entry of the execution stack.
type frame struct {
	// owner adopts computations and cleanups created while the frame is on top.
	owner *Computation

	// tracking is false for untracked and owner-only frames.
	tracking bool
}

// Runtime holds the execution stack of a single logical thread.
// Only one computation executes at a time on a given runtime; re-entrant runs
// triggered by writes push on top of the stack and finish before control
// returns to the frame below.
type Runtime struct {
	stack []frame

	// each nested batch increases the depth by 1
	// if depth > 0, notifications are queued until the outermost batch is complete
	batchDepth int
	pending    []*Computation
}

func NewRuntime() *Runtime {
	return &Runtime{}
}

// Active returns the computation that reads should subscribe, if any.
func (r *Runtime) Active() *Computation {
	if len(r.stack) == 0 {
		return nil
	}

	top := r.stack[len(r.stack)-1]
	if !top.tracking {
		return nil
	}

	return top.owner
}

// CurrentOwner returns the owner new computations are attached to.
func (r *Runtime) CurrentOwner() *Computation {
	if len(r.stack) == 0 {
		return nil
	}

	return r.stack[len(r.stack)-1].owner
}

// Depth reports how many frames are currently on the stack.
func (r *Runtime) Depth() int {
	return len(r.stack)
}

func (r *Runtime) push(f frame) {
	r.stack = append(r.stack, f)
}

func (r *Runtime) pop() {
	r.stack = r.stack[:len(r.stack)-1]
}

// RunWithComputation runs fn with c as the tracked, owning computation.
func (r *Runtime) RunWithComputation(c *Computation, fn func()) {
	r.push(frame{owner: c, tracking: true})
	defer r.pop()

	fn()
}

// RunWithOwner runs fn with o as the owner, without dependency tracking.
func (r *Runtime) RunWithOwner(o *Computation, fn func()) {
	r.push(frame{owner: o, tracking: false})
	defer r.pop()

	fn()
}

// RunUntracked runs fn so that reads inside it subscribe nothing.
func (r *Runtime) RunUntracked(fn func()) {
	r.push(frame{owner: r.CurrentOwner(), tracking: false})
	defer r.pop()

	fn()
}

// OnCleanup registers fn on the current owner, if there is one.
func (r *Runtime) OnCleanup(fn func()) {
	if owner := r.CurrentOwner(); owner != nil {
		owner.OnCleanup(fn)
	}
}

func (r *Runtime) IsBatching() bool {
	return r.batchDepth > 0
}

// Batch defers notifications raised inside fn until the outermost batch
// returns, then runs every queued computation once in queue order.
func (r *Runtime) Batch(fn func()) {
	r.batchDepth++
	defer func() {
		r.batchDepth--
		if r.batchDepth == 0 {
			r.flush()
		}
	}()

	fn()
}

func (r *Runtime) flush() {
	for len(r.pending) > 0 {
		queued := r.pending
		r.pending = nil

		for _, c := range queued {
			c.Execute()
		}
	}
}

// Notify executes subs synchronously, or queues them while batching.
func (r *Runtime) Notify(subs []*Computation) {
	if r.IsBatching() {
		for _, c := range subs {
			if !slices.Contains(r.pending, c) {
				r.pending = append(r.pending, c)
			}
		}
		return
	}

	for _, c := range subs {
		c.Execute()
	}
}
