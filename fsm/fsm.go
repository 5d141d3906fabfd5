// Package fsm implements a finite state machine with validated transitions
// and an ordered, sequential hook protocol.
//
// A transition from prev to target invokes, strictly one after another:
//
//  1. AfterLeave(prev) hooks
//  2. BeforeLeave(target) hooks
//  3. OnEnter(target) hooks
//  4. Wildcard hooks
//
// Each hook returns before the next starts. The machine commits the new
// current state at a fixed position of that sequence (see CommitPoint), and
// the first failing hook aborts the rest of the pipeline.
//
// Transitions are not serialized: issuing a second transition while the first
// is still running hooks is a caller error.
package fsm

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// CommitPoint names the pipeline position where Current switches to the target.
type CommitPoint int

const (
	// CommitBeforeWildcard commits after every AfterLeave, BeforeLeave and
	// OnEnter hook ran and before the first Wildcard hook. Wildcard hooks
	// observe the new state; the others observe the previous one.
	CommitBeforeWildcard CommitPoint = iota

	// CommitBeforeOnEnter commits after AfterLeave and BeforeLeave hooks and
	// before the first OnEnter hook, so OnEnter hooks already observe the
	// target as current.
	CommitBeforeOnEnter
)

func (p CommitPoint) String() string {
	if p == CommitBeforeOnEnter {
		return "before-on-enter"
	}
	return "before-wildcard"
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger used for transition diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = l
	}
}

// WithCommitPoint selects where in the hook pipeline the state is committed.
//
// Default: CommitBeforeWildcard.
func WithCommitPoint(p CommitPoint) Option {
	return func(m *Machine) {
		m.commit = p
	}
}

type Machine struct {
	transitions map[State][]State
	initial     State
	commit      CommitPoint
	logger      *slog.Logger

	statusMu sync.RWMutex
	current  State

	hooksMu sync.Mutex
	hooks   []registration
	nextID  HookID
}

// New validates cfg and creates a machine in cfg.Initial.
// The table is copied; later changes to cfg do not affect the machine.
func New(cfg Config, opts ...Option) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Machine{
		transitions: cfg.clone(),
		initial:     cfg.Initial,
		current:     cfg.Initial,
		commit:      CommitBeforeWildcard,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, s := range cfg.DeadEnds() {
		m.logger.Warn("fsm: dead-end state has no outgoing transitions", "state", s)
	}

	return m, nil
}

// Current returns the committed current state.
func (m *Machine) Current() State {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return m.current
}

// Initial returns the state the machine was created in.
func (m *Machine) Initial() State {
	return m.initial
}

// Next returns the states reachable from the current state, in table order.
func (m *Machine) Next() []State {
	return slices.Clone(m.transitions[m.Current()])
}

// Can reports whether target is listed for the current state.
func (m *Machine) Can(target State) bool {
	return slices.Contains(m.transitions[m.Current()], target)
}

// On registers hook under key. Hooks in a bucket run in registration order.
func (m *Machine) On(key HookKey, hook Hook) HookID {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()

	m.nextID++
	m.hooks = append(m.hooks, registration{id: m.nextID, key: key, hook: hook})
	return m.nextID
}

// Off removes a registration. It reports whether id was registered.
// A transition already in flight keeps the hooks it started with.
func (m *Machine) Off(id HookID) bool {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()

	i := slices.IndexFunc(m.hooks, func(r registration) bool { return r.id == id })
	if i < 0 {
		return false
	}
	m.hooks = slices.Delete(m.hooks, i, i+1)
	return true
}

func (m *Machine) hooksFor(key HookKey) []registration {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()

	var out []registration
	for _, r := range m.hooks {
		if r.key == key && r.hook != nil {
			out = append(out, r)
		}
	}
	return out
}

// Transition moves the machine to target, running the hook pipeline.
// An empty target selects the first state listed for the current state.
//
// It returns an *IllegalTransitionError without running anything when the
// target is not allowed, or a *HookError for the first hook that failed.
// ctx is handed to every hook; the pipeline does not abort on cancellation.
func (m *Machine) Transition(ctx context.Context, target State, params ...any) error {
	prev := m.Current()
	allowed := m.transitions[prev]

	if target == "" && len(allowed) > 0 {
		target = allowed[0]
	}

	if !slices.Contains(allowed, target) {
		m.logger.Warn("fsm: illegal transition", "from", prev, "to", target)
		return &IllegalTransitionError{Prev: prev, Attempt: target}
	}

	after := m.hooksFor(AfterLeave(prev))
	before := m.hooksFor(BeforeLeave(target))
	on := m.hooksFor(OnEnter(target))
	post := m.hooksFor(Wildcard())

	steps := make([]registration, 0, len(after)+len(before)+len(on)+len(post)+1)
	steps = append(steps, after...)
	steps = append(steps, before...)
	steps = append(steps, on...)
	steps = append(steps, post...)
	// sentinel: the commit happens even when no wildcard hook is registered
	steps = append(steps, registration{key: Wildcard(), hook: ensureStateChange})

	commitAt := len(after) + len(before) + len(on)
	if m.commit == CommitBeforeOnEnter {
		commitAt = len(after) + len(before)
	}

	m.logger.Debug("fsm: transition started", "from", prev, "to", target, "hooks", len(steps)-1)

	for i, step := range steps {
		if i == commitAt {
			m.setCurrent(target)
			m.logger.Debug("fsm: state committed", "from", prev, "to", target)
		}

		ev := HookEvent{Key: step.key, Prev: prev, Target: target, Params: params}
		if err := step.hook(ctx, ev); err != nil {
			m.logger.Debug("fsm: hook failed", "hook", step.key.String(), "from", prev, "to", target, "error", err)
			return &HookError{
				Key:       step.key,
				Prev:      prev,
				Target:    target,
				Committed: i >= commitAt,
				Err:       err,
			}
		}
	}

	return nil
}

// Advance transitions to the first state listed for the current state.
func (m *Machine) Advance(ctx context.Context, params ...any) error {
	return m.Transition(ctx, "", params...)
}

// Go starts Transition on a new goroutine and returns a channel that
// receives its result exactly once.
func (m *Machine) Go(ctx context.Context, target State, params ...any) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- m.Transition(ctx, target, params...)
	}()
	return done
}

func (m *Machine) setCurrent(s State) {
	m.statusMu.Lock()
	m.current = s
	m.statusMu.Unlock()
}

func ensureStateChange(context.Context, HookEvent) error { return nil }
