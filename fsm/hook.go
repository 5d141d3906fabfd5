package fsm

import (
	"context"
	"fmt"
	"strings"
)

// HookKind selects the bucket a hook is registered in.
type HookKind int

const (
	// HookAfterLeave runs first, after leaving the named state.
	HookAfterLeave HookKind = iota
	// HookBeforeLeave runs before leaving toward the named target.
	HookBeforeLeave
	// HookOnEnter runs on entering the named state.
	HookOnEnter
	// HookWildcard runs on every completed transition.
	HookWildcard
)

func (k HookKind) String() string {
	switch k {
	case HookAfterLeave:
		return "after"
	case HookBeforeLeave:
		return "before"
	case HookOnEnter:
		return "on"
	case HookWildcard:
		return "*"
	}
	return fmt.Sprintf("HookKind(%d)", int(k))
}

// HookKey identifies a hook bucket.
type HookKey struct {
	Kind  HookKind
	State State
}

// AfterLeave hooks run when the machine leaves s.
func AfterLeave(s State) HookKey { return HookKey{Kind: HookAfterLeave, State: s} }

// BeforeLeave hooks run before the machine leaves its current state toward target.
func BeforeLeave(target State) HookKey { return HookKey{Kind: HookBeforeLeave, State: target} }

// OnEnter hooks run when the machine enters s.
func OnEnter(s State) HookKey { return HookKey{Kind: HookOnEnter, State: s} }

// Wildcard hooks run on every transition, after the new state is committed.
func Wildcard() HookKey { return HookKey{Kind: HookWildcard} }

// String renders the key in the event-name form: "after:a", "before:b", "b", "*".
func (k HookKey) String() string {
	switch k.Kind {
	case HookAfterLeave:
		return "after:" + string(k.State)
	case HookBeforeLeave:
		return "before:" + string(k.State)
	case HookWildcard:
		return "*"
	}
	return string(k.State)
}

// ParseHookKey parses the event-name form produced by HookKey.String.
func ParseHookKey(s string) (HookKey, error) {
	switch {
	case s == "":
		return HookKey{}, fmt.Errorf("fsm: empty hook key")
	case s == "*":
		return Wildcard(), nil
	case strings.HasPrefix(s, "after:"):
		return AfterLeave(State(strings.TrimPrefix(s, "after:"))), nil
	case strings.HasPrefix(s, "before:"):
		return BeforeLeave(State(strings.TrimPrefix(s, "before:"))), nil
	}
	return OnEnter(State(s)), nil
}

// HookEvent describes the transition a hook is invoked for.
type HookEvent struct {
	Key    HookKey
	Prev   State
	Target State
	Params []any
}

// Args returns the positional arguments of the hook protocol: the target
// followed by the transition parameters, or for wildcard hooks the previous
// state, the target and then the parameters.
func (e HookEvent) Args() []any {
	var lead []any
	if e.Key.Kind == HookWildcard {
		lead = []any{e.Prev, e.Target}
	} else {
		lead = []any{e.Target}
	}
	return append(lead, e.Params...)
}

// Hook is a lifecycle procedure. It may block; the transition waits for it
// to return before invoking the next hook.
type Hook func(ctx context.Context, e HookEvent) error

// HookID identifies a registration for Off.
type HookID uint64

type registration struct {
	id   HookID
	key  HookKey
	hook Hook
}
