package fsm

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// State is an application-defined state name.
type State string

// Config is a transition table: every key is a state, and its list holds
// the states it may move to, the first entry being the default target.
type Config struct {
	Initial State             `json:"initial" yaml:"initial"`
	States  map[State][]State `json:"states" yaml:"states"`
}

// ParseConfig decodes a YAML machine definition and validates it.
//
//	initial: viewing
//	states:
//	  viewing: [adding, filtering]
//	  adding: [viewing]
//	  filtering: [viewing]
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that the initial state and every transition target are
// keys of the table. Dead ends are allowed; see DeadEnds.
func (c Config) Validate() error {
	if c.Initial == "" {
		return fmt.Errorf("%w: initial state is required", ErrInvalidConfig)
	}
	if len(c.States) == 0 {
		return fmt.Errorf("%w: states table is empty", ErrInvalidConfig)
	}
	if _, ok := c.States[c.Initial]; !ok {
		return fmt.Errorf("%w: initial state %q not found in states", ErrInvalidConfig, c.Initial)
	}

	for _, from := range c.names() {
		for _, to := range c.States[from] {
			if _, ok := c.States[to]; !ok {
				return fmt.Errorf("%w: state %q lists unknown target %q", ErrInvalidConfig, from, to)
			}
		}
	}

	return nil
}

// DeadEnds returns the states with no outgoing transitions, sorted.
func (c Config) DeadEnds() []State {
	var dead []State
	for _, s := range c.names() {
		if len(c.States[s]) == 0 {
			dead = append(dead, s)
		}
	}
	return dead
}

// Unreachable returns the states that cannot be reached from Initial, sorted.
func (c Config) Unreachable() []State {
	seen := map[State]bool{c.Initial: true}
	queue := []State{c.Initial}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, next := range c.States[s] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	var out []State
	for _, s := range c.names() {
		if !seen[s] {
			out = append(out, s)
		}
	}
	return out
}

// clone deep-copies the table so the machine's view is never mutated.
func (c Config) clone() map[State][]State {
	out := make(map[State][]State, len(c.States))
	for k, v := range c.States {
		out[k] = slices.Clone(v)
	}
	return out
}

func (c Config) names() []State {
	names := make([]State, 0, len(c.States))
	for s := range c.States {
		names = append(names, s)
	}
	slices.Sort(names)
	return names
}
