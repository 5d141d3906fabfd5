// Package schema checks the shape of machine config files against an
// embedded CUE definition before they are decoded into fsm.Config.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed machine.cue
var machineCUE string

var ErrInvalid = errors.New("schema: invalid machine config")

var (
	once    sync.Once
	ctx     *cue.Context
	machine cue.Value
	loadErr error
)

func load() (*cue.Context, cue.Value, error) {
	once.Do(func() {
		ctx = cuecontext.New()
		v := ctx.CompileString(machineCUE, cue.Filename("machine.cue"))
		if err := v.Err(); err != nil {
			loadErr = fmt.Errorf("compile machine schema: %w", err)
			return
		}
		machine = v.LookupPath(cue.ParsePath("#Machine"))
		if !machine.Exists() {
			loadErr = errors.New("machine schema: #Machine not defined")
		}
	})
	return ctx, machine, loadErr
}

// ValidateMachine reports whether data, a YAML (or JSON) document, is a
// concrete instance of #Machine. Unknown fields are rejected.
func ValidateMachine(data []byte) error {
	cctx, def, err := load()
	if err != nil {
		return err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if doc == nil {
		return fmt.Errorf("%w: empty document", ErrInvalid)
	}

	v := cctx.Encode(doc)
	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
