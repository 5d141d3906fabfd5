//go:build !wasm

package runtime

import (
	"sync"

	"github.com/petermattis/goid"
)

var runtimes sync.Map

// Get returns the runtime of the calling goroutine, creating it on first use.
func Get() *Runtime {
	gid := goid.Get()

	if r, ok := runtimes.Load(gid); ok {
		return r.(*Runtime)
	}

	r := NewRuntime()
	runtimes.Store(gid, r)
	return r
}

// Release drops the calling goroutine's runtime. Long-lived worker pools call
// it when a goroutine is done with reactive work.
func Release() {
	runtimes.Delete(goid.Get())
}
