//go:build wasm

package runtime

import "sync"

var once sync.Once
var globalRuntime *Runtime

// Get returns the single process runtime; wasm hosts run one logical thread.
func Get() *Runtime {
	once.Do(func() {
		globalRuntime = NewRuntime()
	})

	return globalRuntime
}

func Release() {}
