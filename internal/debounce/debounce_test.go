package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const wait = 50 * time.Millisecond

func counter() (*atomic.Int32, func()) {
	var n atomic.Int32
	return &n, func() { n.Add(1) }
}

func TestDebouncer(t *testing.T) {
	t.Run("first call runs immediately", func(t *testing.T) {
		n, fn := counter()
		d := New(fn, wait)

		d.Call()

		assert.Equal(t, int32(1), n.Load())
		assert.False(t, d.Pending())
	})

	t.Run("call within the interval is deferred", func(t *testing.T) {
		n, fn := counter()
		d := New(fn, wait)

		d.Call()
		d.Call()

		assert.Equal(t, int32(1), n.Load())
		assert.True(t, d.Pending())
		assert.Eventually(t, func() bool { return n.Load() == 2 }, time.Second, 5*time.Millisecond)
	})

	t.Run("burst collapses to one trailing run", func(t *testing.T) {
		n, fn := counter()
		d := New(fn, wait)

		d.Call()
		d.Call()
		d.Call()
		d.Call()

		assert.Eventually(t, func() bool { return n.Load() == 2 }, time.Second, 5*time.Millisecond)
		time.Sleep(2 * wait)
		assert.Equal(t, int32(2), n.Load())
	})

	t.Run("stop drops the trailing run", func(t *testing.T) {
		n, fn := counter()
		d := New(fn, wait)

		d.Call()
		d.Call()
		d.Stop()

		time.Sleep(2 * wait)
		assert.Equal(t, int32(1), n.Load())
	})

	t.Run("flush runs now", func(t *testing.T) {
		n, fn := counter()
		d := New(fn, wait)

		d.Call()
		d.Call()
		d.Flush()

		assert.Equal(t, int32(2), n.Load())
		assert.False(t, d.Pending())

		time.Sleep(2 * wait)
		assert.Equal(t, int32(2), n.Load())
	})

	t.Run("zero interval never defers", func(t *testing.T) {
		n, fn := counter()
		d := New(fn, 0)

		d.Call()
		d.Call()

		assert.Equal(t, int32(2), n.Load())
	})
}
