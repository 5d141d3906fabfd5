package reactive

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffect(t *testing.T) {
	t.Run("runs eagerly and on signal change with cleanup", func(t *testing.T) {
		log := []string{}

		count := NewSignal(0)
		log = append(log, fmt.Sprintf("%d", count.Read()))

		NewEffect(func() {
			log = append(log, fmt.Sprintf("changed %d", count.Read()))

			OnCleanup(func() {
				log = append(log, "cleanup")
			})
		})

		count.Write(10)
		log = append(log, fmt.Sprintf("%d", count.Read()))
		count.Write(20)

		assert.Equal(t, []string{
			"0",
			"changed 0",
			"cleanup",
			"changed 10",
			"10",
			"cleanup",
			"changed 20",
		}, log)
	})

	t.Run("re-runs exactly once per write", func(t *testing.T) {
		runs := map[string]int{}

		a := NewSignal(0)
		b := NewSignal(0)

		NewEffect(func() {
			a.Read()
			a.Read()
			runs["a"]++
		})
		NewEffect(func() {
			b.Read()
			runs["b"]++
		})

		a.Write(1)

		assert.Equal(t, map[string]int{"a": 2, "b": 1}, runs)
	})

	t.Run("never re-runs for unread signals", func(t *testing.T) {
		runs := 0

		read := NewSignal(0)
		other := NewSignal(0)

		NewEffect(func() {
			read.Read()
			runs++
		})

		other.Write(1)
		other.Write(2)

		assert.Equal(t, 1, runs)
		assert.Equal(t, 0, other.Subscribers())
	})

	t.Run("dispose removes every subscription", func(t *testing.T) {
		runs := 0

		a := NewSignal(0)
		b := NewSignal(0)

		dispose := NewEffect(func() {
			a.Read()
			b.Read()
			runs++
		})

		assert.Equal(t, 1, a.Subscribers())
		assert.Equal(t, 1, b.Subscribers())

		dispose()
		a.Write(1)
		b.Write(1)

		assert.Equal(t, 1, runs)
		assert.Equal(t, 0, a.Subscribers())
		assert.Equal(t, 0, b.Subscribers())
	})

	t.Run("tracks only the latest run", func(t *testing.T) {
		log := []string{}

		useA := NewSignal(true)
		a := NewSignal("a")
		b := NewSignal("b")

		NewEffect(func() {
			if useA.Read() {
				log = append(log, a.Read())
			} else {
				log = append(log, b.Read())
			}
		})

		useA.Write(false)
		a.Write("a2")
		b.Write("b2")

		assert.Equal(t, []string{"a", "b", "b2"}, log)
	})

	t.Run("notifies in registration order", func(t *testing.T) {
		log := []string{}
		count := NewSignal(0)

		for _, name := range []string{"first", "second", "third"} {
			NewEffect(func() {
				count.Read()
				log = append(log, name)
			})
		}
		log = nil

		count.Write(1)

		assert.Equal(t, []string{"first", "second", "third"}, log)
	})

	t.Run("writes to another signal", func(t *testing.T) {
		log := []string{}

		count := NewSignal(0)
		double := NewSignal(0)

		NewEffect(func() {
			double.Write(count.Read() * 2)
		})

		NewEffect(func() {
			log = append(log, fmt.Sprintf("changed %d", double.Read()))
		})

		count.Write(10)

		assert.Equal(t, []string{
			"changed 0",
			"changed 20",
		}, log)
	})

	t.Run("re-entrant writes finish before the outer pass continues", func(t *testing.T) {
		log := []string{}

		source := NewSignal(0)
		derived := NewSignal(0)

		NewEffect(func() {
			v := source.Read()
			log = append(log, "writer")
			derived.Write(v + 1)
		})
		NewEffect(func() {
			log = append(log, fmt.Sprintf("derived %d", derived.Read()))
		})
		NewEffect(func() {
			log = append(log, fmt.Sprintf("source %d", source.Read()))
		})
		log = nil

		source.Write(5)

		assert.Equal(t, []string{
			"writer",
			"derived 6",
			"source 5",
		}, log)
	})

	t.Run("read and write the same signal does not recurse", func(t *testing.T) {
		count := NewSignal(0)
		runs := 0

		NewEffect(func() {
			runs++
			if v := count.Read(); v < 3 {
				count.Write(v + 1)
			}
		})

		assert.Equal(t, 1, runs)
		assert.Equal(t, 1, count.Peek())

		count.Write(1)
		assert.Equal(t, 2, runs)
		assert.Equal(t, 2, count.Peek())
	})

	t.Run("disposing a sibling mid-pass skips it", func(t *testing.T) {
		log := []string{}
		count := NewSignal(0)

		var disposeSecond func()
		NewEffect(func() {
			if count.Read() > 0 {
				disposeSecond()
			}
			log = append(log, "first")
		})
		disposeSecond = NewEffect(func() {
			count.Read()
			log = append(log, "second")
		})
		log = nil

		count.Write(1)

		assert.Equal(t, []string{"first"}, log)
	})

	t.Run("nested effects", func(t *testing.T) {
		log := []string{}

		count := NewSignal(0)

		NewEffect(func() {
			count.Read()
			log = append(log, "running")

			NewEffect(func() {
				log = append(log, "running nested")

				OnCleanup(func() {
					log = append(log, "cleanup nested")
				})
			})

			OnCleanup(func() {
				log = append(log, "cleanup")
			})
		})

		count.Write(10)

		assert.Equal(t, []string{
			"running",
			"running nested",
			"cleanup nested",
			"cleanup",
			"running",
			"running nested",
		}, log)
	})
}

func TestEffectDisposal(t *testing.T) {
	t.Run("dispose inside own run drops later reads", func(t *testing.T) {
		a := NewSignal(0)
		b := NewSignal(0)

		runs := 0
		first := true
		var dispose func()
		dispose = NewEffect(func() {
			runs++
			a.Read()
			if !first {
				dispose()
			}
			first = false
			b.Read()
		})

		assert.Equal(t, 1, a.Subscribers())
		assert.Equal(t, 1, b.Subscribers())

		a.Write(1)

		assert.Equal(t, 0, a.Subscribers())
		assert.Equal(t, 0, b.Subscribers())

		a.Write(2)
		b.Write(2)
		assert.Equal(t, 2, runs)
	})

	t.Run("panicking first run leaves no subscription", func(t *testing.T) {
		a := NewSignal(0)
		runs := 0

		assert.PanicsWithValue(t, "boom", func() {
			NewEffect(func() {
				runs++
				a.Read()
				panic("boom")
			})
		})

		assert.Equal(t, 0, a.Subscribers())
		assert.NotPanics(t, func() { a.Write(1) })
		assert.Equal(t, 1, runs)
	})

	t.Run("panicking first run is detached from its owner", func(t *testing.T) {
		a := NewSignal(0)
		inner := 0

		NewEffect(func() {
			a.Read()
			assert.Panics(t, func() {
				NewEffect(func() {
					inner++
					a.Read()
					panic("boom")
				})
			})
		})

		a.Write(1)
		assert.Equal(t, 2, inner)
		assert.Equal(t, 1, a.Subscribers())
	})
}
