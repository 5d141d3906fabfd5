package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwner(t *testing.T) {
	t.Run("runs function and disposes", func(t *testing.T) {
		log := []string{}

		o := NewOwner()

		o.Run(func() {
			NewEffect(func() {
				log = append(log, "effect")

				OnCleanup(func() { log = append(log, "cleanup") })
			})
		})

		log = append(log, "ran")
		o.Dispose()
		log = append(log, "disposed")

		assert.Equal(t, []string{
			"effect",
			"ran",
			"cleanup",
			"disposed",
		}, log)
	})

	t.Run("disposed owner stops its effects", func(t *testing.T) {
		runs := 0
		count := NewSignal(0)

		o := NewOwner()
		o.Run(func() {
			NewEffect(func() {
				count.Read()
				runs++
			})
		})

		o.Dispose()
		count.Write(1)

		assert.Equal(t, 1, runs)
		assert.Equal(t, 0, count.Subscribers())
	})

	t.Run("reads inside run are not tracked", func(t *testing.T) {
		count := NewSignal(0)

		o := NewOwner()
		o.Run(func() {
			count.Read()
		})

		assert.Equal(t, 0, count.Subscribers())
	})

	t.Run("owner cleanups run on dispose", func(t *testing.T) {
		log := []string{}

		o := NewOwner()
		o.OnCleanup(func() { log = append(log, "owner cleanup") })
		o.Run(func() {
			OnCleanup(func() { log = append(log, "run cleanup") })
		})

		o.Dispose()
		o.Dispose()

		assert.Equal(t, []string{"owner cleanup", "run cleanup"}, log)
	})
}
