package bus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type transcript struct {
	mu  sync.Mutex
	log []string
}

func (tr *transcript) add(s string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.log = append(tr.log, s)
}

func (tr *transcript) get() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.log...)
}

func TestBus(t *testing.T) {
	ctx := context.Background()

	t.Run("events run in order then notify the listener", func(t *testing.T) {
		tr := &transcript{}
		b := New(map[string]Action{
			"add": func(ctx context.Context, props any) error {
				tr.add("add " + props.(string))
				return nil
			},
		}, func(name string, props any) {
			tr.add("listener " + name)
		}, quiet())
		require.NoError(t, b.Start())
		defer b.Stop()

		require.NoError(t, b.Emit("add", "a"))
		require.NoError(t, b.Emit("add", "b"))
		require.NoError(t, b.Dispatch(ctx, "add", "c"))

		assert.Equal(t, []string{
			"add a", "listener add",
			"add b", "listener add",
			"add c", "listener add",
		}, tr.get())
	})

	t.Run("unknown action", func(t *testing.T) {
		tr := &transcript{}
		b := New(nil, func(name string, props any) {
			tr.add("listener " + name)
		}, quiet())
		require.NoError(t, b.Start())
		defer b.Stop()

		err := b.Dispatch(ctx, "missing", nil)

		assert.ErrorIs(t, err, ErrUnknownAction)
		assert.Empty(t, tr.get())
	})

	t.Run("failing action skips the listener", func(t *testing.T) {
		boom := errors.New("boom")
		tr := &transcript{}
		b := New(map[string]Action{
			"fail": func(ctx context.Context, props any) error { return boom },
		}, func(name string, props any) {
			tr.add("listener " + name)
		}, quiet())
		require.NoError(t, b.Start())
		defer b.Stop()

		assert.ErrorIs(t, b.Dispatch(ctx, "fail", nil), boom)
		assert.Empty(t, tr.get())
	})

	t.Run("nil listener", func(t *testing.T) {
		ran := false
		b := New(map[string]Action{
			"x": func(ctx context.Context, props any) error {
				ran = true
				return nil
			},
		}, nil, quiet())
		require.NoError(t, b.Start())
		defer b.Stop()

		require.NoError(t, b.Dispatch(ctx, "x", nil))
		assert.True(t, ran)
	})

	t.Run("not started", func(t *testing.T) {
		b := New(nil, nil, quiet())

		assert.ErrorIs(t, b.Emit("x", nil), ErrNotStarted)
		assert.ErrorIs(t, b.Dispatch(ctx, "x", nil), ErrNotStarted)
	})

	t.Run("stopped", func(t *testing.T) {
		b := New(nil, nil, quiet())
		require.NoError(t, b.Start())
		b.Stop()
		b.Stop()

		assert.ErrorIs(t, b.Emit("x", nil), ErrStopped)
		assert.ErrorIs(t, b.Start(), ErrStopped)
	})

	t.Run("start is idempotent", func(t *testing.T) {
		b := New(nil, nil, quiet())
		require.NoError(t, b.Start())
		require.NoError(t, b.Start())
		b.Stop()
	})

	t.Run("canceled context", func(t *testing.T) {
		release := make(chan struct{})
		b := New(map[string]Action{
			"block": func(ctx context.Context, props any) error {
				<-release
				return nil
			},
		}, nil, quiet())
		require.NoError(t, b.Start())
		defer b.Stop()
		defer close(release)

		require.NoError(t, b.Emit("block", nil))

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, b.Dispatch(cctx, "block", nil), context.Canceled)
	})

	t.Run("worker exit hook runs on stop", func(t *testing.T) {
		exited := make(chan struct{})
		b := New(nil, nil, quiet(), WithWorkerExit(func() { close(exited) }))
		require.NoError(t, b.Start())

		b.Stop()

		select {
		case <-exited:
		default:
			t.Fatal("exit hook did not run before Stop returned")
		}
	})

	t.Run("each bus has its own stream id", func(t *testing.T) {
		a := New(nil, nil)
		b := New(nil, nil)

		assert.NotEmpty(t, a.ID())
		assert.NotEqual(t, a.ID(), b.ID())
	})
}
