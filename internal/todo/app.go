// Package todo is a todo-list app built on the reactive engine, the state
// machine and the reconciler.
//
// The app state lives in signals loaded from a store slot. User actions are
// events on a bus; each handled action advances the app machine, whose
// wildcard hook mirrors the state into a signal and schedules a debounced
// save. A render effect installed when the list is first shown patches the
// page into a live node tree whenever something it read changes.
package todo

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/autonome/scratchpad/fsm"
	"github.com/autonome/scratchpad/internal/bus"
	"github.com/autonome/scratchpad/internal/debounce"
	"github.com/autonome/scratchpad/internal/store"
	"github.com/autonome/scratchpad/reactive"
	"github.com/autonome/scratchpad/reconcile"
)

const (
	StateUninitialized fsm.State = "uninitialized"
	StateInitialized   fsm.State = "initialized"
	StateViewList      fsm.State = "viewlist"
	StateEditing       fsm.State = "editing"
)

// StorageKey is the store slot holding the app Record.
const StorageKey = "rfsm-actions"

// DefaultInterval is the longest a change waits before it is saved.
const DefaultInterval = 5 * time.Second

// Action names accepted by Dispatch.
const (
	ActionAddItem    = "addItem"
	ActionUpdateItem = "updateItem"
	ActionToggleItem = "toggleItem"
	ActionDeleteItem = "deleteItem"
	ActionSetFilter  = "setFilter"
)

var ErrBadProps = errors.New("todo: unexpected action props")

// Props of the actions.
type (
	AddItem    struct{ Text string }
	UpdateItem struct{ ID, Text string }
	ItemRef    struct{ ID string }
	SetFilter  struct{ Filter Filter }
)

//go:embed machine.yaml
var machineYAML []byte

// MachineYAML returns the app machine definition.
func MachineYAML() []byte {
	return slices.Clone(machineYAML)
}

func MachineConfig() (fsm.Config, error) {
	return fsm.ParseConfig(machineYAML)
}

type Option func(*App)

func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithInterval sets the save interval. Zero saves on every change.
func WithInterval(d time.Duration) Option {
	return func(a *App) {
		a.interval = d
	}
}

// WithReset discards the stored record on Start.
func WithReset(reset bool) Option {
	return func(a *App) {
		a.reset = reset
	}
}

// WithSeed adds items with these texts when the loaded record has none.
func WithSeed(texts ...string) Option {
	return func(a *App) {
		a.seed = texts
	}
}

// WithIDs replaces the item id generator.
func WithIDs(fn func() string) Option {
	return func(a *App) {
		a.newID = fn
	}
}

func WithClock(fn func() time.Time) Option {
	return func(a *App) {
		a.now = fn
	}
}

// SequentialIDs returns an id generator yielding prefix-1, prefix-2, ...
func SequentialIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string {
		return prefix + "-" + strconv.FormatInt(n.Add(1), 10)
	}
}

type App struct {
	store    *store.Store
	logger   *slog.Logger
	interval time.Duration
	reset    bool
	seed     []string
	newID    func() string
	now      func() time.Time

	machine    *fsm.Machine
	bus        *bus.Bus
	saver      *debounce.Debouncer
	reconciler *reconcile.Reconciler
	owner      *reactive.Owner

	mu        sync.Mutex
	container *html.Node
	started   bool
	rendered  bool

	counter *reactive.Signal[int]
	layout  *reactive.Signal[string]
	sort    *reactive.Signal[string]
	order   *reactive.Signal[string]
	filter  *reactive.Signal[Filter]
	tags    *reactive.Signal[[]string]
	items   *reactive.Signal[[]Item]
	current *reactive.Signal[fsm.State]
	visible *reactive.Computed[[]Item]
}

// New creates an app persisting to s. Nothing is loaded until Start.
func New(s *store.Store, opts ...Option) (*App, error) {
	a := &App{
		store:     s,
		logger:    slog.Default(),
		interval:  DefaultInterval,
		newID:     uuid.NewString,
		now:       time.Now,
		container: reconcile.NewContainer("div"),
	}
	for _, opt := range opts {
		opt(a)
	}

	cfg, err := MachineConfig()
	if err != nil {
		return nil, err
	}
	a.machine, err = fsm.New(cfg, fsm.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}

	a.reconciler = reconcile.New(reconcile.WithLogger(a.logger))
	a.saver = debounce.New(a.save, a.interval)
	a.bus = bus.New(map[string]bus.Action{
		ActionAddItem:    action(a.addItem),
		ActionUpdateItem: action(a.updateItem),
		ActionToggleItem: action(a.toggleItem),
		ActionDeleteItem: action(a.deleteItem),
		ActionSetFilter:  action(a.setFilter),
	}, a.advance, bus.WithLogger(a.logger), bus.WithWorkerExit(reactive.Release))

	return a, nil
}

// action adapts a typed handler to the bus.
func action[P any](fn func(context.Context, P) error) bus.Action {
	return func(ctx context.Context, props any) error {
		p, ok := props.(P)
		if !ok {
			return fmt.Errorf("%w: %T", ErrBadProps, props)
		}
		return fn(ctx, p)
	}
}

// Start loads the record, renders the list and starts taking actions.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	a.mu.Unlock()

	rec, err := store.Load(ctx, a.store, StorageKey, DefaultRecord(), a.reset)
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}
	if len(rec.Items) == 0 {
		for _, text := range a.seed {
			it, err := newItem(a.newID(), text, a.now())
			if err != nil {
				continue
			}
			rec.Items = append(rec.Items, it)
		}
	}
	if rec.Filter == "" {
		rec.Filter = FilterAll
	}

	a.counter = reactive.NewSignal(rec.Counter)
	a.layout = reactive.NewSignal(rec.Layout)
	a.sort = reactive.NewSignal(rec.Sort)
	a.order = reactive.NewSignal(rec.Order)
	a.filter = reactive.NewSignal(rec.Filter)
	a.tags = reactive.NewSignal(rec.Tags)
	a.items = reactive.NewSignal(rec.Items)
	a.current = reactive.NewSignal(a.machine.Current())

	a.owner = reactive.NewOwner()
	a.owner.Run(func() {
		a.visible = reactive.NewComputed(func() []Item {
			return visible(a.items.Read(), a.filter.Read())
		})
	})

	a.machine.On(fsm.OnEnter(StateInitialized), func(ctx context.Context, e fsm.HookEvent) error {
		a.counter.Update(func(n int) int { return n + 1 })
		return nil
	})
	a.machine.On(fsm.OnEnter(StateViewList), func(ctx context.Context, e fsm.HookEvent) error {
		if !a.rendered {
			a.rendered = true
			a.owner.Run(func() {
				reactive.NewEffect(a.render)
			})
		}
		return nil
	})
	a.machine.On(fsm.Wildcard(), func(ctx context.Context, e fsm.HookEvent) error {
		state := a.machine.Current()
		a.current.Write(state)

		if state != StateUninitialized && state != StateInitialized {
			a.saver.Call()
		}
		return nil
	})

	if err := a.bus.Start(); err != nil {
		return err
	}
	if err := a.machine.Transition(ctx, StateInitialized); err != nil {
		return err
	}
	return a.machine.Advance(ctx)
}

// Dispatch runs the named action and waits until the app has advanced.
func (a *App) Dispatch(ctx context.Context, name string, props any) error {
	return a.bus.Dispatch(ctx, name, props)
}

// Emit queues the named action without waiting.
func (a *App) Emit(name string, props any) error {
	return a.bus.Emit(name, props)
}

// HTML returns the markup of the live page.
func (a *App) HTML() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return reconcile.Serialize(a.container)
}

// Root returns the live page container. Callers must not touch it while
// the app is running.
func (a *App) Root() *html.Node {
	return a.container
}

func (a *App) Current() fsm.State {
	return a.machine.Current()
}

// Items returns every item, including the ones the filter hides.
func (a *App) Items() []Item {
	if a.items == nil {
		return nil
	}
	return slices.Clone(a.items.Peek())
}

// Visible returns the items the current filter lets through.
func (a *App) Visible() []Item {
	if a.visible == nil {
		return nil
	}
	return slices.Clone(a.visible.Peek())
}

func (a *App) Counter() int {
	if a.counter == nil {
		return 0
	}
	return a.counter.Peek()
}

func (a *App) RenderStats() reconcile.Stats {
	return a.reconciler.Stats()
}

// Flush saves the record now.
func (a *App) Flush() {
	if a.items == nil {
		return
	}
	a.saver.Flush()
}

// Close stops taking actions, saves and tears down the render effect.
func (a *App) Close() error {
	a.mu.Lock()
	started := a.started
	a.mu.Unlock()

	a.bus.Stop()
	if !started {
		return nil
	}

	a.saver.Stop()
	err := a.write()
	a.owner.Dispose()
	return err
}

func (a *App) advance(name string, props any) {
	if err := a.machine.Advance(context.Background()); err != nil {
		a.logger.Error("todo: advance after action failed", "action", name, "error", err)
	}
}

func (a *App) render() {
	v := view{
		State:   string(a.current.Read()),
		Counter: a.counter.Read(),
		Layout:  a.layout.Read(),
		Sort:    a.sort.Read(),
		Filter:  a.filter.Read(),
		Total:   len(a.items.Read()),
		Items:   a.visible.Read(),
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.reconciler.RenderComponent(context.Background(), a.container, Page(v)); err != nil {
		a.logger.Error("todo: render failed", "error", err)
		return
	}
	a.logger.Debug("todo: rendered", "state", v.State, "items", len(v.Items))
}

func (a *App) record() Record {
	return Record{
		Counter: a.counter.Peek(),
		Layout:  a.layout.Peek(),
		Sort:    a.sort.Peek(),
		Order:   a.order.Peek(),
		Filter:  a.filter.Peek(),
		Tags:    a.tags.Peek(),
		Items:   a.items.Peek(),
	}
}

func (a *App) save() {
	if err := a.write(); err != nil {
		a.logger.Error("todo: save failed", "error", err)
	}
}

func (a *App) write() error {
	a.logger.Debug("todo: saving record", "key", StorageKey)
	return a.store.Set(context.Background(), StorageKey, a.record())
}

func (a *App) addItem(ctx context.Context, p AddItem) error {
	it, err := newItem(a.newID(), p.Text, a.now())
	if err != nil {
		return err
	}

	a.items.Update(func(items []Item) []Item {
		return append(slices.Clone(items), it)
	})
	return nil
}

func (a *App) updateItem(ctx context.Context, p UpdateItem) error {
	text := normalize(p.Text)
	if text == "" {
		return ErrEmptyText
	}

	items, err := replace(a.items.Peek(), p.ID, func(it Item) Item {
		it.Text = text
		it.Modified = a.now()
		return it
	})
	if err != nil {
		return err
	}

	a.items.Write(items)
	return nil
}

func (a *App) toggleItem(ctx context.Context, p ItemRef) error {
	items, err := replace(a.items.Peek(), p.ID, func(it Item) Item {
		it.Completed = !it.Completed
		it.Modified = a.now()
		return it
	})
	if err != nil {
		return err
	}

	a.items.Write(items)
	return nil
}

func (a *App) deleteItem(ctx context.Context, p ItemRef) error {
	items := a.items.Peek()
	i := slices.IndexFunc(items, func(it Item) bool { return it.ID == p.ID })
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNoSuchItem, p.ID)
	}

	a.items.Write(slices.Delete(slices.Clone(items), i, i+1))
	return nil
}

func (a *App) setFilter(ctx context.Context, p SetFilter) error {
	f, err := ParseFilter(string(p.Filter))
	if err != nil {
		return err
	}

	a.filter.Write(f)
	return nil
}
