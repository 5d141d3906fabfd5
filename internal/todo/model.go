package todo

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrEmptyText  = errors.New("todo: item text is empty")
	ErrNoSuchItem = errors.New("todo: no such item")
	ErrBadFilter  = errors.New("todo: unknown filter")
)

// Filter selects which items are listed.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterAll, FilterActive, FilterCompleted:
		return f, nil
	case "":
		return FilterAll, nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadFilter, s)
}

func (f Filter) match(it Item) bool {
	switch f {
	case FilterActive:
		return !it.Completed
	case FilterCompleted:
		return it.Completed
	}
	return true
}

type Item struct {
	ID        string    `msgpack:"id"`
	Text      string    `msgpack:"text"`
	Tags      []string  `msgpack:"tags"`
	Completed bool      `msgpack:"completed"`
	Created   time.Time `msgpack:"created"`
	Modified  time.Time `msgpack:"modified"`
}

// Record is everything the app persists, stored as one slot.
type Record struct {
	Counter int      `msgpack:"counter"`
	Layout  string   `msgpack:"layout"`
	Sort    string   `msgpack:"sort"`
	Order   string   `msgpack:"order"`
	Filter  Filter   `msgpack:"filter"`
	Tags    []string `msgpack:"tags"`
	Items   []Item   `msgpack:"items"`
}

func DefaultRecord() Record {
	return Record{
		Layout: "grid",
		Sort:   "last-modified",
		Order:  "desc",
		Filter: FilterAll,
		Tags:   []string{},
		Items:  []Item{},
	}
}

// NewItem creates an item with a fresh id. The text is trimmed and
// normalized to NFC.
func NewItem(text string) (Item, error) {
	return newItem(uuid.NewString(), text, time.Now())
}

func newItem(id, text string, now time.Time) (Item, error) {
	text = normalize(text)
	if text == "" {
		return Item{}, ErrEmptyText
	}

	return Item{
		ID:       id,
		Text:     text,
		Tags:     []string{},
		Created:  now,
		Modified: now,
	}, nil
}

func normalize(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

// visible returns the items f lets through, in order.
func visible(items []Item, f Filter) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if f.match(it) {
			out = append(out, it)
		}
	}
	return out
}

// replace returns a copy of items with the item id passed through fn.
func replace(items []Item, id string, fn func(Item) Item) ([]Item, error) {
	i := slices.IndexFunc(items, func(it Item) bool { return it.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchItem, id)
	}

	out := slices.Clone(items)
	out[i] = fn(out[i])
	return out, nil
}
