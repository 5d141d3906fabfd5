package todo

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItem(t *testing.T) {
	t.Run("trims and normalizes", func(t *testing.T) {
		it, err := NewItem("  cafe\u0301 ")
		require.NoError(t, err)

		assert.Equal(t, "caf\u00e9", it.Text)
		assert.Equal(t, it.Created, it.Modified)
		assert.False(t, it.Completed)

		_, err = uuid.Parse(it.ID)
		assert.NoError(t, err)
	})

	t.Run("ids are unique", func(t *testing.T) {
		a, err := NewItem("a")
		require.NoError(t, err)
		b, err := NewItem("a")
		require.NoError(t, err)

		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := NewItem(" \t\n")
		assert.ErrorIs(t, err, ErrEmptyText)
	})
}

func TestParseFilter(t *testing.T) {
	for in, want := range map[string]Filter{
		"":          FilterAll,
		"all":       FilterAll,
		" Active ":  FilterActive,
		"completed": FilterCompleted,
	} {
		got, err := ParseFilter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFilter("done")
	assert.ErrorIs(t, err, ErrBadFilter)
}

func TestVisible(t *testing.T) {
	items := []Item{
		{ID: "a"},
		{ID: "b", Completed: true},
		{ID: "c"},
	}

	assert.Equal(t, []string{"a", "b", "c"}, ids(visible(items, FilterAll)))
	assert.Equal(t, []string{"a", "c"}, ids(visible(items, FilterActive)))
	assert.Equal(t, []string{"b"}, ids(visible(items, FilterCompleted)))
}
