package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookKey(t *testing.T) {
	cases := []struct {
		key  HookKey
		name string
	}{
		{AfterLeave("a"), "after:a"},
		{BeforeLeave("b"), "before:b"},
		{OnEnter("b"), "b"},
		{Wildcard(), "*"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.name, tc.key.String())

			parsed, err := ParseHookKey(tc.name)
			require.NoError(t, err)
			assert.Equal(t, tc.key, parsed)
		})
	}

	t.Run("empty key", func(t *testing.T) {
		_, err := ParseHookKey("")
		assert.Error(t, err)
	})
}
