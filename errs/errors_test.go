package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	t.Run("without_cause", func(t *testing.T) {
		err := New(KindNoMainTable, "no primary entity table found")
		assert.Equal(t, "[no_main_table] no primary entity table found", err.Error())
	})

	t.Run("with_cause", func(t *testing.T) {
		err := Wrap(KindConnectionFailed, "catalog query failed", fmt.Errorf("connection refused"))
		assert.Equal(t, "[connection_failed] catalog query failed: connection refused", err.Error())
	})
}

func TestKindOf(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	wrapped := fmt.Errorf("detect: %w", Wrap(KindConnectionFailed, "ping failed", cause))

	assert.Equal(t, KindConnectionFailed, KindOf(wrapped))
	assert.True(t, IsConnectionFailed(wrapped))
	assert.False(t, IsInvalidInput(wrapped))
	assert.ErrorIs(t, wrapped, cause)

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestWithDetails(t *testing.T) {
	err := New(KindNoMainTable, "no table").
		WithSuggestion("check the schema").
		WithDetails(map[string]any{"tables": []string{"orders"}}).
		WithDetails(map[string]any{"schema": "public"})

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "check the schema", e.Suggestion)
	assert.Len(t, e.Details, 2)
	assert.Equal(t, []string{"orders"}, e.Details["tables"])
}
