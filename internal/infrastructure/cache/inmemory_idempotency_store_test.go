package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("first mark wins, replay is suppressed", func(t *testing.T) {
		ok, err := store.MarkProcessed(ctx, "EV-001", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.MarkProcessed(ctx, "EV-001", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("distinct event ids are independent", func(t *testing.T) {
		ok, err := store.MarkProcessed(ctx, "EV-002", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expired entry can be marked again", func(t *testing.T) {
		ok, err := store.MarkProcessed(ctx, "EV-003", time.Millisecond)
		require.NoError(t, err)
		assert.True(t, ok)

		time.Sleep(5 * time.Millisecond)

		ok, err = store.MarkProcessed(ctx, "EV-003", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "EV-unknown")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "EV-seen", time.Hour)
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "EV-seen")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "EV-short", time.Millisecond)
	require.NoError(t, err)
	_, err = store.MarkProcessed(ctx, "EV-long", time.Hour)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
