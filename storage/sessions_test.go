package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/tribunal/review"
)

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	t.Run("Get missing session returns ErrNotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, review.ErrNotFound)
	})

	t.Run("Put then Get round-trips the snapshot", func(t *testing.T) {
		session := review.NewSession("the pitch", review.ModeShort)
		session.AppendEvent("judge", 1, review.EventPhaseStart, nil)

		require.NoError(t, store.Put(ctx, session))

		got, err := store.Get(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, "the pitch", got.Document)
		assert.Len(t, got.Transcript, 1)
	})

	t.Run("Get returns a copy", func(t *testing.T) {
		session := review.NewSession("doc", review.ModeShort)
		require.NoError(t, store.Put(ctx, session))

		first, _ := store.Get(ctx, session.ID)
		first.Document = "mutated"

		second, _ := store.Get(ctx, session.ID)
		assert.Equal(t, "doc", second.Document, "store snapshot was mutated through a returned session")
	})

	t.Run("Put overwrites the previous snapshot", func(t *testing.T) {
		session := review.NewSession("doc", review.ModeShort)
		require.NoError(t, store.Put(ctx, session))

		session.Status = review.StatusCompleted
		require.NoError(t, store.Put(ctx, session))

		got, err := store.Get(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, review.StatusCompleted, got.Status)
	})
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(errors.New("nats: key not found")))
	assert.False(t, isNotFound(errors.New("connection refused")))
	assert.False(t, isNotFound(nil))
}
