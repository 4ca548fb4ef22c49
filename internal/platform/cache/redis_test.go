package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, time.Minute)
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	type payload struct {
		Total int64  `json:"total"`
		Note  string `json:"note"`
	}

	require.NoError(t, store.SetJSON(ctx, "reports:sales", payload{Total: 42, Note: "ok"}))

	var got payload
	require.NoError(t, store.GetJSON(ctx, "reports:sales", &got))
	require.Equal(t, int64(42), got.Total)
	require.Equal(t, "ok", got.Note)
}

func TestStoreMiss(t *testing.T) {
	store := newTestStore(t)

	var dest map[string]any
	err := store.GetJSON(context.Background(), "missing", &dest)
	require.ErrorIs(t, err, ErrMiss)
}

func TestStoreInvalidate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, "reports:purchases", map[string]int{"total": 7}))
	require.NoError(t, store.Invalidate(ctx, "reports:purchases"))

	var dest map[string]int
	require.ErrorIs(t, store.GetJSON(ctx, "reports:purchases", &dest), ErrMiss)
}
