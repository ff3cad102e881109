package filestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowkit/errors"
)

func TestPutGetRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "worker", []byte(`{"state":"idle"}`)))

	data, err := store.Get(ctx, "worker")
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"idle"}`, string(data))
}

func TestPutReplaces(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "worker", []byte("first")))
	require.NoError(t, store.Put(ctx, "worker", []byte("second")))

	data, err := store.Get(ctx, "worker")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestGetMissingKey(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "absent")
	require.ErrorIs(t, err, errors.ErrKeyNotFound)
}

func TestListWithPrefix(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"job-b", "job-a", "other"} {
		require.NoError(t, store.Put(ctx, key, []byte("x")))
	}

	keys, err := store.List(ctx, "job-")
	require.NoError(t, err)
	assert.Equal(t, []string{"job-a", "job-b"}, keys)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"job-a", "job-b", "other"}, all)
}

func TestDeleteIdempotent(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "worker", []byte("x")))
	require.NoError(t, store.Delete(ctx, "worker"))
	require.NoError(t, store.Delete(ctx, "worker"))

	_, err = store.Get(ctx, "worker")
	require.ErrorIs(t, err, errors.ErrKeyNotFound)
}

func TestInvalidKeys(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "a/b", `a\b`, ".hidden"} {
		assert.Error(t, store.Put(ctx, key, []byte("x")), "key %q", key)
	}
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestContextCancellation(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, store.Put(ctx, "worker", []byte("x")))
	_, err = store.Get(ctx, "worker")
	assert.Error(t, err)
}
