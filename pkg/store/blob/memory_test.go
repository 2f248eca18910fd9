package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	written, err := store.Put(ctx, "checkpoints/w1/2026/08/26/chk_abc.bin", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), written)

	exists, err := store.Exists(ctx, "checkpoints/w1/2026/08/26/chk_abc.bin")
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := store.Get(ctx, "checkpoints/w1/2026/08/26/chk_abc.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	require.NoError(t, store.Delete(ctx, "checkpoints/w1/2026/08/26/chk_abc.bin"))

	_, err = store.Get(ctx, "checkpoints/w1/2026/08/26/chk_abc.bin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Put(ctx, "key", []byte("original"))
	require.NoError(t, err)

	data, err := store.Get(ctx, "key")
	require.NoError(t, err)
	data[0] = 'X'

	again, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Put(ctx, "key", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.Get(ctx, "key")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_DeleteMissingIsNoop(t *testing.T) {
	store := NewMemoryStore()
	assert.NoError(t, store.Delete(context.Background(), "missing"))
}
