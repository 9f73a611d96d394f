package kvdb

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, assert *require.Assertions) *BoltDB {
	testLogger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store, err := New(testLogger, filepath.Join(t.TempDir(), "nested", "kv.db"))
	assert.NoError(err, "could not open kv store")
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSetGetDelete(t *testing.T) {
	assert := require.New(t)
	store := newTestStore(t, assert)

	assert.NoError(store.Set(LinksBucket, "key", "value"))
	value, err := store.Get(LinksBucket, "key")
	assert.NoError(err)
	assert.Equal("value", value)

	_, err = store.Get(PapersBucket, "key")
	assert.True(errors.Is(err, ErrNotFound), "keys are scoped to their bucket")

	assert.NoError(store.Delete(LinksBucket, "key"))
	_, err = store.Get(LinksBucket, "key")
	var notFoundErr *NotFoundError
	assert.True(errors.As(err, &notFoundErr))
	assert.Equal("key", notFoundErr.Key)
}

func TestEmptyKeyIsRejected(t *testing.T) {
	assert := require.New(t)
	store := newTestStore(t, assert)

	assert.True(errors.Is(store.Set(MetaBucket, "", "x"), ErrInvalidKey))
	_, err := store.Get(MetaBucket, "")
	assert.True(errors.Is(err, ErrInvalidKey))
	assert.True(errors.Is(store.Delete(MetaBucket, ""), ErrInvalidKey))
}

func TestSetBatchAndIterate(t *testing.T) {
	assert := require.New(t)
	store := newTestStore(t, assert)

	assert.NoError(store.SetBatch(PapersBucket, map[string]string{"1": `{"id":1}`, "2": `{"id":2}`, "3": `{"id":3}`}))

	keys, err := store.GetAllKeys(PapersBucket)
	assert.NoError(err)
	assert.Equal([]string{"1", "2", "3"}, keys)

	seen := map[string]string{}
	err = store.ForEach(PapersBucket, func(key string, value []byte) error {
		seen[key] = string(value)
		return nil
	})
	assert.NoError(err)
	assert.Equal(`{"id":2}`, seen["2"])

	_, err = store.GetAllKeys("missing")
	assert.Error(err)
}
