package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveReadRemove(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("audit/exp-1.csv", []byte("a,b,c"))
	require.NoError(t, err)

	data, err := store.Read("audit/exp-1.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b,c", string(data))

	require.NoError(t, store.Remove("audit/exp-1.csv"))
	_, err = store.Read("audit/exp-1.csv")
	require.Error(t, err)
}

func TestLocalStorageRemoveMissingFile(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.Remove("audit/never-written.csv"))
}

func TestLocalStorageRejectsPathTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, path := range []string{"../outside.csv", "audit/../../outside.csv", "/etc/passwd", "."} {
		_, err := store.Save(path, []byte("x"))
		assert.Error(t, err, "path %q should be rejected", path)
	}
}
