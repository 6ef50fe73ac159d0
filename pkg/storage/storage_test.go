package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putString(t *testing.T, s Storage, bucket, key, body string) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), bucket, key, "text/plain", strings.NewReader(body), int64(len(body))))
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	t.Run("put then get", func(t *testing.T) {
		putString(t, store, "landing", "reports/2023.pdf", "pdf-bytes")

		rc, info, err := store.Get(ctx, "landing", "reports/2023.pdf")
		require.NoError(t, err)
		defer rc.Close()

		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "pdf-bytes", string(body))
		assert.Equal(t, int64(9), info.Size)
		assert.Equal(t, "reports/2023.pdf", info.Key)
	})

	t.Run("get missing", func(t *testing.T) {
		_, _, err := store.Get(ctx, "landing", "nope.pdf")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list by prefix", func(t *testing.T) {
		putString(t, store, "staging", "zone/a.csv", "a")
		putString(t, store, "staging", "zone/b.csv", "b")
		putString(t, store, "staging", "other/c.csv", "c")

		objects, err := store.List(ctx, "staging", "zone/")
		require.NoError(t, err)

		keys := make([]string, 0, len(objects))
		for _, o := range objects {
			keys = append(keys, o.Key)
		}
		assert.ElementsMatch(t, []string{"zone/a.csv", "zone/b.csv"}, keys)
	})

	t.Run("list missing bucket", func(t *testing.T) {
		objects, err := store.List(ctx, "empty", "")
		require.NoError(t, err)
		assert.Empty(t, objects)
	})

	t.Run("move", func(t *testing.T) {
		putString(t, store, "staging", "zone/move.csv", "m")

		require.NoError(t, store.Move(ctx, "staging", "zone/move.csv", "processed/move.csv"))

		_, _, err := store.Get(ctx, "staging", "zone/move.csv")
		assert.ErrorIs(t, err, ErrNotFound)
		rc, _, err := store.Get(ctx, "staging", "processed/move.csv")
		require.NoError(t, err)
		rc.Close()
	})

	t.Run("move missing", func(t *testing.T) {
		err := store.Move(ctx, "staging", "zone/ghost.csv", "processed/ghost.csv")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		putString(t, store, "staging", "zone/del.csv", "d")
		require.NoError(t, store.Delete(ctx, "staging", "zone/del.csv"))
		require.NoError(t, store.Delete(ctx, "staging", "zone/del.csv"))
	})

	t.Run("rejects escaping keys", func(t *testing.T) {
		err := store.Put(ctx, "staging", "../../etc/passwd", "", strings.NewReader("x"), 1)
		assert.Error(t, err)
	})
}

func TestLocalStorage_ListUsesModTime(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	putString(t, store, "b", "old.csv", "o")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "b", "old.csv"), past, past))

	objects, err := store.List(ctx, "b", "")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.WithinDuration(t, past, objects[0].LastModified, time.Second)
}

func TestNew(t *testing.T) {
	s, err := New(&Config{Type: StorageTypeLocal, LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = New(&Config{Type: StorageTypeS3})
	assert.Error(t, err, "endpoint is required")
}
