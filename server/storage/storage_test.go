package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestStorageFS(t *testing.T) {
	log := logs.NewTestingLog(t)
	store, err := NewStorageFS(log, t.TempDir())
	require.NoError(t, err)

	require.NoError(t, WriteFile(store, "a/b.txt", strings.NewReader("hello")))
	b, err := ReadFile(store, "a/b.txt")
	require.NoError(t, err)
	require.Equal(t, "hello", string(b))

	_, err = store.WriteFile("../escape.txt")
	require.Error(t, err)

	files, err := store.ListFiles("a/")
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "a/b.txt", files[0].Name)
	require.Equal(t, int64(5), files[0].Size)

	_, err = store.URL("a/b.txt")
	require.ErrorIs(t, err, ErrNoPublicUrl)

	require.NoError(t, store.DeleteFile("a/b.txt"))
	files, err = store.ListFiles("")
	require.NoError(t, err)
	require.Len(t, files, 0)
}

func TestSnapshots(t *testing.T) {
	log := logs.NewTestingLog(t)
	store, err := NewStorageFS(log, t.TempDir())
	require.NoError(t, err)
	snaps := NewSnapshots(log, store)

	at := time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)
	n1, err := snaps.Save(at, "Fire", []byte{0xff, 0xd8})
	require.NoError(t, err)
	n2, err := snaps.Save(at, "Fire", []byte{0xff, 0xd8})
	require.NoError(t, err)
	require.NotEqual(t, n1, n2)
	require.True(t, strings.HasPrefix(n1, "snapshots/2025-01-31/fire_1738317600_"), n1)
	require.True(t, strings.HasSuffix(n1, ".jpg"))

	b, err := snaps.Read(n1)
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xd8}, b)

	_, err = snaps.Read("config.sqlite")
	require.Error(t, err)

	// Age one of the snapshots, and check that retention only removes that one
	old := time.Now().Add(-10 * 24 * time.Hour)
	fn1, _ := store.Filename(n1)
	require.NoError(t, os.Chtimes(fn1, old, old))

	deleted, err := snaps.DeleteOlderThan(time.Now().Add(-7 * 24 * time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, deleted)

	files, err := snaps.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, n2, files[0].Name)
	require.Equal(t, filepath.ToSlash(n2), files[0].Name)
}

func TestMissingFiles(t *testing.T) {
	log := logs.NewTestingLog(t)
	store, err := NewStorageFS(log, t.TempDir())
	require.NoError(t, err)
	_, err = ReadFile(store, "snapshots/nope.jpg")
	require.ErrorIs(t, err, fs.ErrNotExist)

	// The GCS backend reports missing objects the same way
	require.ErrorIs(t, gcsError("snapshots/nope.jpg", gcs.ErrObjectNotExist), fs.ErrNotExist)
	require.NoError(t, gcsError("snapshots/nope.jpg", nil))
	other := errors.New("quota exceeded")
	require.Equal(t, other, gcsError("x", other))
}

func TestGCSNaming(t *testing.T) {
	require.Equal(t, "https://storage.googleapis.com/fw-alerts/snapshots/2025-01-31/fire_1.jpg",
		publicObjectURL("fw-alerts", "snapshots/2025-01-31/fire_1.jpg"))
	require.Equal(t, "https://storage.googleapis.com/b/snapshots/a%20b.jpg", publicObjectURL("b", "snapshots/a b.jpg"))
	require.Equal(t, "image/jpeg", contentType("snapshots/x.jpg"))
	require.Equal(t, "application/octet-stream", contentType("snapshots/x"))
}
