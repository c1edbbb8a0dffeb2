package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilesystemPhotoStoreSaveUsesUsernamePath(t *testing.T) {
	store, err := NewFilesystemPhotoStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.Save(context.Background(), "testuser1", "selfie.JPG", strings.NewReader("image-bytes"))
	require.NoError(t, err)
	require.Equal(t, "testuser1/photo.jpg", path)

	reader, err := store.Open(context.Background(), path)
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, "image-bytes", string(content))

	info, err := store.Stat(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, int64(len("image-bytes")), info.Size)
}

func TestFilesystemPhotoStoreSaveReplacesPreviousPhoto(t *testing.T) {
	root := t.TempDir()
	store, err := NewFilesystemPhotoStore(root)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "swapper", "one.png", strings.NewReader("png"))
	require.NoError(t, err)

	path, err := store.Save(context.Background(), "swapper", "two.jpeg", strings.NewReader("jpg"))
	require.NoError(t, err)
	require.Equal(t, "swapper/photo.jpg", path)

	_, err = os.Stat(filepath.Join(root, "swapper", "photo.png"))
	require.True(t, os.IsNotExist(err))
}

func TestFilesystemPhotoStoreRejectsUnknownExtensions(t *testing.T) {
	store, err := NewFilesystemPhotoStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "evil", "payload.exe", strings.NewReader("nope"))
	require.ErrorIs(t, err, ErrUnsupportedPhotoType)
}

func TestFilesystemPhotoStoreSweepRemovesOrphans(t *testing.T) {
	root := t.TempDir()
	store, err := NewFilesystemPhotoStore(root)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "keeper", "a.jpg", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = store.Save(context.Background(), "goner", "b.jpg", strings.NewReader("y"))
	require.NoError(t, err)

	removed, err := store.Sweep(context.Background(), map[string]struct{}{"keeper": {}})
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(root, "keeper"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "goner"))
	require.True(t, os.IsNotExist(err))
}

func TestFilesystemPhotoStoreDeleteRemovesUserDir(t *testing.T) {
	root := t.TempDir()
	store, err := NewFilesystemPhotoStore(root)
	require.NoError(t, err)

	path, err := store.Save(context.Background(), "leaver", "c.gif", strings.NewReader("gif"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), path))

	_, err = os.Stat(filepath.Join(root, "leaver"))
	require.True(t, os.IsNotExist(err))
}

func TestSanitizeUsername(t *testing.T) {
	require.Equal(t, "budi-istiadi", SanitizeUsername("Budi Istiadi"))
	require.Equal(t, "safe_name.v2", SanitizeUsername("safe_name.v2"))
	require.Equal(t, "etc-passwd", SanitizeUsername("../etc/passwd"))
}
