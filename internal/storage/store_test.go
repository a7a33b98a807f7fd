package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	store, err := NewStore(Config{
		TempDir:   filepath.Join(root, "tmp"),
		UploadDir: filepath.Join(root, "uploads"),
	})
	require.NoError(t, err)
	return store
}

func TestSaveTempUsesOpaqueName(t *testing.T) {
	store := newTestStore(t)

	tmpPath, err := store.SaveTemp(strings.NewReader("content"), "holiday.mp4")
	require.NoError(t, err)

	name := filepath.Base(tmpPath)
	assert.NotContains(t, name, "holiday")
	assert.True(t, strings.HasSuffix(name, "_mp4"))

	data, err := os.ReadFile(tmpPath)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestPromoteMovesIntoOrgDir(t *testing.T) {
	store := newTestStore(t)

	tmpPath, err := store.SaveTemp(strings.NewReader("content"), "clip.mp4")
	require.NoError(t, err)

	dest, err := store.Promote(tmpPath, 42, "clip.mp4")
	require.NoError(t, err)

	assert.Contains(t, dest, string(filepath.Separator)+"42"+string(filepath.Separator))
	assert.True(t, strings.HasSuffix(dest, "_clip.mp4"))

	_, err = os.Stat(tmpPath)
	assert.True(t, os.IsNotExist(err), "temp file should be gone after promote")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestPromoteMissingTempFails(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Promote(filepath.Join(t.TempDir(), "gone"), 42, "clip.mp4")
	assert.Error(t, err)
}

func TestPromoteSanitizesFilename(t *testing.T) {
	store := newTestStore(t)

	tmpPath, err := store.SaveTemp(strings.NewReader("x"), "evil.mp4")
	require.NoError(t, err)

	dest, err := store.Promote(tmpPath, 7, "../../etc/passwd")
	require.NoError(t, err)
	assert.NotContains(t, dest, "..")
	assert.True(t, strings.HasSuffix(dest, "_passwd"))
}

func TestOpenReturnsSize(t *testing.T) {
	store := newTestStore(t)

	tmpPath, err := store.SaveTemp(strings.NewReader("12345"), "clip.mp4")
	require.NoError(t, err)
	dest, err := store.Promote(tmpPath, 1, "clip.mp4")
	require.NoError(t, err)

	reader, size, err := store.Open(dest)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, int64(5), size)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))
}

func TestDiscardMissingIsQuiet(t *testing.T) {
	store := newTestStore(t)
	store.Discard("")
	store.Discard(filepath.Join(t.TempDir(), "missing"))
}
