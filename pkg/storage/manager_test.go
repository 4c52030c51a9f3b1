package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var captured = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func TestFileName(t *testing.T) {
	assert.Equal(t, "jane-doe_20240309_140507.pdf", FileName("jane-doe", captured))
}

func TestManagerSave(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	require.NoError(t, err)
	assert.Zero(t, manager.Count())
	assert.False(t, manager.Has("jane-doe"))

	data := []byte("%PDF-1.4 test")
	path, err := manager.Save(bytes.NewReader(data), "jane-doe", captured)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "jane-doe_20240309_140507.pdf"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, content)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	assert.True(t, manager.Has("jane-doe"))
	latest, ok := manager.Latest("jane-doe")
	assert.True(t, ok)
	assert.Equal(t, path, latest)
	assert.Equal(t, 1, manager.Count())
}

func TestManagerAdopt(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	require.NoError(t, err)

	staging, err := manager.StagingDir()
	require.NoError(t, err)
	src := filepath.Join(staging, "a1b2c3-guid")
	require.NoError(t, os.WriteFile(src, []byte("pdf"), 0644))

	path, err := manager.Adopt(src, "john", captured)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "john_20240309_140507.pdf"), path)

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	assert.True(t, manager.Has("john"))
}

func TestManagerAdoptMissingSource(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)
	_, err = manager.Adopt(filepath.Join(t.TempDir(), "missing"), "john", captured)
	assert.Error(t, err)
	assert.False(t, manager.Has("john"))
}

func TestManagerIndexesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"jane-doe_20240101_000000.pdf",
		"jane-doe_20240202_000000.pdf",
		"john_20240101_120000.pdf",
		"jos%C3%A9-1_20240303_080000.pdf",
		"notes.txt",
		"broken.pdf",
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("x"), 0644))
	}

	manager, err := NewManager(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, manager.Count())
	assert.True(t, manager.Has("jos%C3%A9-1"))

	latest, ok := manager.Latest("jane-doe")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "jane-doe_20240202_000000.pdf"), latest)
	assert.False(t, manager.Has("broken"))
}

func TestNewManagerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "downloads")
	manager, err := NewManager(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, manager.GetOutputDir())
	assert.DirExists(t, dir)
}
