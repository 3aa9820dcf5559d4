package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrefersTaskRepository(t *testing.T) {
	r := NewResolver(t.TempDir(), slog.Default())

	dir, err := r.Resolve("/srv/repos/app", "/srv/boards/b1", "exec-1")

	require.NoError(t, err)
	assert.Equal(t, "/srv/repos/app", dir)
}

func TestResolveFallsBackToBoardDir(t *testing.T) {
	r := NewResolver(t.TempDir(), slog.Default())

	dir, err := r.Resolve("", "/srv/boards/b1", "exec-1")

	require.NoError(t, err)
	assert.Equal(t, "/srv/boards/b1", dir)
}

func TestResolveCreatesScratchWorkspace(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root, slog.Default())

	dir, err := r.Resolve("", "", "exec-1")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "exec-1"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
