package logutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grovetools/inbox/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLogFiles(t *testing.T) {
	t.Setenv("INBOXD_HOME", t.TempDir())

	files, err := FindLogFiles(logging.Config{}, nil)
	require.NoError(t, err)
	assert.Empty(t, files, "a missing log directory is not an error")

	dir := LogsDir()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range []string{
		"inbox-2026-01-01.log",
		"inbox-2026-01-03.log",
		"server-2026-01-02.log",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	files, err = FindLogFiles(logging.Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"inbox":  filepath.Join(dir, "inbox-2026-01-03.log"),
		"server": filepath.Join(dir, "server-2026-01-02.log"),
	}, files)

	files, err = FindLogFiles(logging.Config{}, []string{"server"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"server": filepath.Join(dir, "server-2026-01-02.log")}, files)
}

func TestFindLogFilesSink(t *testing.T) {
	cfg := logging.Config{File: logging.FileSinkConfig{Enabled: true, Path: "/var/log/inboxd.log"}}
	files, err := FindLogFiles(cfg, []string{"ignored"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{FileComponent: "/var/log/inboxd.log"}, files)
}

func TestLastLinesOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.log")
	require.NoError(t, os.WriteFile(path, []byte("a\nbb\nccc\n"), 0o644))

	tests := []struct {
		n    int
		want int64
	}{
		{-1, 0},
		{0, 9},
		{1, 5},
		{2, 2},
		{3, 0},
		{10, 0},
	}
	for _, tt := range tests {
		got, err := LastLinesOffset(path, tt.n)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "n=%d", tt.n)
	}
}
