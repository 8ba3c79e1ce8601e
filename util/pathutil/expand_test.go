package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("INBOXD_TEST_DIR", "/srv/inbox")
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/state/auth", filepath.Join(home, "state", "auth")},
		{"$INBOXD_TEST_DIR/auth", "/srv/inbox/auth"},
		{"${INBOXD_TEST_DIR}/logs/x.log", "/srv/inbox/logs/x.log"},
		{"relative/auth", filepath.Join(cwd, "relative", "auth")},
	}
	for _, tt := range tests {
		got, err := Expand(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
