package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/inbox/internal/daemon/engine"
	"github.com/grovetools/inbox/internal/daemon/server"
	"github.com/grovetools/inbox/internal/inbox"
	"github.com/grovetools/inbox/pkg/api"
	"github.com/grovetools/inbox/pkg/lemmy"
	"github.com/grovetools/inbox/pkg/session"
	"github.com/grovetools/inbox/pkg/visibility"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAPI struct{}

func (staticAPI) GetUnreadCount(ctx context.Context, auth string) (lemmy.GetUnreadCountResponse, error) {
	return lemmy.GetUnreadCountResponse{PrivateMessages: 4}, nil
}

func (staticAPI) GetReportCount(ctx context.Context, auth string) (lemmy.GetReportCountResponse, error) {
	return lemmy.GetReportCountResponse{}, nil
}

func (staticAPI) GetUnreadRegistrationApplicationCount(ctx context.Context, auth string) (lemmy.GetUnreadRegistrationApplicationCountResponse, error) {
	return lemmy.GetUnreadRegistrationApplicationCountResponse{}, nil
}

type userSession struct{}

func (userSession) Current() session.Snapshot {
	return session.Snapshot{Token: "jwt", MyUser: &lemmy.MyUserInfo{}}
}

func newService() *inbox.Service {
	return inbox.New(staticAPI{}, userSession{}, visibility.Always{})
}

// startDaemon serves the daemon API on a socket in a short temp dir
// (unix socket paths are length-limited).
func startDaemon(t *testing.T) (string, *visibility.Tracker) {
	t.Helper()
	dir, err := os.MkdirTemp("", "inboxd")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	sock := filepath.Join(dir, "d.sock")

	logger := logrus.NewEntry(logrus.New())
	tracker := visibility.NewTracker(visibility.Visible)
	h := inbox.NewHandle(newService)

	srv := server.New(logger)
	srv.SetEngine(engine.New(h, logger))
	srv.SetVisibility(tracker)
	srv.SetRunningConfig(&api.RunningConfig{Instance: "https://lemmy.test"})

	go func() { _ = srv.ListenAndServe(sock) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	require.Eventually(t, func() bool { return Connect(sock) != nil }, 2*time.Second, 10*time.Millisecond)
	return sock, tracker
}

func TestRemoteClient(t *testing.T) {
	sock, tracker := startDaemon(t)
	client := Connect(sock)
	require.NotNil(t, client)
	defer client.Close()

	ctx := context.Background()
	assert.True(t, client.IsRunning())

	counts, err := client.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Counts.Inbox)

	counts, err = client.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Counts.Inbox)
	require.Len(t, counts.Badges, 1)
	assert.Equal(t, "4", counts.Badges[0].Text)

	require.NoError(t, client.SetVisibility(ctx, visibility.Hidden))
	assert.False(t, tracker.Visible())

	cfg, err := client.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://lemmy.test", cfg.Instance)
}

func TestRemoteStream(t *testing.T) {
	sock, _ := startDaemon(t)
	client := Connect(sock)
	require.NotNil(t, client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.StreamCounts(ctx)
	require.NoError(t, err)

	initial := <-stream
	assert.Equal(t, 0, initial.Counts.Inbox)

	_, err = client.Refresh(ctx)
	require.NoError(t, err)

	select {
	case update := <-stream:
		assert.Equal(t, 4, update.Counts.Inbox)
	case <-ctx.Done():
		t.Fatal("no update received")
	}
}

func TestConnectWithoutDaemon(t *testing.T) {
	assert.Nil(t, Connect(filepath.Join(t.TempDir(), "missing.sock")))
}

func TestLocalClient(t *testing.T) {
	client := NewLocalClient(newService())
	ctx := context.Background()

	counts, err := client.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Counts.Inbox)

	counts, err = client.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Counts.Inbox)

	_, err = client.StreamCounts(ctx)
	assert.Error(t, err)
	assert.False(t, client.IsRunning())
	assert.NoError(t, client.SetVisibility(ctx, visibility.Hidden))
}
