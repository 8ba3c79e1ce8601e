package session

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/grovetools/inbox/errors"
	"github.com/grovetools/inbox/pkg/lemmy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, personID int, expires time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:  strconv.Itoa(personID),
		Issuer:   "lemmy.test",
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	if !expires.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expires)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func userInfo(admin bool, communities ...string) *lemmy.MyUserInfo {
	info := &lemmy.MyUserInfo{}
	info.LocalUserView.Person = lemmy.Person{ID: 1, Name: "alice", Admin: admin}
	for i, name := range communities {
		info.Moderates = append(info.Moderates, lemmy.CommunityModeratorView{
			Community: lemmy.Community{ID: i + 1, Name: name},
		})
	}
	return info
}

type fakeSite struct {
	mu    sync.Mutex
	resp  lemmy.GetSiteResponse
	err   error
	calls int
}

func (f *fakeSite) GetSite(ctx context.Context, auth string) (lemmy.GetSiteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.resp, f.err
}

func TestParseToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	claims, err := ParseToken(signToken(t, 42, exp))
	require.NoError(t, err)
	assert.Equal(t, 42, claims.PersonID)
	assert.Equal(t, "lemmy.test", claims.Issuer)
	assert.True(t, claims.ExpiresAt.Equal(exp))

	_, err = ParseToken("not-a-jwt")
	assert.True(t, errors.Is(err, errors.ErrCodeTokenInvalid))
}

func TestSnapshotRoles(t *testing.T) {
	tests := []struct {
		name      string
		snap      Snapshot
		admin     bool
		moderator bool
	}{
		{"anonymous", Snapshot{}, false, false},
		{"roles unknown", Snapshot{Token: "t"}, false, false},
		{"plain user", Snapshot{Token: "t", MyUser: userInfo(false)}, false, false},
		{"moderator", Snapshot{Token: "t", MyUser: userInfo(false, "golang")}, false, true},
		{"admin", Snapshot{Token: "t", MyUser: userInfo(true)}, true, true},
		{"admin moderator", Snapshot{Token: "t", MyUser: userInfo(true, "golang")}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.admin, tt.snap.IsAdmin())
			assert.Equal(t, tt.moderator, tt.snap.IsModerator())
		})
	}
}

func TestStoreLoginPersistsAndLoads(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "inboxd", "auth")
	token := signToken(t, 7, time.Time{})

	st := NewStore(tokenFile, nil)
	require.NoError(t, st.Login(token))
	assert.Equal(t, token, st.Current().Token)
	assert.Equal(t, 7, st.Current().PersonID)

	info, err := os.Stat(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded := NewStore(tokenFile, nil)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, token, reloaded.Current().Token)
}

func TestStoreLoadMissingFileIsAnonymous(t *testing.T) {
	st := NewStore(filepath.Join(t.TempDir(), "auth"), nil)
	require.NoError(t, st.Load())
	assert.False(t, st.Current().LoggedIn())
}

func TestStoreLoginRejectsGarbage(t *testing.T) {
	st := NewStore("", nil)
	err := st.Login("garbage")
	assert.True(t, errors.Is(err, errors.ErrCodeTokenInvalid))
	assert.False(t, st.Current().LoggedIn())
}

func TestStoreLoadReplacedByGarbageDropsSession(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "auth")
	st := NewStore(tokenFile, nil)
	require.NoError(t, st.Login(signToken(t, 7, time.Time{})))
	st.SetUser(userInfo(true))

	require.NoError(t, os.WriteFile(tokenFile, []byte("not-a-jwt\n"), 0600))
	err := st.Load()
	assert.True(t, errors.Is(err, errors.ErrCodeTokenInvalid))
	assert.False(t, st.Current().LoggedIn())
	assert.False(t, st.Current().IsAdmin())
}

func TestStoreClear(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "auth")
	st := NewStore(tokenFile, nil)
	require.NoError(t, st.Login(signToken(t, 1, time.Time{})))
	st.SetUser(userInfo(true))

	require.NoError(t, st.Clear())
	assert.False(t, st.Current().LoggedIn())
	assert.False(t, st.Current().IsAdmin())
	_, err := os.Stat(tokenFile)
	assert.True(t, os.IsNotExist(err))

	// Clearing twice is fine.
	require.NoError(t, st.Clear())
}

func TestStoreExpiredTokenReadsAnonymous(t *testing.T) {
	now := time.Now()
	st := NewStore("", nil)
	require.NoError(t, st.Login(signToken(t, 1, now.Add(time.Minute))))
	assert.True(t, st.Current().LoggedIn())

	st.now = func() time.Time { return now.Add(2 * time.Minute) }
	assert.False(t, st.Current().LoggedIn())
}

func TestStoreRefresh(t *testing.T) {
	st := NewStore("", nil)
	api := &fakeSite{resp: lemmy.GetSiteResponse{MyUser: userInfo(false, "golang")}}

	// Anonymous sessions never call the instance.
	require.NoError(t, st.Refresh(context.Background(), api))
	assert.Equal(t, 0, api.calls)

	require.NoError(t, st.Login(signToken(t, 1, time.Time{})))
	require.NoError(t, st.Refresh(context.Background(), api))
	assert.Equal(t, 1, api.calls)
	assert.True(t, st.Current().IsModerator())
	assert.False(t, st.Current().IsAdmin())

	// A failed refresh keeps the previous roles.
	api.err = errors.HTTPStatus(lemmy.PathSite, 502)
	require.Error(t, st.Refresh(context.Background(), api))
	assert.True(t, st.Current().IsModerator())

	// A response without my_user means the token was not accepted.
	api.err = nil
	api.resp = lemmy.GetSiteResponse{}
	err := st.Refresh(context.Background(), api)
	assert.True(t, errors.Is(err, errors.ErrCodeNotLoggedIn))
	assert.True(t, st.Current().IsModerator())
}

func TestRefresherRunsImmediately(t *testing.T) {
	st := NewStore("", nil)
	require.NoError(t, st.Login(signToken(t, 1, time.Time{})))
	api := &fakeSite{resp: lemmy.GetSiteResponse{MyUser: userInfo(true)}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = NewRefresher(st, api, time.Hour).Run(ctx)
	}()

	assert.Eventually(t, func() bool { return st.Current().IsAdmin() }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func TestWatcherPicksUpLoginAndLogout(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "auth")
	st := NewStore(tokenFile, nil)

	changes := make(chan Snapshot, 4)
	w := NewWatcher(st, 20*time.Millisecond, func(s Snapshot) { changes <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	// Give fsnotify a moment to register the directory.
	time.Sleep(50 * time.Millisecond)

	token := signToken(t, 3, time.Time{})
	require.NoError(t, os.WriteFile(tokenFile, []byte(token), 0600))

	select {
	case s := <-changes:
		assert.Equal(t, token, s.Token)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for login")
	}

	require.NoError(t, os.Remove(tokenFile))
	select {
	case s := <-changes:
		assert.False(t, s.LoggedIn())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for logout")
	}
}
