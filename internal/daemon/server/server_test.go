package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/inbox/internal/daemon/engine"
	"github.com/grovetools/inbox/internal/inbox"
	"github.com/grovetools/inbox/pkg/api"
	"github.com/grovetools/inbox/pkg/badge"
	"github.com/grovetools/inbox/pkg/lemmy"
	"github.com/grovetools/inbox/pkg/session"
	"github.com/grovetools/inbox/pkg/visibility"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAPI struct{}

func (staticAPI) GetUnreadCount(ctx context.Context, auth string) (lemmy.GetUnreadCountResponse, error) {
	return lemmy.GetUnreadCountResponse{Replies: 2, Mentions: 1}, nil
}

func (staticAPI) GetReportCount(ctx context.Context, auth string) (lemmy.GetReportCountResponse, error) {
	return lemmy.GetReportCountResponse{PostReports: 1, CommentReports: 2}, nil
}

func (staticAPI) GetUnreadRegistrationApplicationCount(ctx context.Context, auth string) (lemmy.GetUnreadRegistrationApplicationCountResponse, error) {
	return lemmy.GetUnreadRegistrationApplicationCountResponse{RegistrationApplications: 1500}, nil
}

type adminSession struct{}

func (adminSession) Current() session.Snapshot {
	info := &lemmy.MyUserInfo{}
	info.LocalUserView.Person = lemmy.Person{ID: 1, Name: "admin", Admin: true}
	return session.Snapshot{Token: "jwt", PersonID: 1, MyUser: info}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server, *visibility.Tracker) {
	t.Helper()
	logger := logrus.NewEntry(logrus.New())
	tracker := visibility.NewTracker(visibility.Visible)

	h := inbox.NewHandle(func() *inbox.Service {
		return inbox.New(staticAPI{}, adminSession{}, tracker)
	})

	srv := New(logger)
	srv.SetEngine(engine.New(h, logger))
	srv.SetVisibility(tracker)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts, tracker
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	_, ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEngineRequired(t *testing.T) {
	srv := New(logrus.NewEntry(logrus.New()))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/counts")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCountsBeforeAndAfterRefresh(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/counts")
	require.NoError(t, err)
	var before api.Counts
	decode(t, resp, &before)
	assert.Equal(t, badge.Counts{}, before.Counts)
	assert.True(t, before.Viewer.Admin)

	resp, err = http.Post(ts.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	var after api.Counts
	decode(t, resp, &after)
	assert.Equal(t, badge.Counts{Inbox: 3, Reports: 3, Applications: 1500}, after.Counts)
	require.Len(t, after.Badges, 3)
	assert.Equal(t, "1.5K", after.Badges[2].Text)

	resp, err = http.Get(ts.URL + "/api/slots")
	require.NoError(t, err)
	var slots map[string]struct {
		State string `json:"state"`
	}
	decode(t, resp, &slots)
	assert.Equal(t, "success", slots["inbox"].State)
	assert.Equal(t, "success", slots["applications"].State)
}

func TestVisibility(t *testing.T) {
	_, ts, tracker := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/visibility", "application/json", strings.NewReader(`{"state":"hidden"}`))
	require.NoError(t, err)
	var got api.Visibility
	decode(t, resp, &got)
	assert.Equal(t, visibility.Hidden, got.State)
	assert.False(t, tracker.Visible())

	resp, err = http.Get(ts.URL + "/api/visibility")
	require.NoError(t, err)
	decode(t, resp, &got)
	assert.Equal(t, visibility.Hidden, got.State)

	resp, err = http.Post(ts.URL+"/api/visibility", "application/json", strings.NewReader(`{"state":"minimised"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConfig(t *testing.T) {
	srv, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/config")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	srv.SetRunningConfig(&api.RunningConfig{Instance: "https://lemmy.ml", PollInterval: 30 * time.Second})
	resp, err = http.Get(ts.URL + "/api/config")
	require.NoError(t, err)
	var cfg api.RunningConfig
	decode(t, resp, &cfg)
	assert.Equal(t, "https://lemmy.ml", cfg.Instance)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
}

func TestStream(t *testing.T) {
	_, ts, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan api.Counts, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var c api.Counts
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &c) == nil {
				events <- c
			}
		}
	}()

	initial := <-events
	assert.Equal(t, 0, initial.Counts.Inbox)

	refresh, err := http.Post(ts.URL+"/api/refresh", "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	refresh.Body.Close()

	for {
		select {
		case c := <-events:
			if c.Counts.Applications == 1500 {
				return
			}
		case <-ctx.Done():
			t.Fatal("no update with final counts")
		}
	}
}

func TestWebSocket(t *testing.T) {
	_, ts, tracker := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var initial api.Counts
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, visibility.Visible, initial.Visibility)

	require.NoError(t, conn.WriteJSON(api.Visibility{State: visibility.Hidden}))

	var afterHide api.Counts
	require.NoError(t, conn.ReadJSON(&afterHide))
	assert.Equal(t, visibility.Hidden, afterHide.Visibility)
	assert.False(t, tracker.Visible())
}

// gatedAPI holds every unread count request until release is closed or
// the request's context ends.
type gatedAPI struct {
	staticAPI
	started chan struct{}
	release chan struct{}
}

func (g gatedAPI) GetUnreadCount(ctx context.Context, auth string) (lemmy.GetUnreadCountResponse, error) {
	g.started <- struct{}{}
	select {
	case <-ctx.Done():
		return lemmy.GetUnreadCountResponse{}, ctx.Err()
	case <-g.release:
		return lemmy.GetUnreadCountResponse{Replies: 7}, nil
	}
}

func TestRefreshOutlivesClient(t *testing.T) {
	gate := gatedAPI{started: make(chan struct{}, 1), release: make(chan struct{})}
	logger := logrus.NewEntry(logrus.New())
	h := inbox.NewHandle(func() *inbox.Service {
		return inbox.New(gate, adminSession{}, visibility.Always{})
	})
	srv := New(logger)
	srv.SetEngine(engine.New(h, logger))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.URL+"/api/refresh", nil)
	require.NoError(t, err)
	errc := make(chan error, 1)
	go func() {
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
		}
		errc <- err
	}()

	<-gate.started
	cancel()
	require.Error(t, <-errc)
	close(gate.release)

	svc := h.Get()
	assert.Eventually(t, func() bool {
		return svc.Counts() == badge.Counts{Inbox: 7, Reports: 3, Applications: 1500}
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "success", svc.Slots().Inbox.Kind().String())
}

func TestWebSocketOrigins(t *testing.T) {
	srv, ts, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"

	dial := func(origin string) (int, error) {
		header := http.Header{}
		if origin != "" {
			header.Set("Origin", origin)
		}
		conn, resp, err := websocket.DefaultDialer.Dial(url, header)
		status := 0
		if resp != nil {
			status = resp.StatusCode
			resp.Body.Close()
		}
		if conn != nil {
			conn.Close()
		}
		return status, err
	}

	_, err := dial("")
	assert.NoError(t, err, "clients without an Origin are allowed")

	_, err = dial(ts.URL)
	assert.NoError(t, err, "same origin is allowed")

	status, err := dial("https://lemmy.ml")
	assert.Error(t, err)
	assert.Equal(t, http.StatusForbidden, status)

	srv.SetAllowedOrigins([]string{"https://lemmy.ml/"})
	_, err = dial("https://lemmy.ml")
	assert.NoError(t, err)

	status, _ = dial("https://evil.example")
	assert.Equal(t, http.StatusForbidden, status)

	srv.SetAllowedOrigins([]string{"*"})
	_, err = dial("https://evil.example")
	assert.NoError(t, err)
}
