// Package testutil provides a fake Lemmy instance and token helpers for
// tests that exercise inboxd end to end.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/grovetools/inbox/pkg/lemmy"
	"github.com/stretchr/testify/require"
)

// MintToken signs a JWT shaped like the ones Lemmy issues: the subject
// is the person id. A zero expires leaves the token without expiry.
func MintToken(t testing.TB, personID int, expires time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:  strconv.Itoa(personID),
		Issuer:   "lemmy.test",
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	if !expires.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expires)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("lemmy-test-secret"))
	require.NoError(t, err)
	return token
}

// UserInfo builds a my_user payload. Each community gets a sequential id.
func UserInfo(name string, admin bool, communities ...string) *lemmy.MyUserInfo {
	person := lemmy.Person{ID: 1, Name: name, Admin: admin}
	info := &lemmy.MyUserInfo{LocalUserView: lemmy.LocalUserView{Person: person}}
	for i, c := range communities {
		info.Moderates = append(info.Moderates, lemmy.CommunityModeratorView{
			Community: lemmy.Community{ID: i + 1, Name: c},
			Moderator: person,
		})
	}
	return info
}

// FakeLemmy serves the four endpoints inboxd calls. Requests whose auth
// does not match Token are rejected with not_logged_in, and the site
// endpoint omits my_user for them.
type FakeLemmy struct {
	*httptest.Server

	mu           sync.Mutex
	token        string
	user         *lemmy.MyUserInfo
	unread       lemmy.GetUnreadCountResponse
	reports      lemmy.GetReportCountResponse
	applications lemmy.GetUnreadRegistrationApplicationCountResponse
	siteDelay    time.Duration
	requests     []string
}

// NewFakeLemmy starts a fake instance that is closed when t finishes.
func NewFakeLemmy(t testing.TB) *FakeLemmy {
	t.Helper()
	f := &FakeLemmy{}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// SetSession makes token valid and associates it with user.
func (f *FakeLemmy) SetSession(token string, user *lemmy.MyUserInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	f.user = user
}

// SetCounts sets the unread totals returned by the count endpoints.
func (f *FakeLemmy) SetCounts(inbox, reports, applications int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unread = lemmy.GetUnreadCountResponse{Replies: inbox}
	f.reports = lemmy.GetReportCountResponse{PostReports: reports}
	f.applications = lemmy.GetUnreadRegistrationApplicationCountResponse{RegistrationApplications: applications}
}

// SetSiteDelay makes the site endpoint answer after d, like an instance
// that is slow to resolve my_user.
func (f *FakeLemmy) SetSiteDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.siteDelay = d
}

// Requests returns the API paths requested so far, without the /api/v3 prefix.
func (f *FakeLemmy) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *FakeLemmy) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v3")
	if path == lemmy.PathSite {
		f.mu.Lock()
		delay := f.siteDelay
		f.mu.Unlock()
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, path)
	authed := f.token != "" && r.URL.Query().Get("auth") == f.token

	var body interface{}
	switch path {
	case lemmy.PathSite:
		site := lemmy.GetSiteResponse{}
		if authed {
			site.MyUser = f.user
		}
		body = site
	case lemmy.PathUnreadCount:
		body = f.unread
	case lemmy.PathReportCount:
		body = f.reports
	case lemmy.PathRegistrationApplication:
		body = f.applications
	default:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if path != lemmy.PathSite && !authed {
		w.WriteHeader(http.StatusBadRequest)
		body = map[string]string{"error": "not_logged_in"}
	}
	json.NewEncoder(w).Encode(body)
}
