// Package session tracks who is logged in to the instance: the auth token
// and the roles (site admin, community moderator) that gate which unread
// counts are fetched.
package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/inbox/errors"
	"github.com/grovetools/inbox/pkg/lemmy"
	"github.com/sirupsen/logrus"
)

// Snapshot is an immutable view of the session at one point in time.
type Snapshot struct {
	Token     string            `json:"-"`
	PersonID  int               `json:"person_id,omitempty"`
	ExpiresAt time.Time         `json:"expires_at,omitempty"`
	MyUser    *lemmy.MyUserInfo `json:"my_user,omitempty"`
}

// LoggedIn reports whether the snapshot carries an auth token.
func (s Snapshot) LoggedIn() bool { return s.Token != "" }

// IsAdmin reports whether the user is a site admin.
func (s Snapshot) IsAdmin() bool {
	return s.MyUser != nil && s.MyUser.LocalUserView.Person.Admin
}

// Moderates returns the communities the user moderates.
func (s Snapshot) Moderates() []lemmy.CommunityModeratorView {
	if s.MyUser == nil {
		return nil
	}
	return s.MyUser.Moderates
}

// IsModerator reports whether the user is an admin or moderates at least
// one community.
func (s Snapshot) IsModerator() bool {
	return s.IsAdmin() || len(s.Moderates()) > 0
}

// Provider supplies the current session.
type Provider interface {
	Current() Snapshot
}

// SiteFetcher is the part of the instance API used to learn the user's roles.
type SiteFetcher interface {
	GetSite(ctx context.Context, auth string) (lemmy.GetSiteResponse, error)
}

// Store holds the session for the lifetime of the process and persists
// the token to a file so it survives restarts.
type Store struct {
	mu        sync.RWMutex
	snap      Snapshot
	tokenFile string
	now       func() time.Time
	logger    *logrus.Entry
}

// NewStore creates an anonymous Store backed by tokenFile.
// An empty tokenFile keeps the token in memory only.
func NewStore(tokenFile string, logger *logrus.Entry) *Store {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{
		tokenFile: tokenFile,
		now:       time.Now,
		logger:    logger,
	}
}

// TokenFile returns the path the token is persisted to.
func (s *Store) TokenFile() string { return s.tokenFile }

// Current returns the session. An expired token reads as anonymous.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.snap.ExpiresAt.IsZero() && !s.now().Before(s.snap.ExpiresAt) {
		return Snapshot{}
	}
	return s.snap
}

// Login replaces the session with a new token. Roles are unknown until
// the next Refresh.
func (s *Store) Login(token string) error {
	if err := s.setToken(token); err != nil {
		return err
	}
	if s.tokenFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.tokenFile), 0700); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create token directory").
			WithDetail("path", s.tokenFile)
	}
	if err := os.WriteFile(s.tokenFile, []byte(token+"\n"), 0600); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write token file").
			WithDetail("path", s.tokenFile)
	}
	return nil
}

// Load reads the token file. A missing or empty file leaves the session
// anonymous, and so does a token that cannot be parsed.
func (s *Store) Load() error {
	if s.tokenFile == "" {
		return nil
	}
	data, err := os.ReadFile(s.tokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			s.reset()
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to read token file").
			WithDetail("path", s.tokenFile)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		s.reset()
		return nil
	}

	s.mu.RLock()
	same := token == s.snap.Token
	s.mu.RUnlock()
	if same {
		return nil
	}
	if err := s.setToken(token); err != nil {
		// The token in use was replaced on disk; stop using it.
		s.reset()
		return err
	}
	return nil
}

// Clear logs out: the token is dropped from memory and the token file is removed.
func (s *Store) Clear() error {
	s.reset()
	if s.tokenFile == "" {
		return nil
	}
	if err := os.Remove(s.tokenFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to remove token file").
			WithDetail("path", s.tokenFile)
	}
	return nil
}

// SetUser records the roles for the current token.
func (s *Store) SetUser(info *lemmy.MyUserInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.MyUser = info
}

// Refresh fetches the user's roles from the instance. On failure the
// previous roles are kept.
func (s *Store) Refresh(ctx context.Context, api SiteFetcher) error {
	snap := s.Current()
	if !snap.LoggedIn() {
		return nil
	}

	site, err := api.GetSite(ctx, snap.Token)
	if err != nil {
		return err
	}
	if site.MyUser == nil {
		return errors.New(errors.ErrCodeNotLoggedIn, "instance did not recognise the auth token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The token may have changed while the request was in flight.
	if s.snap.Token != snap.Token {
		return nil
	}
	s.snap.MyUser = site.MyUser
	s.logger.WithFields(logrus.Fields{
		"admin":     s.snap.IsAdmin(),
		"moderates": len(s.snap.Moderates()),
	}).Debug("Session roles refreshed")
	return nil
}

func (s *Store) setToken(token string) error {
	claims, err := ParseToken(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{
		Token:     token,
		PersonID:  claims.PersonID,
		ExpiresAt: claims.ExpiresAt,
	}
	s.logger.WithField("person_id", claims.PersonID).Info("Session loaded")
	return nil
}

func (s *Store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Token != "" {
		s.logger.Info("Session cleared")
	}
	s.snap = Snapshot{}
}

var _ Provider = (*Store)(nil)
