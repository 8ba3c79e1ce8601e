// Package inbox keeps the unread counts for the logged-in user up to date.
//
// A Service owns one request.State per source (inbox, reports, registration
// applications). Each fetch cycle refreshes the sources the caller's role
// entitles them to, one after another, and the derived totals are computed
// on read. Failures are absorbed into the slot they belong to and read as
// zero; they never propagate to callers.
package inbox

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/inbox/errors"
	"github.com/grovetools/inbox/pkg/badge"
	"github.com/grovetools/inbox/pkg/lemmy"
	"github.com/grovetools/inbox/pkg/request"
	"github.com/grovetools/inbox/pkg/session"
	"github.com/grovetools/inbox/pkg/visibility"
	"github.com/sirupsen/logrus"
)

// DefaultInterval is how often the poller refreshes the counts.
const DefaultInterval = 30 * time.Second

// API is the part of the instance client the Service calls.
type API interface {
	GetUnreadCount(ctx context.Context, auth string) (lemmy.GetUnreadCountResponse, error)
	GetReportCount(ctx context.Context, auth string) (lemmy.GetReportCountResponse, error)
	GetUnreadRegistrationApplicationCount(ctx context.Context, auth string) (lemmy.GetUnreadRegistrationApplicationCountResponse, error)
}

// Slots is a copy of the three request states.
type Slots struct {
	Inbox        request.State[lemmy.GetUnreadCountResponse]                        `json:"inbox"`
	Reports      request.State[lemmy.GetReportCountResponse]                        `json:"reports"`
	Applications request.State[lemmy.GetUnreadRegistrationApplicationCountResponse] `json:"applications"`
}

// Update is published to subscribers after a slot settles.
type Update struct {
	Source Source       `json:"source"`
	State  string       `json:"state"`
	Counts badge.Counts `json:"counts"`
}

// Service aggregates the unread counts for the current session.
type Service struct {
	api      API
	session  session.Provider
	visible  visibility.Signal
	interval time.Duration
	logger   *logrus.Entry

	inbox        request.Slot[lemmy.GetUnreadCountResponse]
	reports      request.Slot[lemmy.GetReportCountResponse]
	applications request.Slot[lemmy.GetUnreadRegistrationApplicationCountResponse]

	mu          sync.Mutex
	subscribers map[chan Update]struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service with all slots empty. Polling starts with Run.
func New(api API, sess session.Provider, visible visibility.Signal, opts ...Option) *Service {
	s := &Service{
		api:         api,
		session:     sess,
		visible:     visible,
		interval:    DefaultInterval,
		logger:      logrus.NewEntry(logrus.StandardLogger()),
		subscribers: make(map[chan Update]struct{}),
	}
	if s.visible == nil {
		s.visible = visibility.Always{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the worker's name.
func (s *Service) Name() string { return "inbox" }

// Interval returns the poll interval.
func (s *Service) Interval() time.Duration { return s.interval }

// UnreadInboxCount is replies + mentions + private messages, or 0 unless
// the last inbox fetch succeeded.
func (s *Service) UnreadInboxCount() int {
	return request.Match(s.inbox.Load(),
		zero, zero,
		lemmy.GetUnreadCountResponse.Total,
		func(*errors.InboxError) int { return 0 },
	)
}

// UnreadReportCount is post + comment + private message reports, or 0
// unless the last report fetch succeeded.
func (s *Service) UnreadReportCount() int {
	return request.Match(s.reports.Load(),
		zero, zero,
		lemmy.GetReportCountResponse.Total,
		func(*errors.InboxError) int { return 0 },
	)
}

// UnreadApplicationCount is the pending registration applications, or 0
// unless the last application fetch succeeded.
func (s *Service) UnreadApplicationCount() int {
	return request.Match(s.applications.Load(),
		zero, zero,
		lemmy.GetUnreadRegistrationApplicationCountResponse.Total,
		func(*errors.InboxError) int { return 0 },
	)
}

func zero() int { return 0 }

// IsModerator reports whether the current session is an admin or moderates
// at least one community.
func (s *Service) IsModerator() bool {
	return s.session.Current().IsModerator()
}

// IsAdmin reports whether the current session is a site admin.
func (s *Service) IsAdmin() bool {
	return s.session.Current().IsAdmin()
}

// Counts returns all three derived totals.
func (s *Service) Counts() badge.Counts {
	return badge.Counts{
		Inbox:        s.UnreadInboxCount(),
		Reports:      s.UnreadReportCount(),
		Applications: s.UnreadApplicationCount(),
	}
}

// Viewer describes the current session for badge decisions.
func (s *Service) Viewer() badge.Viewer {
	snap := s.session.Current()
	return badge.Viewer{
		LoggedIn:  snap.LoggedIn(),
		Moderator: snap.IsModerator(),
		Admin:     snap.IsAdmin(),
	}
}

// Slots returns the current request states.
func (s *Service) Slots() Slots {
	return Slots{
		Inbox:        s.inbox.Load(),
		Reports:      s.reports.Load(),
		Applications: s.applications.Load(),
	}
}

// FetchUnreadCounts runs one fetch cycle: inbox, then reports for
// moderators, then applications for admins, each awaited before the next.
// Without a session nothing is requested. Concurrent cycles are allowed;
// each slot keeps whichever response settled last.
func (s *Service) FetchUnreadCounts(ctx context.Context) {
	snap := s.session.Current()
	if !Plan(RoleOf(snap)).Has(SourceInbox) {
		return
	}
	auth := snap.Token
	log := s.logger.WithField("cycle", uuid.NewString())

	refresh(ctx, s, log, SourceInbox, &s.inbox, s.api.GetUnreadCount, auth)

	// Roles are read again after the inbox request settles.
	role := RoleOf(s.session.Current())
	plan := Plan(role)
	log.WithFields(logrus.Fields{"role": role.String(), "sources": plan}).Debug("Fetch cycle")

	if plan.Has(SourceReports) {
		refresh(ctx, s, log, SourceReports, &s.reports, s.api.GetReportCount, auth)
	}
	if plan.Has(SourceApplications) {
		refresh(ctx, s, log, SourceApplications, &s.applications, s.api.GetUnreadRegistrationApplicationCount, auth)
	}
}

func refresh[T any](
	ctx context.Context,
	s *Service,
	log *logrus.Entry,
	src Source,
	slot *request.Slot[T],
	fetch func(context.Context, string) (T, error),
	auth string,
) {
	slot.Store(request.Loading[T]())
	st := request.Wrap(ctx, func(ctx context.Context) (T, error) {
		return fetch(ctx, auth)
	})
	slot.Store(st)

	if err := st.Err(); err != nil {
		log.WithFields(logrus.Fields{
			"source": src,
			"code":   err.Code,
		}).WithError(err).Warn("Unread count fetch failed")
	}
	s.publish(Update{Source: src, State: st.Kind().String(), Counts: s.Counts()})
}

// PollOnce runs a fetch cycle unless the consumer surface is hidden.
// It reports whether a cycle ran.
func (s *Service) PollOnce(ctx context.Context) bool {
	if !s.visible.Visible() {
		s.logger.Debug("Skipping fetch cycle while hidden")
		return false
	}
	s.FetchUnreadCounts(ctx)
	return true
}

// Run polls once immediately and then every interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.PollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.PollOnce(ctx)
		}
	}
}

// Subscribe returns a channel that receives an Update each time a slot
// settles. Updates are dropped for subscribers that fall behind.
func (s *Service) Subscribe() chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Update, 16)
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Service) Unsubscribe(ch chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

func (s *Service) publish(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- u:
		default:
		}
	}
}
