package session

import (
	"context"
	"time"

	"github.com/grovetools/inbox/errors"
	"github.com/sirupsen/logrus"
)

// Refresher periodically re-reads the user's roles so that a granted or
// revoked admin/moderator status reaches the next fetch cycle.
type Refresher struct {
	store    *Store
	api      SiteFetcher
	interval time.Duration
	logger   *logrus.Entry
}

// NewRefresher creates a Refresher.
func NewRefresher(store *Store, api SiteFetcher, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Refresher{
		store:    store,
		api:      api,
		interval: interval,
		logger:   store.logger.WithField("worker", "session"),
	}
}

// Name returns the worker's name.
func (r *Refresher) Name() string { return "session" }

// Run refreshes once, then on every tick until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	refresh := func() {
		if err := r.store.Refresh(ctx, r.api); err != nil {
			r.logger.WithError(err).WithField("code", errors.GetCode(err)).Warn("Failed to refresh session roles")
		}
	}

	refresh()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			refresh()
		}
	}
}
