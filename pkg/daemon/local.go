package daemon

import (
	"context"
	"errors"

	"github.com/grovetools/inbox/internal/inbox"
	"github.com/grovetools/inbox/pkg/api"
	"github.com/grovetools/inbox/pkg/badge"
	"github.com/grovetools/inbox/pkg/visibility"
)

// LocalClient implements Client by running fetch cycles in-process.
// This is used when the daemon is not running: counts start at zero and
// are filled in by Refresh.
type LocalClient struct {
	svc *inbox.Service
}

// NewLocalClient creates a LocalClient around svc.
func NewLocalClient(svc *inbox.Service) *LocalClient {
	return &LocalClient{svc: svc}
}

// Counts returns the totals from the most recent in-process cycle.
func (c *LocalClient) Counts(ctx context.Context) (*api.Counts, error) {
	counts := c.svc.Counts()
	viewer := c.svc.Viewer()
	return &api.Counts{
		Counts:     counts,
		Viewer:     viewer,
		Badges:     badge.For(viewer, counts),
		Visibility: visibility.Visible,
	}, nil
}

// Refresh runs a fetch cycle directly against the instance.
func (c *LocalClient) Refresh(ctx context.Context) (*api.Counts, error) {
	c.svc.FetchUnreadCounts(ctx)
	return c.Counts(ctx)
}

// StreamCounts returns an error for LocalClient since streaming is only available via daemon.
func (c *LocalClient) StreamCounts(ctx context.Context) (<-chan api.Counts, error) {
	return nil, errors.New("streaming not available in local mode; start the daemon for live updates")
}

// SetVisibility is a no-op for LocalClient since nothing polls in the background.
func (c *LocalClient) SetVisibility(ctx context.Context, state visibility.State) error {
	return nil
}

// GetConfig returns an error for LocalClient since config is only available via daemon.
func (c *LocalClient) GetConfig(ctx context.Context) (*api.RunningConfig, error) {
	return nil, errors.New("config not available in local mode; start the daemon to view running config")
}

// IsRunning returns false since this is the local fallback client.
func (c *LocalClient) IsRunning() bool {
	return false
}

// Close is a no-op for LocalClient.
func (c *LocalClient) Close() error {
	return nil
}

// Ensure LocalClient implements Client interface.
var _ Client = (*LocalClient)(nil)
