// Package daemon provides a client interface for reading unread counts.
// It implements a transparent fallback pattern: if inboxd is running, talk
// to it over its socket; if not, run a fetch cycle in-process.
package daemon

import (
	"context"

	"github.com/grovetools/inbox/pkg/api"
	"github.com/grovetools/inbox/pkg/visibility"
)

// Client defines the interface consumers use to read unread counts.
// Both RemoteClient (socket) and LocalClient (in-process) implement it.
type Client interface {
	// Counts returns the current derived totals and badges.
	Counts(ctx context.Context) (*api.Counts, error)

	// Refresh runs a fetch cycle now and returns the resulting counts.
	Refresh(ctx context.Context) (*api.Counts, error)

	// StreamCounts subscribes to count updates.
	// For LocalClient, this returns an error since streaming needs the daemon.
	StreamCounts(ctx context.Context) (<-chan api.Counts, error)

	// SetVisibility tells the poller whether anyone is looking.
	SetVisibility(ctx context.Context, state visibility.State) error

	// GetConfig returns the daemon's running configuration.
	GetConfig(ctx context.Context) (*api.RunningConfig, error)

	// IsRunning returns true if the daemon is available and responding.
	IsRunning() bool

	// Close cleans up any resources used by the client.
	Close() error
}
