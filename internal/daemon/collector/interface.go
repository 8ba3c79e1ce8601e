// Package collector defines the background workers the daemon runs.
package collector

import (
	"context"
)

// Collector is a background worker that keeps part of the daemon's state fresh.
type Collector interface {
	// Name returns the collector's name for logging.
	Name() string

	// Run starts the collector. It should block until context is canceled.
	Run(ctx context.Context) error
}
