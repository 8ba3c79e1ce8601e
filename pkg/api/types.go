// Package api holds the wire types of the inbox daemon's HTTP API, shared
// by the daemon and its clients.
package api

import (
	"time"

	"github.com/grovetools/inbox/pkg/badge"
	"github.com/grovetools/inbox/pkg/visibility"
)

// Counts is the body of GET /api/counts, POST /api/refresh and each
// event of GET /api/stream.
type Counts struct {
	Counts     badge.Counts     `json:"counts"`
	Viewer     badge.Viewer     `json:"viewer"`
	Badges     []badge.Badge    `json:"badges"`
	Visibility visibility.State `json:"visibility"`
}

// Visibility is the body of GET and POST /api/visibility.
type Visibility struct {
	State visibility.State `json:"state"`
}

// RunningConfig holds the active configuration being used by the daemon.
// This is exposed via the /api/config endpoint so clients can verify what config is active.
type RunningConfig struct {
	Instance               string        `json:"instance"`
	PollInterval           time.Duration `json:"poll_interval"`
	SessionRefreshInterval time.Duration `json:"session_refresh_interval"`
	TokenFile              string        `json:"token_file"`
	StartedAt              time.Time     `json:"started_at"`
}
