package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/grovetools/inbox/pkg/api"
	"github.com/grovetools/inbox/pkg/visibility"
)

// RemoteClient implements Client by calling the daemon's HTTP API over a Unix socket.
type RemoteClient struct {
	httpClient *http.Client
	socketPath string
	baseURL    string
}

// NewRemoteClient creates a new RemoteClient connected to the daemon socket.
func NewRemoteClient(socketPath string) (*RemoteClient, error) {
	// Create HTTP client that dials Unix socket
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}

	return &RemoteClient{
		httpClient: &http.Client{Transport: transport},
		socketPath: socketPath,
		baseURL:    socketBaseURL,
	}, nil
}

// socketBaseURL is the dummy host used for Unix socket HTTP requests.
// The actual connection goes through the Unix socket, not this URL.
const socketBaseURL = "http://unix"

// requestTimeout bounds every non-streaming call. A refresh waits for a
// full fetch cycle, so it is generous.
const requestTimeout = 60 * time.Second

func (c *RemoteClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// Counts returns the daemon's current totals.
func (c *RemoteClient) Counts(ctx context.Context) (*api.Counts, error) {
	var counts api.Counts
	if err := c.do(ctx, http.MethodGet, "/api/counts", nil, &counts); err != nil {
		return nil, err
	}
	return &counts, nil
}

// Refresh asks the daemon to run a fetch cycle now.
func (c *RemoteClient) Refresh(ctx context.Context) (*api.Counts, error) {
	var counts api.Counts
	if err := c.do(ctx, http.MethodPost, "/api/refresh", nil, &counts); err != nil {
		return nil, err
	}
	return &counts, nil
}

// SetVisibility marks the consumer surface visible or hidden.
func (c *RemoteClient) SetVisibility(ctx context.Context, state visibility.State) error {
	return c.do(ctx, http.MethodPost, "/api/visibility", api.Visibility{State: state}, nil)
}

// GetConfig returns the daemon's running configuration.
func (c *RemoteClient) GetConfig(ctx context.Context) (*api.RunningConfig, error) {
	var cfg api.RunningConfig
	if err := c.do(ctx, http.MethodGet, "/api/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsRunning returns true if the daemon is available and responding.
func (c *RemoteClient) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// StreamCounts subscribes to count updates via Server-Sent Events (SSE).
// The channel is closed when the context is cancelled or the connection is lost.
func (c *RemoteClient) StreamCounts(ctx context.Context) (<-chan api.Counts, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/stream", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	ch := make(chan api.Counts, 10)

	go func() {
		defer resp.Body.Close()
		defer close(ch)

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()

			// Skip comments and empty lines
			if strings.HasPrefix(line, ":") || line == "" {
				continue
			}

			if strings.HasPrefix(line, "data: ") {
				var counts api.Counts
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &counts); err != nil {
					continue // Skip malformed data
				}

				select {
				case ch <- counts:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// Close cleans up any resources used by the client.
func (c *RemoteClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Ensure RemoteClient implements Client interface.
var _ Client = (*RemoteClient)(nil)
