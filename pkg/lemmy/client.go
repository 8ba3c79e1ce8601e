// Package lemmy is a minimal client for the v3 HTTP API of a Lemmy instance,
// covering the endpoints needed to poll unread counts.
package lemmy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/grovetools/inbox/errors"
	"github.com/grovetools/inbox/version"
)

const apiPrefix = "/api/v3"

// Endpoint paths, relative to the API prefix.
const (
	PathUnreadCount             = "/user/unread_count"
	PathReportCount             = "/user/report_count"
	PathRegistrationApplication = "/admin/registration_application/count"
	PathSite                    = "/site"
)

// Client calls a single Lemmy instance.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a client for the instance at baseURL
// (e.g. "https://lemmy.ml").
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid instance URL").
			WithDetail("instance", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "instance URL must be http or https").
			WithDetail("instance", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  version.UserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetUnreadCount returns the unread replies, mentions and private messages.
func (c *Client) GetUnreadCount(ctx context.Context, auth string) (GetUnreadCountResponse, error) {
	var resp GetUnreadCountResponse
	err := c.get(ctx, PathUnreadCount, auth, &resp)
	return resp, err
}

// GetReportCount returns the unresolved reports visible to a moderator.
func (c *Client) GetReportCount(ctx context.Context, auth string) (GetReportCountResponse, error) {
	var resp GetReportCountResponse
	err := c.get(ctx, PathReportCount, auth, &resp)
	return resp, err
}

// GetUnreadRegistrationApplicationCount returns the pending applications (admin only).
func (c *Client) GetUnreadRegistrationApplicationCount(ctx context.Context, auth string) (GetUnreadRegistrationApplicationCountResponse, error) {
	var resp GetUnreadRegistrationApplicationCountResponse
	err := c.get(ctx, PathRegistrationApplication, auth, &resp)
	return resp, err
}

// GetSite returns site information including my_user when auth is valid.
func (c *Client) GetSite(ctx context.Context, auth string) (GetSiteResponse, error) {
	var resp GetSiteResponse
	err := c.get(ctx, PathSite, auth, &resp)
	return resp, err
}

// errorEnvelope is the body Lemmy returns for application-level failures.
type errorEnvelope struct {
	Error string `json:"error"`
}

func (c *Client) get(ctx context.Context, path, auth string, out interface{}) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + apiPrefix + path
	if auth != "" {
		q := u.Query()
		q.Set("auth", auth)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create request").
			WithDetail("endpoint", path)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Transport(path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Transport(path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env errorEnvelope
		if json.Unmarshal(body, &env) == nil && env.Error != "" {
			return errors.API(path, resp.StatusCode, env.Error)
		}
		return errors.HTTPStatus(path, resp.StatusCode)
	}

	// Some proxies answer 200 with an error body.
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error != "" {
		return errors.API(path, resp.StatusCode, env.Error)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Decode(path, err)
	}
	return nil
}

// String returns the instance URL.
func (c *Client) String() string {
	return fmt.Sprintf("lemmy(%s)", c.baseURL)
}
