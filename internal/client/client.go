// Package client is the authenticated HTTP client for the expense tracker API.
//
// Every request carries the stored access token. A 401 triggers at most one
// refresh at a time: concurrent failures wait on the same refresh and are each
// retried once with the new token. When the refresh fails the stored tokens
// are cleared and the session-expired handler fires.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/expensetrack/expensetrack/internal/handler/dto"
)

// API paths.
const (
	PathRegister = "/api/auth/register"
	PathLogin    = "/api/auth/login"
	PathRefresh  = "/api/auth/refresh"
	PathLogout   = "/api/auth/logout"
	PathMe       = "/api/auth/me"
	PathUser     = "/api/user"
	PathExpense  = "/api/expense"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithSessionExpiredHandler registers fn to run once per failed refresh,
// after the stored tokens are cleared.
func WithSessionExpiredHandler(fn func(error)) Option {
	return func(c *Client) { c.onExpired = fn }
}

// Client talks to the API on behalf of one user.
type Client struct {
	baseURL   string
	http      *http.Client
	store     TokenStore
	logger    *slog.Logger
	onExpired func(error)

	// mu orders token reads of the stale check against token writes of a
	// refresh, so a request either sees the new token or joins the flight.
	mu        sync.Mutex
	refreshes singleflight.Group
}

// New creates a Client for the API at baseURL.
func New(baseURL string, store TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		store:   store,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "api_client")
	return c
}

// do sends a JSON request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	sent := c.bearerFor(path)
	err := c.send(ctx, method, path, body, sent, out)
	if !IsUnauthorized(err) || path == PathLogin {
		return err
	}

	fresh, rerr := c.freshToken(ctx, sent)
	if rerr != nil {
		return rerr
	}

	// The retry is final: a second 401 is returned as is.
	return c.send(ctx, method, path, body, fresh, out)
}

// bearerFor returns the token to attach, if any.
func (c *Client) bearerFor(path string) string {
	if path == PathRefresh || path == PathLogin {
		return ""
	}
	token, _ := c.store.AccessToken()
	return token
}

// freshToken returns a token to retry with after sent was rejected.
func (c *Client) freshToken(ctx context.Context, sent string) (string, error) {
	c.mu.Lock()
	current, ok := c.store.AccessToken()
	if ok && current != sent {
		// A refresh finished after this request went out.
		c.mu.Unlock()
		return current, nil
	}
	if !ok && sent != "" {
		if _, hasRefresh := c.store.RefreshToken(); !hasRefresh {
			// The session was cleared after this request went out.
			c.mu.Unlock()
			return "", ErrSessionExpired
		}
	}
	ch := c.joinRefresh(ctx)
	c.mu.Unlock()

	return awaitRefresh(ctx, ch)
}

// joinRefresh starts a refresh or joins the one in flight. The refresh
// outlives the caller's context so other waiters are not cut short.
func (c *Client) joinRefresh(ctx context.Context) <-chan singleflight.Result {
	return c.refreshes.DoChan("refresh", func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx))
	})
}

func awaitRefresh(ctx context.Context, ch <-chan singleflight.Result) (string, error) {
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// refresh exchanges the stored refresh token for a new access token. Any
// failure ends the session.
func (c *Client) refresh(ctx context.Context) (string, error) {
	c.logger.Debug("refreshing access token")

	refreshToken, ok := c.store.RefreshToken()
	if !ok {
		return "", c.expire(ErrNoRefreshToken)
	}

	body, err := json.Marshal(dto.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	var resp dto.RefreshResponse
	if err := c.send(ctx, http.MethodPost, PathRefresh, body, "", &resp); err != nil {
		return "", c.expire(err)
	}

	c.mu.Lock()
	err = c.store.SetAccessToken(resp.AccessToken)
	c.mu.Unlock()
	if err != nil {
		return "", c.expire(fmt.Errorf("store access token: %w", err))
	}

	c.logger.Debug("access token refreshed")
	return resp.AccessToken, nil
}

// expire clears the tokens, fires the handler and returns the error every
// waiter receives.
func (c *Client) expire(cause error) error {
	c.logger.Warn("token refresh failed, ending session", "error", cause)

	c.mu.Lock()
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("failed to clear tokens", "error", err)
	}
	c.mu.Unlock()

	err := fmt.Errorf("%w: %w", ErrSessionExpired, cause)
	if c.onExpired != nil {
		c.onExpired(err)
	}
	return err
}

// send performs one HTTP exchange.
func (c *Client) send(ctx context.Context, method, path string, body []byte, token string, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body dto.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
