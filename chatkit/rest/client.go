// Package rest provides HTTP access to the chat API. Requests that need the
// live connection id queue until one is known; flushing the queue releases
// them with a not-connected error.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// TokenSource yields the current auth token, waiting up to timeout for one.
type TokenSource func(timeout time.Duration, completion func(token string, err error))

// ConnectionIDSource yields the current connection id, waiting up to timeout
// for one.
type ConnectionIDSource func(timeout time.Duration, completion func(id string, err error))

// ErrFlushed is delivered to queued requests released by FlushPendingRequests.
var ErrFlushed = fmt.Errorf("not_connected: pending request flushed before a connection was available")

// Client provides REST API access. baseURL is the API root, e.g.
// "https://chat.example.com/api".
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      TokenSource
	connIDs     ConnectionIDSource
	waitTimeout time.Duration

	mu      sync.Mutex
	pending map[*pendingWait]struct{}
}

type pendingWait struct {
	released chan struct{}
	once     sync.Once
}

func (p *pendingWait) release() {
	p.once.Do(func() { close(p.released) })
}

// NewClient creates a REST client. tokens and connIDs are typically the
// chatkit client's ProvideToken/ProvideConnectionID methods.
func NewClient(baseURL string, tokens TokenSource, connIDs ConnectionIDSource) *Client {
	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		tokens:      tokens,
		connIDs:     connIDs,
		waitTimeout: 10 * time.Second,
		pending:     map[*pendingWait]struct{}{},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetWaitTimeout bounds how long a request waits for a token or connection id.
func (c *Client) SetWaitTimeout(d time.Duration) {
	c.waitTimeout = d
}

// FlushPendingRequests releases every request queued on a missing connection
// id or token with ErrFlushed. Called by the SDK on disconnect and logout so
// nothing waits on a connection that will never come.
func (c *Client) FlushPendingRequests() {
	c.mu.Lock()
	pending := make([]*pendingWait, 0, len(c.pending))
	for p := range c.pending {
		pending = append(pending, p)
	}
	c.pending = map[*pendingWait]struct{}{}
	c.mu.Unlock()
	for _, p := range pending {
		p.release()
	}
}

func (c *Client) track() *pendingWait {
	p := &pendingWait{released: make(chan struct{})}
	c.mu.Lock()
	c.pending[p] = struct{}{}
	c.mu.Unlock()
	return p
}

func (c *Client) untrack(p *pendingWait) {
	c.mu.Lock()
	delete(c.pending, p)
	c.mu.Unlock()
}

type waitResult struct {
	value string
	err   error
}

// await runs one of the value sources and races it against ctx and a flush.
func (c *Client) await(ctx context.Context, source func(time.Duration, func(string, error))) (string, error) {
	p := c.track()
	defer c.untrack(p)

	result := make(chan waitResult, 1)
	source(c.waitTimeout, func(value string, err error) {
		result <- waitResult{value: value, err: err}
	})

	select {
	case r := <-result:
		return r.value, r.err
	case <-p.released:
		return "", ErrFlushed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Channel endpoints

// ListChannels returns the channels visible to the authenticated user.
func (c *Client) ListChannels(ctx context.Context) ([]ChannelInfo, error) {
	var resp []ChannelInfo
	if err := c.get(ctx, "/channels", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetMessages retrieves message history for a channel with cursor-based
// pagination. before, if set, returns messages older than that message id.
func (c *Client) GetMessages(ctx context.Context, channelID string, limit int, before string) (*MessagesResponse, error) {
	path := fmt.Sprintf("/channels/%s/messages?limit=%d", channelID, limit)
	if before != "" {
		path += "&before=" + before
	}
	var resp MessagesResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MarkRead marks a channel read. The server scopes read state to the live
// connection, so this waits for a connection id before sending.
func (c *Client) MarkRead(ctx context.Context, channelID string) error {
	connID, err := c.await(ctx, c.connIDs)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/channels/%s/read?connection_id=%s", channelID, connID)
	return c.post(ctx, path, nil, nil)
}

// SendEvent delivers a connection-scoped event such as typing indicators.
func (c *Client) SendEvent(ctx context.Context, channelID string, event EventRequest) error {
	connID, err := c.await(ctx, c.connIDs)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/channels/%s/events?connection_id=%s", channelID, connID)
	return c.post(ctx, path, event, nil)
}

// Helper methods

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(ctx, req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(ctx, req, dest)
}

func (c *Client) do(ctx context.Context, req *http.Request, dest any) error {
	token, err := c.await(ctx, func(timeout time.Duration, completion func(string, error)) {
		c.tokens(timeout, completion)
	})
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("http error: %s (status %d)", string(body), resp.StatusCode)
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
