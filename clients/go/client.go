package stmtbatchgo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tomyedwab/stmtbatch/sqlproxy/types"
)

const sqlPath = "/v1/sql"

// Client talks to a statement host.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	accessToken string
	mu          sync.RWMutex // Protects accessToken
}

// ClientOption represents a functional option for configuring the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithAccessToken sets the bearer token sent with every request
func WithAccessToken(token string) ClientOption {
	return func(c *Client) {
		c.accessToken = token
	}
}

// NewClient creates a new client for the host at baseURL
func NewClient(baseURL string, options ...ClientOption) *Client {
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// SetAccessToken replaces the bearer token in a thread-safe manner
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

func (c *Client) getAccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// Do sends one protocol request and decodes the host's answer into resp.
// An error reported by the host is returned as an API error.
func (c *Client) Do(ctx context.Context, request types.SQLRequest, resp interface{}) error {
	payload, err := json.Marshal(request)
	if err != nil {
		return newError(ErrorTypeValidation, "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sqlPath, bytes.NewReader(payload))
	if err != nil {
		return newError(ErrorTypeValidation, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.getAccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return newError(ErrorTypeNetwork, "request failed", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return wrapHTTPError(httpResp, request.Command)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return newError(ErrorTypeNetwork, "failed to read response", err)
	}

	var status struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return newError(ErrorTypeAPI, "failed to decode response", err)
	}
	if status.Error != "" {
		return &Error{Type: ErrorTypeAPI, Message: fmt.Sprintf("%s: %s", request.Command, status.Error), StatusCode: httpResp.StatusCode}
	}
	if resp == nil {
		return nil
	}
	if err := json.Unmarshal(body, resp); err != nil {
		return newError(ErrorTypeAPI, "failed to decode response", err)
	}
	return nil
}

// Sessions lists the sessions open on the host.
func (c *Client) Sessions(ctx context.Context) ([]types.SessionInfo, error) {
	var resp types.SessionsResponse
	if err := c.Do(ctx, types.SQLRequest{Command: "list_sessions"}, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// OpenSession reserves a connection on the host.
func (c *Client) OpenSession(ctx context.Context) (*Session, error) {
	var resp types.GeneralResponse
	if err := c.Do(ctx, types.SQLRequest{Command: "open_session"}, &resp); err != nil {
		return nil, err
	}
	return &Session{client: c, ID: resp.SessionID}, nil
}
