// Package httpgateway implements the seed capability against the banking
// gateway's HTTP API.
package httpgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paygate/seedforge/internal/platform/timeouts"
	"github.com/paygate/seedforge/internal/seed/capability"
	"github.com/paygate/seedforge/internal/seed/fakedata"
	"github.com/paygate/seedforge/internal/seed/plan"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// DefaultMaxConns is the idle connection pool size per gateway host when
// WithMaxConns is not given. It matches the engine's default concurrency.
const DefaultMaxConns = 16

// StatusError is returned for a non-2xx gateway response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	switch e.Code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithMaxConns sizes the connection pool to n, normally the engine's
// concurrency bound, so parallel calls reuse connections.
func WithMaxConns(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxConns = n
		}
	}
}

// WithLogger logs every request before it is sent.
func WithLogger(logf func(string, ...any)) Option {
	return func(c *Client) {
		c.logf = logf
	}
}

// WithTimeout bounds each request. Zero disables the per-request bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// Client talks to the gateway over HTTP. It is safe for concurrent use.
type Client struct {
	base     *url.URL
	http     *http.Client
	fake     *fakedata.Generator
	logf     func(string, ...any)
	timeout  time.Duration
	maxConns int
}

// New creates a Client for the gateway at baseURL. Request payloads are
// filled from fake.
func New(baseURL string, fake *fakedata.Generator, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("base url is required")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if fake == nil {
		return nil, errors.New("fake data generator is required")
	}
	c := &Client{
		base:     base,
		fake:     fake,
		timeout:  timeouts.HTTPRequest,
		maxConns: DefaultMaxConns,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = newHTTPClient(c.maxConns)
	}
	return c, nil
}

// newHTTPClient returns a client whose transport keeps up to maxConns idle
// connections per host. The default transport keeps only two.
func newHTTPClient(maxConns int) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = maxConns
	transport.MaxIdleConnsPerHost = maxConns
	transport.IdleConnTimeout = 90 * time.Second
	return &http.Client{Transport: transport}
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

type idDocument struct {
	ID string `json:"id"`
}

type createUserResponse struct {
	User idDocument `json:"user"`
}

type openAccountRequest struct {
	UserID string `json:"userId"`
}

type openAccountResponse struct {
	Account idDocument `json:"account"`
}

type issueCardRequest struct {
	UserID    string `json:"userId"`
	AccountID string `json:"accountId"`
}

type issueCardResponse struct {
	Card idDocument `json:"card"`
}

type makeOperationResponse struct {
	Operation idDocument `json:"operation"`
}

// CreateUser implements capability.Capability.
func (c *Client) CreateUser(ctx context.Context) (capability.UserID, error) {
	var out createUserResponse
	if err := c.post(ctx, "/api/v1/users", c.fake.User(), &out); err != nil {
		return "", err
	}
	return capability.RequireID(capability.OpCreateUser, capability.UserID(out.User.ID))
}

// OpenAccount implements capability.Capability.
func (c *Client) OpenAccount(ctx context.Context, userID capability.UserID, accountType plan.AccountType) (capability.AccountID, error) {
	path, err := AccountPath(accountType)
	if err != nil {
		return "", err
	}
	var out openAccountResponse
	if err := c.post(ctx, path, openAccountRequest{UserID: string(userID)}, &out); err != nil {
		return "", err
	}
	return capability.RequireID(capability.OpOpenAccount, capability.AccountID(out.Account.ID))
}

// IssueCard implements capability.Capability.
func (c *Client) IssueCard(ctx context.Context, req capability.CardRequest) (capability.CardID, error) {
	path, err := CardPath(req.Type)
	if err != nil {
		return "", err
	}
	body := issueCardRequest{UserID: string(req.UserID), AccountID: string(req.AccountID)}
	var out issueCardResponse
	if err := c.post(ctx, path, body, &out); err != nil {
		return "", err
	}
	return capability.RequireID(capability.OpIssueCard, capability.CardID(out.Card.ID))
}

// CreateOperation implements capability.Capability.
func (c *Client) CreateOperation(ctx context.Context, req capability.OperationRequest) (capability.OperationID, error) {
	path, err := OperationPath(req.Kind)
	if err != nil {
		return "", err
	}
	body := c.fake.Operation(req.Kind, string(req.CardID), string(req.AccountID))
	var out makeOperationResponse
	if err := c.post(ctx, path, body, &out); err != nil {
		return "", err
	}
	return capability.RequireID(capability.OpCreateOperation, capability.OperationID(out.Operation.ID))
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.logf != nil {
		c.logf("request: %s %s", req.Method, target)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return capability.MarkRetryable(fmt.Errorf("POST %s: %w", path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{
			Method: http.MethodPost,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(data)),
		}
		if statusErr.Temporary() {
			return capability.MarkRetryable(statusErr)
		}
		return statusErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

var _ capability.Capability = (*Client)(nil)
