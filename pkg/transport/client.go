// Package transport implements the single outbound request pipeline for the
// storefront API: bearer decoration on the way out, refresh-and-replay-once
// recovery on auth failures on the way back.
package transport

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

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	pkgerrors "github.com/s6ptember/shopfront/pkg/errors"
	"github.com/s6ptember/shopfront/pkg/logger"
	"github.com/s6ptember/shopfront/pkg/metrics"
)

const (
	defaultTimeout             = 30 * time.Second
	defaultLoginPath           = "/login"
	errorBodyReadLimit   int64 = 4096
	requestIDHeader            = "X-Request-Id"
	authorizationHeader        = "Authorization"
)

var errBaseURLRequired = errors.New("base URL is required")

// Session is the single authority the pipeline consults for credentials.
// The concrete implementation lives in the session manager.
type Session interface {
	// AccessToken returns the held access token, empty when anonymous.
	AccessToken() string
	// HasRefreshToken reports whether a refresh is worth attempting.
	HasRefreshToken() bool
	// RefreshAccessToken exchanges the refresh token for a new access token.
	// It must handle its own teardown on failure and report success.
	RefreshAccessToken(ctx context.Context) bool
	// Logout tears the session down. Idempotent.
	Logout(ctx context.Context)
}

// Navigator moves the UI layer to the login surface after an unrecoverable
// auth failure. A nil navigator disables redirects.
type Navigator interface {
	CurrentPath() string
	NavigateTo(path string)
}

// Client is the outbound pipeline. Every storefront request goes through Do.
type Client struct {
	httpClient *http.Client
	baseURL    string
	session    Session
	nav        Navigator
	loginPath  string
	logg       *logger.Logger
	metrics    *metrics.ClientMetrics
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout on the owned HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithNavigator wires the login-surface redirect target.
func WithNavigator(nav Navigator) Option {
	return func(c *Client) {
		c.nav = nav
	}
}

// WithLoginPath overrides the login surface path used for redirects.
func WithLoginPath(path string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(path)
		if trimmed != "" {
			c.loginPath = trimmed
		}
	}
}

// WithLogger attaches the structured logger.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

// WithMetrics attaches request metrics.
func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTracing wraps the underlying round tripper with otel instrumentation.
func WithTracing() Option {
	return func(c *Client) {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.httpClient.Transport = otelhttp.NewTransport(base)
	}
}

// NewClient builds the pipeline for the given API base URL and session
// authority.
func NewClient(baseURL string, session Session, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if session == nil {
		return nil, errors.New("session authority is required")
	}

	client := &Client{
		baseURL:    trimmed,
		session:    session,
		loginPath:  defaultLoginPath,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Get issues a GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// PostOnce issues a POST outside the recovery interceptor: a single attempt,
// no refresh-and-replay, no teardown. The token refresh call itself uses this
// so an auth failure during refresh cannot re-enter the recovery path.
func (c *Client) PostOnce(ctx context.Context, path string, body, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		payload = encoded
	}
	return c.send(ctx, http.MethodPost, path, nil, payload, out)
}

// Do runs one logical request through the pipeline. On a 401/403 response it
// attempts exactly one refresh-and-replay; every other failure passes through
// untouched. The retried flag lives in this call frame, never on shared
// request state.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		payload = encoded
	}

	started := time.Now()
	resource := resourceLabel(path)

	retried := false
	err := c.send(ctx, method, path, query, payload, out)

	for pkgerrors.IsAuthExpiry(err) {
		if retried {
			// The replayed request failed again; propagate as-is.
			break
		}
		retried = true

		if c.session.HasRefreshToken() {
			if c.session.RefreshAccessToken(ctx) {
				c.metrics.IncRefresh("success")
				c.metrics.IncAuthRetry()
				if c.logg != nil {
					c.logg.Info(ctx, "replaying request after token refresh")
				}
				err = c.send(ctx, method, path, query, payload, out)
				continue
			}
			c.metrics.IncRefresh("failure")
		}

		// Refresh failed or was never possible: tear the session down
		// and surface the login page. The comparison ignores the query so
		// a tracker already on /login?redirect=… stays put.
		c.session.Logout(ctx)
		if c.nav != nil && pathOnly(c.nav.CurrentPath()) != c.loginPath {
			c.nav.NavigateTo(c.loginPath)
		}
		break
	}

	c.metrics.ObserveRequest(resource, outcomeLabel(err), time.Since(started))
	if err != nil && c.logg != nil {
		c.logg.Error(c.logg.WithFields(ctx, map[string]any{
			"method": method,
			"path":   path,
		}), "storefront request failed", err)
	}
	return err
}

// send performs a single attempt with the token currently held.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, out any) error {
	endpoint := c.buildURL(path)
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	if token := c.session.AccessToken(); token != "" {
		req.Header.Set(authorizationHeader, "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response body")
	}
	return nil
}

// statusError maps a non-2xx response to a coded error carrying the
// server-supplied message when one is present.
func (c *Client) statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))

	var serverBody struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(raw, &serverBody)

	message := serverBody.Error
	if message == "" {
		message = serverBody.Detail
	}

	code := pkgerrors.CodeForStatus(resp.StatusCode)
	if message == "" {
		return pkgerrors.New(code, "").WithStatus(resp.StatusCode)
	}
	return pkgerrors.Wrap(code, fmt.Errorf("status %d", resp.StatusCode), message).WithStatus(resp.StatusCode)
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}

func pathOnly(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

func resourceLabel(path string) string {
	trimmed := strings.TrimLeft(path, "/")
	if idx := strings.IndexByte(trimmed, '/'); idx > 0 {
		return trimmed[:idx]
	}
	return trimmed
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return "error"
}
