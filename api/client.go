package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/dentatrack/console/internal/errors"
	"github.com/dentatrack/console/session"
)

const (
	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-ID"

	defaultTimeout = 15 * time.Second
)

// Paths that must never carry a bearer token and must never trigger the
// refresh-and-retry sequence.
var publicPaths = []string{
	"/users/login",
	"/users/register",
	"/auth/refresh",
	"/invitations/validate",
}

// Client is the single choke point for all outbound calls to the platform.
// It attaches bearer tokens, intercepts 401 responses, refreshes the session
// at most once per request and re-sends the original request exactly once.
type Client struct {
	rest  *resty.Client
	store session.Store
	log   zerolog.Logger

	// refreshLock serializes refresh attempts; concurrent 401s wait for the
	// in-flight refresh instead of issuing duplicate calls.
	refreshLock sync.Mutex

	onSessionExpired func()
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.rest.SetTimeout(d)
	}
}

// WithSessionExpiredHook registers the forced return-to-login action invoked
// when a refresh fails terminally. The hook runs after the store is cleared.
func WithSessionExpiredHook(hook func()) Option {
	return func(c *Client) {
		c.onSessionExpired = hook
	}
}

// SetSessionExpiredHook registers the hook after construction, for wiring
// cycles where the session owner is built on top of this client.
func (c *Client) SetSessionExpiredHook(hook func()) {
	c.onSessionExpired = hook
}

// New creates a platform client rooted at baseURL.
func New(baseURL string, store session.Store, options ...Option) *Client {
	rest := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(defaultTimeout).
		SetHeader("Content-Type", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	c := &Client{
		rest:  rest,
		store: store,
		log:   zerolog.Nop(),
	}

	rest.OnBeforeRequest(c.attachAuth)

	for _, opt := range options {
		opt(c)
	}
	return c
}

// attachAuth mirrors the request interceptor: every request except the public
// endpoints carries the stored access token, plus a request id for tracing.
func (c *Client) attachAuth(_ *resty.Client, req *resty.Request) error {
	req.SetHeader(headerRequestID, uuid.New().String())

	if isPublicPath(req.URL) {
		return nil
	}
	s, err := c.store.Load()
	if err != nil {
		return apperrors.Wrapf(err, "[Client] load session")
	}
	if s != nil && s.AccessToken != "" {
		tok := s.Token()
		req.SetHeader(headerAuthorization, tok.Type()+" "+tok.AccessToken)
	}
	return nil
}

func isPublicPath(url string) bool {
	for _, p := range publicPaths {
		if strings.Contains(url, p) {
			return true
		}
	}
	return false
}

// Get performs a GET request, decoding the response into out when non-nil.
func (c *Client) Get(ctx context.Context, path string, out any, query map[string]string) error {
	_, err := c.execute(ctx, http.MethodGet, path, out, func(req *resty.Request) {
		if len(query) > 0 {
			req.SetQueryParams(query)
		}
	})
	return err
}

// GetBytes performs a GET request returning the raw body, used for exports.
func (c *Client) GetBytes(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	resp, err := c.execute(ctx, http.MethodGet, path, nil, func(req *resty.Request) {
		if len(query) > 0 {
			req.SetQueryParams(query)
		}
	})
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// Post performs a POST request with an optional JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any, query map[string]string) error {
	_, err := c.execute(ctx, http.MethodPost, path, out, func(req *resty.Request) {
		if body != nil {
			req.SetBody(body)
		}
		if len(query) > 0 {
			req.SetQueryParams(query)
		}
	})
	return err
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	_, err := c.execute(ctx, http.MethodPatch, path, out, func(req *resty.Request) {
		req.SetBody(body)
	})
	return err
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.execute(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// execute runs a request once and, on a 401 for a non-public path, refreshes
// the session and re-sends the request exactly once. Retry state lives here,
// on the stack, never on a shared request object. All other error responses
// propagate to the caller as *APIError; transport errors propagate as-is.
func (c *Client) execute(ctx context.Context, method, path string, out any, configure func(*resty.Request)) (*resty.Response, error) {
	if !isPublicPath(path) {
		if err := c.refreshIfExpired(ctx); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrSessionExpired, "[Client] %s %s", method, path)
		}
	}

	resp, err := c.attempt(ctx, method, path, out, configure)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != http.StatusUnauthorized || isPublicPath(path) {
		return resp, checkResponse(resp)
	}

	staleToken := bearerFromRequest(resp.Request)
	if refreshErr := c.refresh(ctx, staleToken); refreshErr != nil {
		c.expireSession(refreshErr)
		return nil, apperrors.Wrapf(apperrors.ErrSessionExpired, "[Client] %s %s", method, path)
	}

	c.log.Debug().Str("path", path).Msg("session refreshed, re-sending request")

	resp, err = c.attempt(ctx, method, path, out, configure)
	if err != nil {
		return nil, err
	}
	// A second 401 on the retried request is surfaced as-is; no further
	// refresh attempts for this request.
	return resp, checkResponse(resp)
}

// refreshIfExpired renews a session whose access token is already known to be
// past its recorded expiry, saving the guaranteed 401 round trip. Sessions
// without a recorded expiry pass through and rely on the 401 path.
func (c *Client) refreshIfExpired(ctx context.Context) error {
	s, err := c.store.Load()
	if err != nil || s == nil || !s.Expired() {
		// Load errors surface through attachAuth on the request itself.
		return nil
	}
	if refreshErr := c.refresh(ctx, s.AccessToken); refreshErr != nil {
		c.expireSession(refreshErr)
		return refreshErr
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, method, path string, out any, configure func(*resty.Request)) (*resty.Response, error) {
	req := c.rest.R().SetContext(ctx)
	if out != nil {
		req.SetResult(out)
	}
	if configure != nil {
		configure(req)
	}
	return req.Execute(method, path)
}

func checkResponse(resp *resty.Response) error {
	if resp.IsError() {
		return newAPIError(resp.StatusCode(), resp.Body())
	}
	return nil
}

func bearerFromRequest(req *resty.Request) string {
	if req == nil {
		return ""
	}
	return strings.TrimPrefix(req.Header.Get(headerAuthorization), "Bearer ")
}

// expireSession clears the store and triggers the forced return-to-login.
// Terminal failure paths either reject to the caller or land here; nothing is
// ever swallowed.
func (c *Client) expireSession(cause error) {
	c.log.Warn().Err(cause).Msg("session refresh failed, clearing stored session")
	if err := c.store.Clear(); err != nil {
		c.log.Error().Err(err).Msg("failed to clear session store")
	}
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}
