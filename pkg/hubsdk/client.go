package hubsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/frenchtutorhub/hub/pkg/httpx"
	"github.com/frenchtutorhub/hub/pkg/slogx"
	"golang.org/x/sync/singleflight"
)

// CredentialStore holds the access/refresh pair the client authenticates
// with. An empty string means the token is absent.
type CredentialStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SetTokens(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
}

// UserInfoStore is implemented by stores that also keep the logged-in
// user's profile. Login writes to it when available.
type UserInfoStore interface {
	SetUserInfo(ctx context.Context, info json.RawMessage) error
	UserInfo(ctx context.Context) (json.RawMessage, error)
}

// Config configures a Client.
type Config struct {
	// BaseURL is the backend origin, e.g. "https://frenchtutorhub.example".
	BaseURL string

	// Credentials is required.
	Credentials CredentialStore

	// HTTPClient overrides the client built from the fields below.
	HTTPClient *http.Client

	// Transport is the innermost round-tripper. Defaults to
	// http.DefaultTransport.
	Transport http.RoundTripper

	// Jar receives server cookies (csrftoken, sessionid). Defaults to the
	// credential store's jar when it exposes one.
	Jar http.CookieJar

	// Timeout bounds each attempt. Zero means no client-side timeout.
	Timeout time.Duration

	// RateLimit throttles outbound requests per host. The zero value
	// disables it.
	RateLimit httpx.RateLimitConfig

	UserAgent string

	// CSRF supplies the X-CSRFToken header for session sync and logout.
	// Defaults to reading the csrftoken cookie from the jar.
	CSRF CSRFSource

	Logger *slog.Logger

	// CoalesceRefresh lets concurrent 401s share a single refresh call.
	// Off by default: every 401 refreshes on its own.
	CoalesceRefresh bool

	// DisableSessionSync skips pushing refreshed tokens to the server
	// session.
	DisableSessionSync bool

	// OnCredentialsCleared runs after a failed refresh has cleared the
	// store, e.g. to send the user back to a login prompt.
	OnCredentialsCleared func(ctx context.Context)
}

// Client talks to the FrenchTutor Hub API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialStore
	csrf       CSRFSource
	logger     *slog.Logger

	coalesce    bool
	syncSession bool
	onCleared   func(ctx context.Context)

	refreshGroup singleflight.Group
	stats        counters
}

type jarProvider interface {
	Jar() http.CookieJar
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("%w: credential store is required", ErrInvalidArgument)
	}
	base, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar := cfg.Jar
		if jar == nil {
			if jp, ok := cfg.Credentials.(jarProvider); ok {
				jar = jp.Jar()
			}
		}

		wrappers := []func(http.RoundTripper) http.RoundTripper{
			httpx.RequestIDTransport,
			httpx.UserAgentTransport(cfg.UserAgent),
		}
		if cfg.RateLimit.Enabled() {
			wrappers = append(wrappers, httpx.RateLimitTransport(cfg.RateLimit))
		}
		wrappers = append(wrappers, func(next http.RoundTripper) http.RoundTripper {
			return slogx.NewTransport(next, logger)
		})

		httpClient = &http.Client{
			Transport: httpx.ChainTransport(cfg.Transport, wrappers...),
			Jar:       jar,
			Timeout:   cfg.Timeout,
		}
	}

	c := &Client{
		baseURL:     base,
		httpClient:  httpClient,
		creds:       cfg.Credentials,
		csrf:        cfg.CSRF,
		logger:      logger,
		coalesce:    cfg.CoalesceRefresh,
		syncSession: !cfg.DisableSessionSync,
		onCleared:   cfg.OnCredentialsCleared,
	}
	if c.csrf == nil {
		c.csrf = JarCSRF(httpClient.Jar, base)
	}

	return c, nil
}

// BaseURL returns the normalized backend origin.
func (c *Client) BaseURL() string { return c.baseURL }

// Credentials returns the store the client authenticates with.
func (c *Client) Credentials() CredentialStore { return c.creds }

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: base URL is required", ErrInvalidArgument)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: base URL: %v", ErrInvalidArgument, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: base URL must be http(s), got %q", ErrInvalidArgument, raw)
	}
	return strings.TrimSuffix(raw, "/"), nil
}

// log returns the context logger when one is attached, else the client's.
func (c *Client) log(ctx context.Context) *slog.Logger {
	if l := slogx.FromContext(ctx); l != slog.Default() {
		return l
	}
	return c.logger
}

// ============================================================================
// Counters
// ============================================================================

// Stats counts refresh-cycle events since the client was created.
type Stats struct {
	Refreshes       int64
	RefreshFailures int64
	Retries         int64
	SyncFailures    int64
}

type counters struct {
	refreshes       atomic.Int64
	refreshFailures atomic.Int64
	retries         atomic.Int64
	syncFailures    atomic.Int64
}

// Stats returns a snapshot of the refresh-cycle counters.
func (c *Client) Stats() Stats {
	return Stats{
		Refreshes:       c.stats.refreshes.Load(),
		RefreshFailures: c.stats.refreshFailures.Load(),
		Retries:         c.stats.retries.Load(),
		SyncFailures:    c.stats.syncFailures.Load(),
	}
}

// ============================================================================
// Typed Call Helpers
// ============================================================================

// call executes req and decodes the JSON body into T.
func call[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var out T
	resp, err := c.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// callList is call for list endpoints. It accepts both a bare JSON array and
// a paginated {"results": [...]} envelope.
func callList[T any](ctx context.Context, c *Client, req Request) ([]T, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var items []T
	if err := json.Unmarshal(resp.Body, &items); err == nil {
		return items, nil
	}

	var page struct {
		Results []T `json:"results"`
	}
	if err := resp.Decode(&page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		return nil, fmt.Errorf("hubsdk: decode %s: %w", req.Endpoint, errors.New("expected a list or a paginated envelope"))
	}
	return page.Results, nil
}
