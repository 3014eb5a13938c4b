package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/frenchtutorhub/hub/pkg/cryptox"
)

// Storage keys.
const (
	KeyAccessToken  = "access_token"
	KeyLegacyToken  = "token" // older clients read the access token from here
	KeyRefreshToken = "refresh_token"
	KeyUserInfo     = "user_info"
)

// Options configure a Store. Zero values get in-memory scopes and a fresh
// cookie jar.
type Options struct {
	// LongLived survives restarts (the sqlite driver, usually).
	LongLived Scope
	// Session lives for the current session only.
	Session Scope
	// Jar receives the access_token cookie mirror. Share it with the
	// http.Client so the server sees the cookie.
	Jar http.CookieJar
	// CookieURL is the site the cookies belong to, normally the API base
	// URL. Required.
	CookieURL string
	Logger    *slog.Logger
}

// Store keeps the credential pair mirrored across the long-lived scope, the
// session scope and the access_token cookie. Writers hold an exclusive lock
// for the whole mirror update, so readers in this process never see the
// mirrors disagree.
type Store struct {
	mu        sync.RWMutex
	longLived Scope
	session   Scope
	jar       http.CookieJar
	cookieURL *url.URL
	logger    *slog.Logger
}

// New builds a Store from opts.
func New(opts Options) (*Store, error) {
	if opts.CookieURL == "" {
		return nil, errors.New("credstore: cookie URL is required")
	}
	u, err := url.Parse(opts.CookieURL)
	if err != nil {
		return nil, fmt.Errorf("credstore: parse cookie URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("credstore: cookie URL must be http(s), got %q", opts.CookieURL)
	}
	u.Path = "/"

	s := &Store{
		longLived: opts.LongLived,
		session:   opts.Session,
		jar:       opts.Jar,
		cookieURL: u,
		logger:    opts.Logger,
	}
	if s.longLived == nil {
		s.longLived = NewMemoryScope()
	}
	if s.session == nil {
		s.session = NewMemoryScope()
	}
	if s.jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("credstore: cookie jar: %w", err)
		}
		s.jar = jar
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// Jar returns the cookie jar holding the access_token mirror.
func (s *Store) Jar() http.CookieJar { return s.jar }

// AccessToken returns the stored access token, or "" when there is none.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, src := range []struct {
		scope Scope
		key   string
	}{
		{s.longLived, KeyAccessToken},
		{s.longLived, KeyLegacyToken},
		{s.session, KeyAccessToken},
	} {
		v, err := get(ctx, src.scope, src.key)
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
	}
	return "", nil
}

// RefreshToken returns the stored refresh token, or "" when there is none.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return get(ctx, s.longLived, KeyRefreshToken)
}

// SessionAccessToken returns the session-scope mirror of the access token.
func (s *Store) SessionAccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return get(ctx, s.session, KeyAccessToken)
}

// Cookie returns the value of the named cookie in the jar for the API site.
func (s *Store) Cookie(name string) (string, bool) {
	for _, c := range s.jar.Cookies(s.cookieURL) {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// SetTokens writes access to the long-lived scope (also under the legacy
// "token" key), the session scope and the access_token cookie, and refresh
// to the long-lived scope only. An empty refresh removes the stored one.
// If any write fails every mirror is cleared, so a failed update never leaves
// the mirrors disagreeing.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	if access == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setTokensLocked(ctx, access, refresh); err != nil {
		if clearErr := s.clearLocked(ctx); clearErr != nil {
			s.logger.Error("credstore: rollback after failed write", "err", clearErr)
		}
		return fmt.Errorf("credstore: set tokens: %w", err)
	}

	s.logger.Debug("credentials stored",
		"access_fp", cryptox.FingerprintToken(access),
		"refresh_fp", cryptox.FingerprintToken(refresh),
	)
	return nil
}

func (s *Store) setTokensLocked(ctx context.Context, access, refresh string) error {
	if err := s.longLived.Set(ctx, KeyAccessToken, access); err != nil {
		return err
	}
	if err := s.longLived.Set(ctx, KeyLegacyToken, access); err != nil {
		return err
	}
	if refresh != "" {
		if err := s.longLived.Set(ctx, KeyRefreshToken, refresh); err != nil {
			return err
		}
	} else if err := s.longLived.Delete(ctx, KeyRefreshToken); err != nil {
		return err
	}
	if err := s.session.Set(ctx, KeyAccessToken, access); err != nil {
		return err
	}

	s.jar.SetCookies(s.cookieURL, []*http.Cookie{AccessTokenCookie(access)})
	return nil
}

// Clear removes the credential from both scopes and expires both cookies.
// It is idempotent and safe to call when nothing is stored.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.clearLocked(ctx); err != nil {
		return fmt.Errorf("credstore: clear: %w", err)
	}

	s.logger.Debug("credentials cleared")
	return nil
}

func (s *Store) clearLocked(ctx context.Context) error {
	var errs []error
	for _, key := range []string{KeyAccessToken, KeyLegacyToken, KeyRefreshToken, KeyUserInfo} {
		errs = append(errs, s.longLived.Delete(ctx, key))
	}
	errs = append(errs, s.session.Delete(ctx, KeyAccessToken))

	// Cookies go regardless of storage errors.
	s.jar.SetCookies(s.cookieURL, []*http.Cookie{
		ExpiredCookie(CookieAccessToken),
		ExpiredCookie(CookieRefreshToken),
	})

	return errors.Join(errs...)
}

// SetUserInfo stores the logged-in user's profile as JSON.
func (s *Store) SetUserInfo(ctx context.Context, info json.RawMessage) error {
	if !json.Valid(info) {
		return errors.New("credstore: user info is not valid JSON")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.longLived.Set(ctx, KeyUserInfo, string(info)); err != nil {
		return fmt.Errorf("credstore: set user info: %w", err)
	}
	return nil
}

// UserInfo returns the stored profile JSON, or nil when absent.
func (s *Store) UserInfo(ctx context.Context) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, err := get(ctx, s.longLived, KeyUserInfo)
	if err != nil || v == "" {
		return nil, err
	}
	return json.RawMessage(v), nil
}

// get maps ErrNotFound to "".
func get(ctx context.Context, scope Scope, key string) (string, error) {
	v, err := scope.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("credstore: get %q: %w", key, err)
	}
	return v, nil
}
