package hubsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/frenchtutorhub/hub/pkg/cryptox"
	"github.com/frenchtutorhub/hub/pkg/jwtx"
)

// Login exchanges username and password for a token pair and stores it.
// When the store keeps user info, the returned user is stored too.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidArgument)
	}

	out, err := call[*LoginResponse](ctx, c, Request{
		Endpoint: PathLogin,
		Method:   MethodPost,
		Body:     LoginRequest{Username: username, Password: password},
	})
	if err != nil {
		return nil, err
	}
	if out == nil || out.Access == "" {
		return nil, fmt.Errorf("hubsdk: login response carried no access token")
	}

	if err := c.creds.SetTokens(ctx, out.Access, out.Refresh); err != nil {
		return nil, fmt.Errorf("hubsdk: store tokens: %w", err)
	}

	if uis, ok := c.creds.(UserInfoStore); ok && out.User != nil {
		info, err := json.Marshal(out.User)
		if err == nil {
			err = uis.SetUserInfo(ctx, info)
		}
		if err != nil {
			c.log(ctx).Warn("store user info failed", "error", err)
		}
	}

	c.log(ctx).Info("logged in",
		"username", username,
		"access_fp", cryptox.FingerprintToken(out.Access),
	)
	return out, nil
}

// Register creates an account. Validation failures come back as an
// *HTTPError whose message lists the offending fields.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrInvalidArgument)
	}

	user, err := call[*User](ctx, c, Request{
		Endpoint: PathRegister,
		Method:   MethodPost,
		Body:     req,
	})
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusBadRequest {
			if fields := httpErr.FieldErrors(); len(fields) > 0 {
				httpErr.Message = validationMessage(fields, registrationFields)
			}
		}
		return nil, err
	}
	return user, nil
}

// Logout ends the server session and clears local credentials. Server-side
// failures are logged and do not stop the local clear.
func (c *Client) Logout(ctx context.Context) error {
	token, err := c.creds.AccessToken(ctx)
	if err == nil && token != "" {
		header := http.Header{}
		if csrf := c.logoutCSRF(ctx); csrf != "" {
			header.Set(HeaderCSRF, csrf)
		}
		// Sent without refresh-and-retry: an expired token must not trigger
		// a refresh on the way out.
		if _, err := c.send(ctx, Request{
			Endpoint: PathLogout,
			Method:   MethodPost,
			Auth:     true,
			Header:   header,
		}, token); err != nil {
			c.log(ctx).Warn("server logout failed", "error", err)
		}
	}

	if err := c.creds.Clear(ctx); err != nil {
		return fmt.Errorf("hubsdk: clear credentials: %w", err)
	}
	c.log(ctx).Info("logged out")
	return nil
}

// logoutCSRF returns the CSRF token for the logout call. A fresh cookie jar
// holds no csrftoken yet, so one public request fetches it first.
func (c *Client) logoutCSRF(ctx context.Context) string {
	csrf, err := c.csrf(ctx)
	if err == nil && csrf == "" {
		if _, err := c.send(ctx, Request{
			Endpoint: PathCourses,
			Method:   MethodGet,
			Query:    url.Values{"limit": {"1"}},
		}, ""); err != nil {
			c.log(ctx).Debug("csrf cookie request failed", "error", err)
		}
		csrf, err = c.csrf(ctx)
	}
	if err != nil {
		c.log(ctx).Warn("csrf token unavailable for logout", "error", err)
		return ""
	}
	return csrf
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	return call[*User](ctx, c, Request{Endpoint: PathMe, Method: MethodGet, Auth: true})
}

// IsAuthenticated reports whether an access token is stored. It does not
// check validity with the server.
func (c *Client) IsAuthenticated(ctx context.Context) (bool, error) {
	token, err := c.creds.AccessToken(ctx)
	if err != nil {
		return false, err
	}
	return token != "", nil
}

// TokenInfo decodes the stored access token without verifying its
// signature. It returns ErrAuthExpired when no token is stored.
func (c *Client) TokenInfo(ctx context.Context) (*TokenInfo, error) {
	token, err := c.creds.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrAuthExpired
	}

	claims, err := jwtx.Inspect(token)
	if err != nil {
		return nil, fmt.Errorf("hubsdk: inspect access token: %w", err)
	}

	info := &TokenInfo{
		UserID:    string(claims.UserID),
		TokenType: claims.TokenType,
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
		info.Expired = !time.Now().Before(info.ExpiresAt)
	}
	return info, nil
}
