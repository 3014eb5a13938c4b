package credstore

import (
	"net/http"
	"time"
)

// Cookie names mirrored for server-rendered pages.
const (
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"
)

// AccessCookieMaxAge is the lifetime of the access_token cookie. It is fixed
// and independent of the token's own exp claim.
const AccessCookieMaxAge = 3600 * time.Second

// cookieEpoch is "Thu, 01 Jan 1970 00:00:01 GMT", the expiry used to delete
// cookies.
var cookieEpoch = time.Unix(1, 0).UTC()

// AccessTokenCookie is the cookie written on every SetTokens.
func AccessTokenCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieAccessToken,
		Value:    token,
		Path:     "/",
		MaxAge:   int(AccessCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(AccessCookieMaxAge),
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredCookie deletes the named cookie.
func ExpiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  cookieEpoch,
		SameSite: http.SameSiteLaxMode,
	}
}
