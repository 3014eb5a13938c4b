package fakehub

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/frenchtutorhub/hub/pkg/jwtx"
)

var errRevoked = errors.New("fakehub: token revoked")

// tokenIssuer signs HS256 pairs the way the backend's simplejwt setup does
// and keeps the revocation state the real blacklist app would.
type tokenIssuer struct {
	hs         *jwtx.HS256
	accessTTL  time.Duration
	refreshTTL time.Duration

	mu          sync.Mutex
	liveAccess  map[string]bool // jti -> still valid
	blacklisted map[string]bool // refresh jti
}

func newTokenIssuer(secret []byte, accessTTL, refreshTTL time.Duration) (*tokenIssuer, error) {
	hs, err := jwtx.NewHS256(secret)
	if err != nil {
		return nil, err
	}
	return &tokenIssuer{
		hs:          hs,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		liveAccess:  make(map[string]bool),
		blacklisted: make(map[string]bool),
	}, nil
}

func (t *tokenIssuer) issueAccess(userID int64) (string, error) {
	claims := jwtx.NewAccessClaims(strconv.FormatInt(userID, 10), t.accessTTL, time.Now())
	token, err := t.hs.Sign(claims)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	t.liveAccess[claims.ID] = true
	t.mu.Unlock()
	return token, nil
}

func (t *tokenIssuer) issueRefresh(userID int64) (string, error) {
	return t.hs.Sign(jwtx.NewRefreshClaims(strconv.FormatInt(userID, 10), t.refreshTTL, time.Now()))
}

func (t *tokenIssuer) issuePair(userID int64) (string, string, error) {
	access, err := t.issueAccess(userID)
	if err != nil {
		return "", "", err
	}
	refresh, err := t.issueRefresh(userID)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Verify implements jwtx.Verifier. Access tokens must also still be live.
func (t *tokenIssuer) Verify(token string) (jwtx.Claims, error) {
	claims, err := t.hs.Verify(token)
	if err != nil {
		return jwtx.Claims{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	switch claims.TokenType {
	case jwtx.TokenTypeAccess:
		if !t.liveAccess[claims.ID] {
			return jwtx.Claims{}, errRevoked
		}
	case jwtx.TokenTypeRefresh:
		if t.blacklisted[claims.ID] {
			return jwtx.Claims{}, errRevoked
		}
	}
	return claims, nil
}

// verifyRefresh checks token is an unrevoked refresh token.
func (t *tokenIssuer) verifyRefresh(token string) (jwtx.Claims, error) {
	claims, err := t.Verify(token)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if claims.TokenType != jwtx.TokenTypeRefresh {
		return jwtx.Claims{}, jwtx.ErrInvalidClaim
	}
	return claims, nil
}

func (t *tokenIssuer) revokeAllAccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.liveAccess)
}

func (t *tokenIssuer) revokeRefresh(token string) {
	claims, err := t.hs.Verify(token)
	if err != nil {
		return
	}
	t.blacklistJTI(claims.ID)
}

func (t *tokenIssuer) blacklistJTI(jti string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.blacklisted[jti] = true
}
