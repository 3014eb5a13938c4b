package jwtx

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Inspect decodes a token's claims WITHOUT verifying its signature. Clients
// hold no signing secret; use this only to read expiry and identity for
// display or scheduling, never to make an authorization decision.
func Inspect(tokenStr string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return claims, nil
}
