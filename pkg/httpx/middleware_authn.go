package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/frenchtutorhub/hub/pkg/jwtx"
	"github.com/frenchtutorhub/hub/pkg/slogx"
)

// AuthnMiddleware requires a valid Bearer access token. Failures answer 401
// with the body shape the FrenchTutor API uses for rejected tokens.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeNotAuthenticated(w, "Authentication credentials were not provided.", "not_authenticated")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("jwt verify failed", "err", err)
				writeNotAuthenticated(w, "Given token not valid for any token type", "token_not_valid")
				return
			}

			if claims.TokenType != jwtx.TokenTypeAccess {
				writeNotAuthenticated(w, "Given token not valid for any token type", "token_not_valid")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithAuth(ctx, claims)))
		})
	}
}

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, string(c.UserID))
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

func writeNotAuthenticated(w http.ResponseWriter, detail, code string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"detail": detail,
		"code":   code,
	})
}
