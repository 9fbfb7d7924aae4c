package middleware

import (
	"context"
	"net/http"
	"strings"

	"carehive/internal/ports/auth"
)

type ctxKey struct{}

// Headers del modo dev (sin verifier). Con verifier se ignoran.
const (
	DebugUserHeader = "X-Debug-User-ID"
	DebugRoleHeader = "X-Debug-Role"
)

// AuthContext resuelve la identidad del request y la deja en el contexto.
// Nunca corta: un request sin identidad sigue y cada handler responde 401.
//
// Con verifier solo cuenta el Bearer token. Sin verifier (dev) la app
// móvil y el dashboard mandan X-Debug-User-ID y, opcionalmente, X-Debug-Role.
func AuthContext(verifier auth.AuthVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, ok := resolveClaims(r, verifier); ok {
				r = r.WithContext(WithClaims(r.Context(), c))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolveClaims(r *http.Request, verifier auth.AuthVerifier) (auth.Claims, bool) {
	if verifier == nil {
		uid := strings.TrimSpace(r.Header.Get(DebugUserHeader))
		if uid == "" {
			return auth.Claims{}, false
		}
		return auth.Claims{UserID: uid, Role: strings.TrimSpace(r.Header.Get(DebugRoleHeader))}, true
	}

	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return auth.Claims{}, false
	}
	c, err := verifier.Verify(r.Context(), token)
	if err != nil || strings.TrimSpace(c.UserID) == "" {
		return auth.Claims{}, false
	}
	return c, true
}

// WithClaims deja la identidad en ctx.
func WithClaims(ctx context.Context, c auth.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func GetClaims(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(auth.Claims)
	return c, ok
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
