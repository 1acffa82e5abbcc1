package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"cerbero.org/internal/auth"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "

	// tokenCookie mirrors the bearer token for browser clients. HttpOnly,
	// SameSite=Strict, expiry matched to the token's exp claim.
	tokenCookie = "jwt_token"
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/signup",
	"/v1/auth/logout",
	"/healthz",
	"/readyz",
	"/metrics",
	"/",
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// withAuth verifies the bearer token on every non-public request and attaches
// its claims to the context. The Authorization header wins; the cookie is the
// fallback for browser sessions.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := tokenFromRequest(r)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.auth.VerifyToken(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := auth.ContextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensureRole guards mutating admin endpoints. It writes the response itself
// and reports whether the handler may continue.
func (a *API) ensureRole(w http.ResponseWriter, r *http.Request, role string) bool {
	if auth.HasRole(r.Context(), role) {
		return true
	}
	writeError(w, r, http.StatusForbidden, "insufficient role")
	return false
}

func tokenFromRequest(r *http.Request) (string, error) {
	if header := strings.TrimSpace(r.Header.Get(authHeader)); header != "" {
		if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerPrefix)) {
			return "", errors.New("invalid authorization scheme")
		}
		token := strings.TrimSpace(header[len(bearerPrefix):])
		if token == "" {
			return "", errors.New("missing bearer token")
		}
		return token, nil
	}
	if cookie, err := r.Cookie(tokenCookie); err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token, nil
		}
	}
	return "", errors.New("missing bearer token")
}
