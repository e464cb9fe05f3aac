package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/guildsight/guildsight/internal/model"
	"github.com/guildsight/guildsight/internal/service"
)

type contextKeyAuth string

// authContextKey is the context key for the authenticated caller.
const authContextKey contextKeyAuth = "auth_context"

// Authenticate returns an HTTP middleware that validates the request's
// bearer credential (Authorization: Bearer sk_live_...). Missing,
// malformed, unknown, and revoked tokens all produce the same 401
// response; only internal logs record which it was. On success the
// caller's AuthContext is attached to the request context.
func Authenticate(auth *service.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)

			ac, err := auth.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrUnauthenticated) {
					writeAuthError(w, http.StatusUnauthorized, "Authentication required")
					return
				}
				// Storage trouble, not a credential problem.
				writeAuthError(w, http.StatusServiceUnavailable, "Service unavailable")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), ac)))
		})
	}
}

// RequireRole returns an HTTP middleware that enforces the role
// hierarchy for the given requirement. It must run after Authenticate.
func RequireRole(required model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := service.Authorize(GetAuthContext(r.Context()), required); err != nil {
				writeAuthError(w, http.StatusForbidden, "Insufficient privileges")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithAuthContext attaches the authenticated caller to the context.
func WithAuthContext(ctx context.Context, ac *service.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// GetAuthContext extracts the authenticated caller from the context.
// Returns nil for unauthenticated requests.
func GetAuthContext(ctx context.Context) *service.AuthContext {
	if ac, ok := ctx.Value(authContextKey).(*service.AuthContext); ok {
		return ac
	}
	return nil
}

// bearerToken extracts the token from the Authorization header. An
// empty return means missing or not a bearer scheme; the verifier
// treats both as just another malformed token.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	const scheme = "Bearer "
	if !strings.HasPrefix(h, scheme) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, scheme))
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Manually construct JSON to avoid an import cycle with the handler
	// package.
	w.Write([]byte(`{"error":{"code":` + strconv.Itoa(status) + `,"message":"` + message + `"}}`))
}
