package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/crowdpetition/crowdpetition/internal/api/response"
	"github.com/crowdpetition/crowdpetition/internal/auth"
)

// AuthHeader carries the session token issued at login.
const AuthHeader = "X-Authorization"

const identityKey contextKey = "identity"

// CallerResolver maps a session token to a caller identity.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, token string) (*auth.Identity, error)
}

// Authenticate resolves the X-Authorization header into an Identity when one
// is present. Anonymous requests pass through with no identity; handlers and
// RequireAuth decide whether that is acceptable.
func Authenticate(resolver CallerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(AuthHeader)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := resolver.ResolveCaller(r.Context(), token)
			if err != nil {
				requestID := GetRequestID(r.Context())
				slog.Error("failed to resolve session", "error", err, "requestId", requestID)
				response.Err(w, http.StatusInternalServerError, response.CodeInternal, "Authentication failed", requestID)
				return
			}
			if identity == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying the identity.
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity retrieves the authenticated Identity from the request context.
// It returns nil for anonymous requests.
func GetIdentity(ctx context.Context) *auth.Identity {
	if id, ok := ctx.Value(identityKey).(*auth.Identity); ok {
		return id
	}
	return nil
}
