package middleware

import (
	"net/http"

	"github.com/crowdpetition/crowdpetition/internal/api/response"
)

// RequireAuth rejects requests without a resolved identity with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetIdentity(r.Context()) == nil {
			response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized,
				"A valid X-Authorization session token is required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
