package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"
)

const ownerIDKey contextKey = "owner_id"

// BasicAuth guards the admin publish endpoint with HTTP basic auth.
// On success the owner UUID is stored on the request context; it scopes
// idempotency keys to the authenticated principal.
//
// Session-based admin auth and password hashing are deliberately out of
// scope; credentials come from configuration.
func BasicAuth(username, password string, ownerID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="publish"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ownerIDKey, ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOwnerID retrieves the authenticated owner stored by BasicAuth.
func GetOwnerID(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ownerIDKey).(uuid.UUID)
	return v, ok
}
