// Package gate - HTTP session enforcement
package gate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/alwitt/chronicle/auth"
	"github.com/apex/log"
)

// contextKey private key type for request context values
type contextKey string

const identityContextKey contextKey = "chronicle-session-identity"

// Identity the verified caller of an authenticated request
type Identity struct {
	// UserID the verified user ID
	UserID string `json:"user_id"`
	// Email the user's login email at token mint time
	Email string `json:"email"`
}

/*
IdentityFromContext read the verified identity placed by RequireSession

	@param ctx context.Context - request context
	@returns the identity, and whether one was present
*/
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(Identity)
	return identity, ok
}

// bearerToken extract the bearer token from a request's Authorization header
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// respondUnauthorized write a JSON 401 response
func respondUnauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": reason})
}

/*
RequireSession wrap a handler so only requests carrying a valid access token
pass through.

A missing header, a malformed header, an invalid token, an expired token, and
a refresh token presented in place of an access token all stop here with 401.
The expired case reports a distinct reason string so clients know to attempt a
refresh. On success the verified identity is attached to the request context.

	@param tokens auth.TokenService - session token verifier
	@returns HTTP middleware
*/
func RequireSession(tokens auth.TokenService) func(http.Handler) http.Handler {
	logTags := log.Fields{"module": "gate", "component": "session-gate"}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				respondUnauthorized(w, "missing bearer token")
				return
			}

			claims, err := tokens.VerifyAccess(r.Context(), token)
			if err != nil {
				log.WithError(err).WithFields(logTags).Debug("Rejected session token")
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					respondUnauthorized(w, "session token expired")
				case errors.Is(err, auth.ErrWrongTokenKind):
					respondUnauthorized(w, "not an access token")
				default:
					respondUnauthorized(w, "session token invalid")
				}
				return
			}

			identity := Identity{UserID: claims.Subject, Email: claims.Email}
			next.ServeHTTP(w, r.WithContext(
				context.WithValue(r.Context(), identityContextKey, identity),
			))
		})
	}
}
