package gate_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alwitt/chronicle/auth"
	"github.com/alwitt/chronicle/gate"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func utGateTokenService(t *testing.T, accessTTL time.Duration) auth.TokenService {
	uut, err := auth.NewTokenService(context.Background(), auth.TokenServiceParams{
		SigningSecret: strings.Repeat("0123456789abcdef", 4),
		Issuer:        "chronicle-ut",
		AccessTTL:     accessTTL,
		RefreshTTL:    time.Hour * 24,
	})
	assert.Nil(t, err)
	return uut
}

// TestRequireSession verifies the session middleware accepts valid access
// tokens and rejects everything else with 401.
func TestRequireSession(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	tokens := utGateTokenService(t, time.Minute*15)

	userID := uuid.NewString()
	email := "ut-user@unit-test.dev"
	pair, err := tokens.IssuePair(utCtx, userID, email)
	assert.Nil(err)

	// The protected handler records the identity it sees
	var seen gate.Identity
	var sawIdentity bool
	handler := gate.RequireSession(tokens)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, sawIdentity = gate.IdentityFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}),
	)

	// -------------------------------------------------------------------------
	// 1 - A valid access token passes and the identity is attached
	request := httptest.NewRequest(http.MethodGet, "/entries", nil)
	request.Header.Set("Authorization", "Bearer "+pair.Access)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(http.StatusOK, recorder.Code)
	assert.True(sawIdentity)
	assert.Equal(userID, seen.UserID)
	assert.Equal(email, seen.Email)

	// 2 - No Authorization header
	sawIdentity = false
	request = httptest.NewRequest(http.MethodGet, "/entries", nil)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(http.StatusUnauthorized, recorder.Code)
	assert.False(sawIdentity)

	// 3 - Malformed Authorization header
	request = httptest.NewRequest(http.MethodGet, "/entries", nil)
	request.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(http.StatusUnauthorized, recorder.Code)

	// 4 - Garbage bearer token
	request = httptest.NewRequest(http.MethodGet, "/entries", nil)
	request.Header.Set("Authorization", "Bearer not-a-token")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(http.StatusUnauthorized, recorder.Code)

	// 5 - A refresh token is not an access token
	request = httptest.NewRequest(http.MethodGet, "/entries", nil)
	request.Header.Set("Authorization", "Bearer "+pair.Refresh)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(http.StatusUnauthorized, recorder.Code)
	assert.Contains(recorder.Body.String(), "not an access token")

	// 6 - An expired access token reports the refresh hint
	expiredTokens := utGateTokenService(t, -time.Minute)
	expiredPair, err := expiredTokens.IssuePair(utCtx, userID, email)
	assert.Nil(err)

	expiredHandler := gate.RequireSession(expiredTokens)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)
	request = httptest.NewRequest(http.MethodGet, "/entries", nil)
	request.Header.Set("Authorization", "Bearer "+expiredPair.Access)
	recorder = httptest.NewRecorder()
	expiredHandler.ServeHTTP(recorder, request)
	assert.Equal(http.StatusUnauthorized, recorder.Code)
	assert.Contains(recorder.Body.String(), "expired")
}

// TestIdentityFromContext verifies context reads without the middleware.
func TestIdentityFromContext(t *testing.T) {
	assert := assert.New(t)

	_, ok := gate.IdentityFromContext(context.Background())
	assert.False(ok)
}
