package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alwitt/chronicle/auth"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func utTokenServiceParams() auth.TokenServiceParams {
	return auth.TokenServiceParams{
		SigningSecret: strings.Repeat("0123456789abcdef", 4),
		Issuer:        "chronicle-ut",
		AccessTTL:     time.Minute * 15,
		RefreshTTL:    time.Hour * 24 * 7,
	}
}

// TestTokenServiceParamValidation verifies constructor parameter checks.
func TestTokenServiceParamValidation(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	// 1 - Secret too short
	params := utTokenServiceParams()
	params.SigningSecret = "short"
	_, err := auth.NewTokenService(utCtx, params)
	assert.NotNil(err)

	// 2 - Access TTL not shorter than refresh TTL
	params = utTokenServiceParams()
	params.AccessTTL = params.RefreshTTL
	_, err = auth.NewTokenService(utCtx, params)
	assert.NotNil(err)

	// 3 - Valid parameters
	_, err = auth.NewTokenService(utCtx, utTokenServiceParams())
	assert.Nil(err)
}

// TestTokenServicePairLifecycle verifies issued pairs verify correctly and
// that token kind is enforced in both directions.
func TestTokenServicePairLifecycle(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	uut, err := auth.NewTokenService(utCtx, utTokenServiceParams())
	assert.Nil(err)

	userID := uuid.NewString()
	email := "ut-user@unit-test.dev"

	// 1 - Issue a pair
	pair, err := uut.IssuePair(utCtx, userID, email)
	assert.Nil(err)
	assert.NotEmpty(pair.Access)
	assert.NotEmpty(pair.Refresh)
	assert.NotEqual(pair.Access, pair.Refresh)

	// 2 - The access token verifies as an access token
	claims, err := uut.VerifyAccess(utCtx, pair.Access)
	assert.Nil(err)
	assert.Equal(userID, claims.Subject)
	assert.Equal(email, claims.Email)
	assert.Equal(auth.TokenKindAccess, claims.Kind)

	// 3 - The refresh token verifies as a refresh token
	claims, err = uut.VerifyRefresh(utCtx, pair.Refresh)
	assert.Nil(err)
	assert.Equal(userID, claims.Subject)
	assert.Equal(auth.TokenKindRefresh, claims.Kind)

	// 4 - A refresh token must not pass access verification
	_, err = uut.VerifyAccess(utCtx, pair.Refresh)
	assert.NotNil(err)
	assert.ErrorIs(err, auth.ErrWrongTokenKind)

	// 5 - An access token must not pass refresh verification
	_, err = uut.VerifyRefresh(utCtx, pair.Access)
	assert.NotNil(err)
	assert.ErrorIs(err, auth.ErrWrongTokenKind)
}

// TestTokenServiceRejection verifies expired tokens are reported distinctly
// from invalid ones.
func TestTokenServiceRejection(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	// Service minting already expired access tokens
	expiredParams := utTokenServiceParams()
	expiredParams.AccessTTL = -time.Minute
	expiredParams.RefreshTTL = time.Minute
	uutExpired, err := auth.NewTokenService(utCtx, expiredParams)
	assert.Nil(err)

	uut, err := auth.NewTokenService(utCtx, utTokenServiceParams())
	assert.Nil(err)

	userID := uuid.NewString()

	// 1 - An expired token reports expiry, not general invalidity
	pair, err := uutExpired.IssuePair(utCtx, userID, "ut-user@unit-test.dev")
	assert.Nil(err)
	_, err = uutExpired.VerifyAccess(utCtx, pair.Access)
	assert.NotNil(err)
	assert.ErrorIs(err, auth.ErrTokenExpired)
	assert.NotErrorIs(err, auth.ErrTokenInvalid)

	// 2 - Garbage is invalid, not expired
	_, err = uut.VerifyAccess(utCtx, "not-a-token")
	assert.NotNil(err)
	assert.ErrorIs(err, auth.ErrTokenInvalid)
	assert.NotErrorIs(err, auth.ErrTokenExpired)

	// 3 - A token signed under a different secret is invalid
	otherParams := utTokenServiceParams()
	otherParams.SigningSecret = strings.Repeat("fedcba9876543210", 4)
	uutOther, err := auth.NewTokenService(utCtx, otherParams)
	assert.Nil(err)

	foreignPair, err := uutOther.IssuePair(utCtx, userID, "ut-user@unit-test.dev")
	assert.Nil(err)
	_, err = uut.VerifyAccess(utCtx, foreignPair.Access)
	assert.NotNil(err)
	assert.ErrorIs(err, auth.ErrTokenInvalid)

	// 4 - A tampered token is invalid
	tampered := pair.Access[:len(pair.Access)-2] + "xx"
	_, err = uutExpired.VerifyAccess(utCtx, tampered)
	assert.NotNil(err)
	assert.ErrorIs(err, auth.ErrTokenInvalid)
}
