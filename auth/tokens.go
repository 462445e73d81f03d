// Package auth - session credentials: signed tokens and password hashing
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired the token signature is valid but the token has expired.
	// Callers holding an expired access token should attempt a refresh.
	ErrTokenExpired = errors.New("session token expired")

	// ErrTokenInvalid the token is malformed, carries a bad signature, or uses
	// an unexpected signing method
	ErrTokenInvalid = errors.New("session token invalid")

	// ErrWrongTokenKind the token verified but is of the wrong kind for the
	// operation (e.g. an access token presented to the refresh flow)
	ErrWrongTokenKind = errors.New("session token kind mismatch")
)

// TokenKindENUMType session token kind ENUM value type
type TokenKindENUMType string

const (
	// TokenKindAccess short lived token proving identity for a single request window
	TokenKindAccess TokenKindENUMType = "access"
	// TokenKindRefresh long lived token used solely to mint a new token pair
	TokenKindRefresh TokenKindENUMType = "refresh"
)

// SessionClaims the verified payload of a session token
type SessionClaims struct {
	// Email the subject's login email at mint time
	Email string `json:"email"`
	// Kind distinguishes access from refresh tokens
	Kind TokenKindENUMType `json:"kind"`
	jwt.RegisteredClaims
}

// TokenPair one freshly minted access / refresh token pair
type TokenPair struct {
	// Access the short lived access token
	Access string `json:"access_token"`
	// Refresh the long lived refresh token
	Refresh string `json:"refresh_token"`
}

/*
TokenService issues and verifies signed, time bounded session tokens.

Tokens are self describing and verified by signature alone; the service holds
no session table and offers no revocation.
*/
type TokenService interface {
	/*
		IssuePair mint a new access / refresh token pair for a user

			@param ctx context.Context - execution context
			@param subjectID string - the user ID the pair is bound to
			@param email string - the user's login email
			@returns the token pair
	*/
	IssuePair(ctx context.Context, subjectID string, email string) (TokenPair, error)

	/*
		VerifyAccess verify and decode an access token

			@param ctx context.Context - execution context
			@param token string - the presented token
			@returns the verified claims
	*/
	VerifyAccess(ctx context.Context, token string) (SessionClaims, error)

	/*
		VerifyRefresh verify and decode a refresh token

		A token minted as "access" is rejected here even with a valid signature.

			@param ctx context.Context - execution context
			@param token string - the presented token
			@returns the verified claims
	*/
	VerifyRefresh(ctx context.Context, token string) (SessionClaims, error)
}

// TokenServiceParams token service init parameters
type TokenServiceParams struct {
	// SigningSecret the server held HMAC signing secret
	SigningSecret string `validate:"required,min=32"`
	// Issuer optional issuer claim stamped on and required of every token
	Issuer string
	// AccessTTL lifetime of access tokens (minutes scale)
	AccessTTL time.Duration `validate:"required"`
	// RefreshTTL lifetime of refresh tokens (days scale)
	RefreshTTL time.Duration `validate:"required"`
}

// tokenService implements TokenService
type tokenService struct {
	goutils.Component
	params TokenServiceParams
	secret []byte
}

/*
NewTokenService define new session token service

	@param ctx context.Context - execution context
	@param params TokenServiceParams - service parameters
	@returns service instance
*/
func NewTokenService(_ context.Context, params TokenServiceParams) (TokenService, error) {
	validate := validator.New()
	if err := validate.Struct(&params); err != nil {
		return nil, fmt.Errorf("invalid token service parameters [%w]", err)
	}
	if params.AccessTTL >= params.RefreshTTL {
		return nil, fmt.Errorf(
			"access TTL %s must be shorter than refresh TTL %s", params.AccessTTL, params.RefreshTTL,
		)
	}

	logTags := log.Fields{"module": "auth", "component": "token-service"}

	return &tokenService{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		params: params,
		secret: []byte(params.SigningSecret),
	}, nil
}

// mintToken sign one token of the given kind
func (t *tokenService) mintToken(
	kind TokenKindENUMType, ttl time.Duration, subjectID string, email string,
) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Email: email,
		Kind:  kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    t.params.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign '%s' token [%w]", kind, err)
	}
	return signed, nil
}

/*
IssuePair mint a new access / refresh token pair for a user

	@param ctx context.Context - execution context
	@param subjectID string - the user ID the pair is bound to
	@param email string - the user's login email
	@returns the token pair
*/
func (t *tokenService) IssuePair(
	_ context.Context, subjectID string, email string,
) (TokenPair, error) {
	access, err := t.mintToken(TokenKindAccess, t.params.AccessTTL, subjectID, email)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := t.mintToken(TokenKindRefresh, t.params.RefreshTTL, subjectID, email)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{Access: access, Refresh: refresh}, nil
}

// verifyToken verify signature, expiry, and kind of one token
func (t *tokenService) verifyToken(
	tokenStr string, expectedKind TokenKindENUMType,
) (SessionClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if t.params.Issuer != "" {
		options = append(options, jwt.WithIssuer(t.params.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(
		tokenStr, &SessionClaims{}, func(_ *jwt.Token) (interface{}, error) {
			return t.secret, nil
		},
	)
	if err != nil {
		// An expired-but-correctly-signed token gets a distinct reason; the
		// refresh flow reacts differently to expiry than to a bad signature.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, fmt.Errorf("token verification failed [%w]", ErrTokenExpired)
		}
		return SessionClaims{}, fmt.Errorf("token verification failed [%w]", ErrTokenInvalid)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return SessionClaims{}, fmt.Errorf("token claims unusable [%w]", ErrTokenInvalid)
	}

	if claims.Kind != expectedKind {
		return SessionClaims{}, fmt.Errorf(
			"expected '%s' token, got '%s' [%w]", expectedKind, claims.Kind, ErrWrongTokenKind,
		)
	}

	return *claims, nil
}

/*
VerifyAccess verify and decode an access token

	@param ctx context.Context - execution context
	@param token string - the presented token
	@returns the verified claims
*/
func (t *tokenService) VerifyAccess(_ context.Context, token string) (SessionClaims, error) {
	return t.verifyToken(token, TokenKindAccess)
}

/*
VerifyRefresh verify and decode a refresh token

	@param ctx context.Context - execution context
	@param token string - the presented token
	@returns the verified claims
*/
func (t *tokenService) VerifyRefresh(_ context.Context, token string) (SessionClaims, error) {
	return t.verifyToken(token, TokenKindRefresh)
}
