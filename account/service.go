// Package account - user registration and session lifecycle
package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/alwitt/chronicle/auth"
	"github.com/alwitt/chronicle/db"
	"github.com/alwitt/chronicle/models"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrEmailTaken a user with this login email already exists
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials login rejected. Unknown email and wrong password
	// report this same error; which one failed is never revealed.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// RegisterRequest parameters for registering a new user
type RegisterRequest struct {
	// Email unique login email
	Email string `validate:"required,email"`
	// DisplayName user facing name
	DisplayName string `validate:"required,min=1,max=128"`
	// Password the login password, hashed before persisting
	Password string `validate:"required,min=8,max=512"`
}

// Session a user together with a freshly minted token pair
type Session struct {
	// User the session's user
	User models.User `json:"user"`
	// Tokens the access / refresh token pair
	Tokens auth.TokenPair `json:"tokens"`
}

/*
Service owns user accounts and their session lifecycle.

Passwords are stored only as salted argon2id hashes. Sessions are stateless
token pairs; a refresh mints a brand new pair and the server keeps no session
table.
*/
type Service interface {
	/*
		Register create a new user and start their first session

			@param ctx context.Context - execution context
			@param request RegisterRequest - the registration parameters
			@returns the new user with a fresh token pair
	*/
	Register(ctx context.Context, request RegisterRequest) (Session, error)

	/*
		Login verify credentials and start a new session

		Unknown email and wrong password are indistinguishable to the caller.

			@param ctx context.Context - execution context
			@param email string - login email
			@param password string - login password
			@returns the user with a fresh token pair
	*/
	Login(ctx context.Context, email string, password string) (Session, error)

	/*
		Refresh exchange a refresh token for a brand new token pair

		The presented token must verify as a refresh token, and the user it
		names must still exist.

			@param ctx context.Context - execution context
			@param refreshToken string - the presented refresh token
			@returns the user with a fresh token pair
	*/
	Refresh(ctx context.Context, refreshToken string) (Session, error)

	/*
		GetProfile fetch a user's profile

			@param ctx context.Context - execution context
			@param userID string - user ID
			@returns the user entry
	*/
	GetProfile(ctx context.Context, userID string) (models.User, error)

	/*
		DeleteAccount delete a user and all of their journal entries

			@param ctx context.Context - execution context
			@param userID string - user ID
	*/
	DeleteAccount(ctx context.Context, userID string) error
}

// accountService implements Service
type accountService struct {
	goutils.Component

	persistence db.Client

	tokens auth.TokenService

	passwords auth.PasswordHasher

	validator *validator.Validate
}

/*
NewService define new account service

	@param ctx context.Context - execution context
	@param persistence db.Client - persistence layer client
	@param tokens auth.TokenService - session token service
	@param passwords auth.PasswordHasher - password hasher
	@returns service instance
*/
func NewService(
	_ context.Context, persistence db.Client, tokens auth.TokenService, passwords auth.PasswordHasher,
) (Service, error) {
	logTags := log.Fields{"module": "account", "component": "account-service"}

	return &accountService{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		persistence: persistence,
		tokens:      tokens,
		passwords:   passwords,
		validator:   validator.New(),
	}, nil
}

/*
Register create a new user and start their first session

	@param ctx context.Context - execution context
	@param request RegisterRequest - the registration parameters
	@returns the new user with a fresh token pair
*/
func (s *accountService) Register(ctx context.Context, request RegisterRequest) (Session, error) {
	logTags := s.GetLogTagsForContext(ctx)

	if err := s.validator.Struct(&request); err != nil {
		return Session{}, fmt.Errorf("registration request is not valid [%w]", err)
	}

	passwordHash, err := s.passwords.Hash(ctx, request.Password)
	if err != nil {
		return Session{}, fmt.Errorf("failed to hash password for '%s' [%w]", request.Email, err)
	}

	var user models.User
	if dbErr := s.persistence.UseDatabaseInTransaction(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			// The unique index on email is the final arbiter; this check exists
			// to report the friendlier error
			if _, err := dbClient.GetUserByEmail(dbCtx, request.Email); err == nil {
				return ErrEmailTaken
			} else if !db.IsRecordNotFound(err) {
				return err
			}

			var err error
			user, err = dbClient.DefineNewUser(
				dbCtx, request.Email, request.DisplayName, passwordHash,
			)
			return err
		},
	); dbErr != nil {
		if errors.Is(dbErr, ErrEmailTaken) {
			return Session{}, fmt.Errorf("registration of '%s' rejected [%w]", request.Email, ErrEmailTaken)
		}
		return Session{}, fmt.Errorf("failed to register '%s' [%w]", request.Email, dbErr)
	}

	tokens, err := s.tokens.IssuePair(ctx, user.ID, user.Email)
	if err != nil {
		return Session{}, fmt.Errorf("failed to start session for '%s' [%w]", user.Email, err)
	}

	log.WithFields(logTags).WithField("user", user.ID).Info("Registered new user")
	return Session{User: user, Tokens: tokens}, nil
}

/*
Login verify credentials and start a new session

	@param ctx context.Context - execution context
	@param email string - login email
	@param password string - login password
	@returns the user with a fresh token pair
*/
func (s *accountService) Login(
	ctx context.Context, email string, password string,
) (Session, error) {
	logTags := s.GetLogTagsForContext(ctx)

	var user models.User
	if dbErr := s.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			user, err = dbClient.GetUserByEmail(dbCtx, email)
			return err
		},
	); dbErr != nil {
		if db.IsRecordNotFound(dbErr) {
			return Session{}, fmt.Errorf("login rejected [%w]", ErrInvalidCredentials)
		}
		return Session{}, fmt.Errorf("failed to process login [%w]", dbErr)
	}

	matched, err := s.passwords.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		return Session{}, fmt.Errorf("failed to process login [%w]", err)
	}
	if !matched {
		return Session{}, fmt.Errorf("login rejected [%w]", ErrInvalidCredentials)
	}

	tokens, err := s.tokens.IssuePair(ctx, user.ID, user.Email)
	if err != nil {
		return Session{}, fmt.Errorf("failed to start session for '%s' [%w]", user.Email, err)
	}

	log.WithFields(logTags).WithField("user", user.ID).Info("User logged in")
	return Session{User: user, Tokens: tokens}, nil
}

/*
Refresh exchange a refresh token for a brand new token pair

	@param ctx context.Context - execution context
	@param refreshToken string - the presented refresh token
	@returns the user with a fresh token pair
*/
func (s *accountService) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	logTags := s.GetLogTagsForContext(ctx)

	claims, err := s.tokens.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return Session{}, fmt.Errorf("session refresh rejected [%w]", err)
	}

	// The token outliving the user must not resurrect the session
	var user models.User
	if dbErr := s.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			user, err = dbClient.GetUser(dbCtx, claims.Subject)
			return err
		},
	); dbErr != nil {
		if db.IsRecordNotFound(dbErr) {
			return Session{}, fmt.Errorf("session refresh rejected [%w]", auth.ErrTokenInvalid)
		}
		return Session{}, fmt.Errorf("failed to process session refresh [%w]", dbErr)
	}

	tokens, err := s.tokens.IssuePair(ctx, user.ID, user.Email)
	if err != nil {
		return Session{}, fmt.Errorf("failed to refresh session for '%s' [%w]", user.Email, err)
	}

	log.WithFields(logTags).WithField("user", user.ID).Debug("Session refreshed")
	return Session{User: user, Tokens: tokens}, nil
}

/*
GetProfile fetch a user's profile

	@param ctx context.Context - execution context
	@param userID string - user ID
	@returns the user entry
*/
func (s *accountService) GetProfile(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	if dbErr := s.persistence.UseDatabase(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			user, err = dbClient.GetUser(dbCtx, userID)
			return err
		},
	); dbErr != nil {
		return models.User{}, fmt.Errorf("failed to fetch profile of %s [%w]", userID, dbErr)
	}

	return user, nil
}

/*
DeleteAccount delete a user and all of their journal entries

	@param ctx context.Context - execution context
	@param userID string - user ID
*/
func (s *accountService) DeleteAccount(ctx context.Context, userID string) error {
	logTags := s.GetLogTagsForContext(ctx)

	if dbErr := s.persistence.UseDatabaseInTransaction(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			return dbClient.DeleteUser(dbCtx, userID)
		},
	); dbErr != nil {
		return fmt.Errorf("failed to delete account %s [%w]", userID, dbErr)
	}

	log.WithFields(logTags).WithField("user", userID).Info("Deleted user account")
	return nil
}
