// Package chronicle - personal journaling service with encrypted-at-rest entries
package chronicle

import (
	"context"
	"fmt"

	"github.com/alwitt/chronicle/account"
	"github.com/alwitt/chronicle/auth"
	"github.com/alwitt/chronicle/config"
	"github.com/alwitt/chronicle/db"
	"github.com/alwitt/chronicle/encryption"
	"github.com/alwitt/chronicle/store"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// JournalService the assembled journaling service
type JournalService struct {
	// Persistence the shared persistence layer client
	Persistence db.Client
	// Sessions session token issue and verification
	Sessions auth.TokenService
	// Accounts user registration and session lifecycle
	Accounts account.Service
	// Entries journal entry storage
	Entries store.JournalStore
}

/*
NewJournalService initialize a journaling service instance.

Each instance is backed by a SQL database; two instances using the same
database and encryption key are essentially copies of each other.

	@param ctx context.Context - execution context
	@param dbDialector gorm.Dialector - GORM dialector
	@param dbLogLevel logger.LogLevel - SQL log level
	@param cfg config.Config - service configuration
	@returns new service instance
*/
func NewJournalService(
	ctx context.Context,
	dbDialector gorm.Dialector,
	dbLogLevel logger.LogLevel,
	cfg config.Config,
) (*JournalService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Prepare persistence
	persistence, err := db.NewConnection(dbDialector, dbLogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialized persistence client [%w]", err)
	}

	// Prepare field encryption codec
	codec, err := encryption.NewFieldCodec(ctx, cfg.EncryptionKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to initialized field encryption codec [%w]", err)
	}

	// Prepare session token service
	tokens, err := auth.NewTokenService(ctx, auth.TokenServiceParams{
		SigningSecret: cfg.TokenSigningSecret,
		Issuer:        cfg.TokenIssuer,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialized session token service [%w]", err)
	}

	// Prepare password hasher
	passwords, err := auth.NewPasswordHasher(ctx, auth.DefaultPasswordHasherParams())
	if err != nil {
		return nil, fmt.Errorf("failed to initialized password hasher [%w]", err)
	}

	accounts, err := account.NewService(ctx, persistence, tokens, passwords)
	if err != nil {
		return nil, fmt.Errorf("failed to initialized account service [%w]", err)
	}

	entries, err := store.NewJournalStore(ctx, persistence, codec)
	if err != nil {
		return nil, fmt.Errorf("failed to initialized journal store [%w]", err)
	}

	return &JournalService{
		Persistence: persistence,
		Sessions:    tokens,
		Accounts:    accounts,
		Entries:     entries,
	}, nil
}
