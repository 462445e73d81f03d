package chronicle_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alwitt/chronicle"
	"github.com/alwitt/chronicle/account"
	"github.com/alwitt/chronicle/config"
	"github.com/alwitt/chronicle/db"
	"github.com/alwitt/chronicle/store"
	"github.com/apex/log"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

// TestJournalServiceEndToEnd performs a full end-to-end test of the journaling
// service. A temporary SQLite database is created, the
// `chronicle.NewJournalService` constructor is exercised, and users register,
// write, read, update, and delete journal entries through the assembled
// components.
func TestJournalServiceEndToEnd(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	// ------------------------------------------------------------------
	// 1. Create a temporary SQLite database
	// ------------------------------------------------------------------
	ctx := context.Background()

	testDB := fmt.Sprintf("/tmp/chronicle_ut_%s.db", ulid.Make().String())
	dbClient, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	assert.Nil(err)

	// Create tables
	assert.Nil(dbClient.RunSQLInTransaction(ctx, db.DefineTables))

	// ------------------------------------------------------------------
	// 2. Assemble the service
	// ------------------------------------------------------------------
	key := make([]byte, 32)
	_, err = rand.Read(key)
	assert.Nil(err)

	cfg := config.Default()
	cfg.EncryptionKeyBase64 = base64.StdEncoding.EncodeToString(key)
	cfg.TokenSigningSecret = strings.Repeat("0123456789abcdef", 4)
	cfg.TokenIssuer = "chronicle-ut"

	uut, err := chronicle.NewJournalService(ctx, db.GetSqliteDialector(testDB), logger.Error, cfg)
	assert.Nil(err)

	// ------------------------------------------------------------------
	// 3. Register two users
	// ------------------------------------------------------------------
	alice, err := uut.Accounts.Register(ctx, account.RegisterRequest{
		Email:       fmt.Sprintf("alice-%s@unit-test.dev", ulid.Make().String()),
		DisplayName: "Alice",
		Password:    "correct horse battery staple",
	})
	assert.Nil(err)

	bob, err := uut.Accounts.Register(ctx, account.RegisterRequest{
		Email:       fmt.Sprintf("bob-%s@unit-test.dev", ulid.Make().String()),
		DisplayName: "Bob",
		Password:    "hunter2 but much longer",
	})
	assert.Nil(err)

	// ------------------------------------------------------------------
	// 4. Alice writes an entry; the session token names her
	// ------------------------------------------------------------------
	claims, err := uut.Sessions.VerifyAccess(ctx, alice.Tokens.Access)
	assert.Nil(err)
	assert.Equal(alice.User.ID, claims.Subject)

	entry, err := uut.Entries.CreateEntry(ctx, claims.Subject, store.CreateEntryRequest{
		Title:   "Day One",
		Content: "Started keeping a journal today.",
		Tags:    []string{"first"},
	}, nil)
	assert.Nil(err)

	// ------------------------------------------------------------------
	// 5. Alice reads it back; Bob cannot see it
	// ------------------------------------------------------------------
	fetched, err := uut.Entries.GetEntry(ctx, entry.ID, alice.User.ID, nil)
	assert.Nil(err)
	assert.Equal("Day One", fetched.Title)

	_, err = uut.Entries.GetEntry(ctx, entry.ID, bob.User.ID, nil)
	assert.NotNil(err)
	assert.ErrorIs(err, store.ErrNotFound)

	// ------------------------------------------------------------------
	// 6. Alice updates the entry
	// ------------------------------------------------------------------
	title2 := "Day One, revised"
	updated, err := uut.Entries.UpdateEntry(ctx, entry.ID, alice.User.ID, store.UpdateEntryRequest{
		Title: &title2,
	}, nil)
	assert.Nil(err)
	assert.Equal(title2, updated.Title)
	assert.Equal("Started keeping a journal today.", updated.Content)

	// ------------------------------------------------------------------
	// 7. Listing shows only the owner's journal
	// ------------------------------------------------------------------
	page, err := uut.Entries.ListEntries(ctx, alice.User.ID, store.ListEntriesRequest{
		Page: 1, PageSize: 10,
	}, nil)
	assert.Nil(err)
	assert.Len(page.Items, 1)
	assert.EqualValues(1, page.Total)

	page, err = uut.Entries.ListEntries(ctx, bob.User.ID, store.ListEntriesRequest{
		Page: 1, PageSize: 10,
	}, nil)
	assert.Nil(err)
	assert.Empty(page.Items)

	// ------------------------------------------------------------------
	// 8. Alice refreshes her session and keeps working
	// ------------------------------------------------------------------
	refreshed, err := uut.Accounts.Refresh(ctx, alice.Tokens.Refresh)
	assert.Nil(err)
	assert.Equal(alice.User.ID, refreshed.User.ID)

	claims, err = uut.Sessions.VerifyAccess(ctx, refreshed.Tokens.Access)
	assert.Nil(err)
	assert.Equal(alice.User.ID, claims.Subject)

	// ------------------------------------------------------------------
	// 9. Alice deletes the entry
	// ------------------------------------------------------------------
	deleted, err := uut.Entries.DeleteEntry(ctx, entry.ID, alice.User.ID, nil)
	assert.Nil(err)
	assert.True(deleted)

	_, err = uut.Entries.GetEntry(ctx, entry.ID, alice.User.ID, nil)
	assert.NotNil(err)
	assert.ErrorIs(err, store.ErrNotFound)

	// ------------------------------------------------------------------
	// 10. Deleting Bob's account removes his login
	// ------------------------------------------------------------------
	assert.Nil(uut.Accounts.DeleteAccount(ctx, bob.User.ID))
	_, err = uut.Accounts.Login(ctx, bob.User.Email, "hunter2 but much longer")
	assert.NotNil(err)
	assert.ErrorIs(err, account.ErrInvalidCredentials)

	// A timestamp sanity check on the surviving flow
	assert.True(time.Since(fetched.CreatedAt) < time.Hour)
}
