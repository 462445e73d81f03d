package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alwitt/chronicle/models"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// CommonListEntryQueryFilter common query filter when listing data entries
type CommonListEntryQueryFilter struct {
	Limit  *int
	Offset *int
}

// JournalEntryQueryFilter journal entry query filter conditions
type JournalEntryQueryFilter struct {
	CommonListEntryQueryFilter
	// SortField sort entries by this timestamp column
	SortField models.EntrySortFieldENUMType
	// SortOrder ascending or descending
	SortOrder models.SortOrderENUMType
}

// JournalEventQueryFilter audit event query filter conditions
type JournalEventQueryFilter struct {
	CommonListEntryQueryFilter
	// EventTypes the specific event types to query for
	EventTypes []models.JournalEventTypeENUMType
	// EventsAfter filter for events after this timestamp
	EventsAfter *time.Time
	// EventsBefore filter for events before this timestamp
	EventsBefore *time.Time
}

/*
IsRecordNotFound check whether an error chain reports a missing DB row

	@param err error - the error to inspect
	@return whether a row was not found
*/
func IsRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// Database the database handle to interacting with the data base
type Database interface {
	// ------------------------------------------------------------------------------------
	// Journal audit events

	/*
		ListJournalEvents list captured journal events

			@param ctx context.Context - execution context
			@param filters JournalEventQueryFilter - entry listing filter
			@return list of journal events
	*/
	ListJournalEvents(
		ctx context.Context, filters JournalEventQueryFilter,
	) ([]models.JournalEventAudit, error)

	// ------------------------------------------------------------------------------------
	// Users

	/*
		DefineNewUser define new user

			@param ctx context.Context - execution context
			@param email string - unique login email
			@param displayName string - user facing name
			@param passwordHash string - PHC encoded password hash
			@returns user entry
	*/
	DefineNewUser(
		ctx context.Context, email string, displayName string, passwordHash string,
	) (models.User, error)

	/*
		GetUser fetch a user by ID

			@param ctx context.Context - execution context
			@param userID string - user ID
			@returns user entry
	*/
	GetUser(ctx context.Context, userID string) (models.User, error)

	/*
		GetUserByEmail fetch a user by login email

			@param ctx context.Context - execution context
			@param email string - login email
			@returns user entry
	*/
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	/*
		DeleteUser delete a user. Owned journal entries cascade.

			@param ctx context.Context - execution context
			@param userID string - user ID
	*/
	DeleteUser(ctx context.Context, userID string) error

	// ------------------------------------------------------------------------------------
	// Journal entries

	/*
		DefineNewEntry insert a new journal entry

		The entry fields must already be in their persisted form. The ID is
		assigned here.

			@param ctx context.Context - execution context
			@param newEntry models.JournalEntry - the entry to persist
			@returns entry as persisted
	*/
	DefineNewEntry(
		ctx context.Context, newEntry models.JournalEntry,
	) (models.JournalEntry, error)

	/*
		GetEntry fetch a journal entry by ID

		No ownership filtering occurs at this level. Callers own the decision of
		whether the fetched row is visible to the requesting user.

			@param ctx context.Context - execution context
			@param entryID string - journal entry ID
			@returns entry in its persisted form
	*/
	GetEntry(ctx context.Context, entryID string) (models.JournalEntry, error)

	/*
		ListEntriesOfOwner list journal entries belonging to one owner

			@param ctx context.Context - execution context
			@param ownerID string - the owning user
			@param filters JournalEntryQueryFilter - entry listing filter
			@return list of entries in their persisted form
	*/
	ListEntriesOfOwner(
		ctx context.Context, ownerID string, filters JournalEntryQueryFilter,
	) ([]models.JournalEntry, error)

	/*
		CountEntriesOfOwner count journal entries belonging to one owner

			@param ctx context.Context - execution context
			@param ownerID string - the owning user
			@return total number of entries
	*/
	CountEntriesOfOwner(ctx context.Context, ownerID string) (int64, error)

	/*
		SaveEntry persist updated fields of an existing journal entry

		The update is keyed on entry ID and owner ID together, so the write
		touches at most the row the caller already verified. Zero matched rows
		reports record-not-found.

			@param ctx context.Context - execution context
			@param entry models.JournalEntry - the entry with updated fields
			@returns entry as persisted
	*/
	SaveEntry(ctx context.Context, entry models.JournalEntry) (models.JournalEntry, error)

	/*
		UpgradeEntryField replace a legacy plain text field with its envelope

		Keyed on entry ID and owner ID. The write is a pure storage upgrade and
		safe to repeat; a vanished row is a NOOP. The entry update timestamp is
		left untouched since the logical content did not change.

			@param ctx context.Context - execution context
			@param entryID string - journal entry ID
			@param ownerID string - the owning user
			@param field models.EncryptableFieldENUMType - which field to upgrade
			@param envelope models.EncryptedField - the new envelope columns
	*/
	UpgradeEntryField(
		ctx context.Context,
		entryID string,
		ownerID string,
		field models.EncryptableFieldENUMType,
		envelope models.EncryptedField,
	) error

	/*
		DeleteEntryOfOwner delete a journal entry owned by a specific user

			@param ctx context.Context - execution context
			@param entryID string - journal entry ID
			@param ownerID string - the owning user
			@return whether a row was actually deleted
	*/
	DeleteEntryOfOwner(ctx context.Context, entryID string, ownerID string) (bool, error)
}

// databaseImpl implements Database
type databaseImpl struct {
	goutils.Component
	db        *gorm.DB
	validator *validator.Validate
}

// newDatabase define a new database client
func newDatabase(_ context.Context, sqlClient *gorm.DB) (Database, error) {
	logTags := log.Fields{"package": "chronicle", "module": "db", "component": "db-client"}

	instance := &databaseImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		db:        sqlClient,
		validator: validator.New(),
	}

	if err := models.RegisterWithValidator(instance.validator); err != nil {
		return nil, fmt.Errorf("failed to install custom validation macros [%w]", err)
	}

	return instance, nil
}
