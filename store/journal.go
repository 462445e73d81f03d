// Package store - journal entry storage controller
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alwitt/chronicle/db"
	"github.com/alwitt/chronicle/encryption"
	"github.com/alwitt/chronicle/models"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

// ErrNotFound no such journal entry visible to the requesting user.
//
// An entry owned by someone else reports this same error; existence is never
// revealed across owners.
var ErrNotFound = errors.New("journal entry not found")

// fetchOutcomeENUMType internal outcome of an ownership scoped entry fetch
type fetchOutcomeENUMType int

const (
	fetchFound fetchOutcomeENUMType = iota
	fetchNotFound
	fetchOwnershipMismatch
)

// Entry one journal entry in its logical (decrypted) form
type Entry struct {
	// ID entry ID
	ID string `json:"id"`
	// OwnerID the owning user
	OwnerID string `json:"owner_id"`
	// Title decrypted entry title
	Title string `json:"title"`
	// Content decrypted entry content
	Content string `json:"content"`
	// Mood optional mood marker
	Mood *string `json:"mood,omitempty"`
	// Tags ordered tag list
	Tags []string `json:"tags,omitempty"`
	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateEntryRequest parameters for creating a journal entry
type CreateEntryRequest struct {
	// Title entry title, encrypted before persisting
	Title string `validate:"required,max=512"`
	// Content entry content, encrypted before persisting
	Content string `validate:"required,max=65536"`
	// Mood optional plain text mood marker
	Mood *string `validate:"omitempty,max=64"`
	// Tags optional ordered tag list, stored plain
	Tags []string `validate:"omitempty,dive,required,max=64"`
}

// UpdateEntryRequest partial update of a journal entry. Nil fields are untouched.
type UpdateEntryRequest struct {
	// Title replacement title; re-encrypted under a brand new envelope
	Title *string `validate:"omitempty,min=1,max=512"`
	// Content replacement content; re-encrypted under a brand new envelope
	Content *string `validate:"omitempty,min=1,max=65536"`
	// Mood replacement mood marker
	Mood *string `validate:"omitempty,max=64"`
	// Tags replacement tag list
	Tags *[]string `validate:"omitempty,dive,required,max=64"`
}

// ListEntriesRequest pagination and ordering parameters for entry listing
type ListEntriesRequest struct {
	// Page 1-indexed page number. Values below one read as one.
	Page int
	// PageSize entries per page, clamped to [1, 100]
	PageSize int
	// SortField timestamp column to sort on; default created_at
	SortField models.EntrySortFieldENUMType
	// SortOrder asc or desc; default desc
	SortOrder models.SortOrderENUMType
}

// EntryPage one page of a paginated entry listing
type EntryPage struct {
	// Items the entries of this page
	Items []Entry `json:"data"`
	// Total total entries matching the filter
	Total int64 `json:"total"`
	// Page the 1-indexed page returned
	Page int `json:"page"`
	// PageSize the effective page size after clamping
	PageSize int `json:"limit"`
	// TotalPages ceil(Total / PageSize)
	TotalPages int `json:"total_pages"`
}

/*
JournalStore owns persistence of journal entries.

Title and content are envelope encrypted before any row is written. Reads of
legacy plain text rows transparently upgrade the touched fields to encrypted
form before returning. Every operation is scoped to the requesting owner; a
row owned by someone else behaves exactly like a missing row.
*/
type JournalStore interface {
	/*
		CreateEntry create a new journal entry

			@param ctx context.Context - execution context
			@param ownerID string - the owning user
			@param request CreateEntryRequest - the entry fields
			@param activeDBClient Database - existing database transaction
			@returns the created entry in logical form
	*/
	CreateEntry(
		ctx context.Context, ownerID string, request CreateEntryRequest, activeDBClient db.Database,
	) (Entry, error)

	/*
		GetEntry fetch a journal entry by ID on behalf of an owner

		Missing rows and rows owned by another user both report ErrNotFound.
		Legacy plain text fields are re-encrypted and written back before this
		call returns.

			@param ctx context.Context - execution context
			@param entryID string - journal entry ID
			@param requestingOwnerID string - the user making the request
			@param activeDBClient Database - existing database transaction
			@returns the entry in logical form
	*/
	GetEntry(
		ctx context.Context, entryID string, requestingOwnerID string, activeDBClient db.Database,
	) (Entry, error)

	/*
		ListEntries list one page of an owner's journal entries

		Total and items run against the same filter but not inside a single
		snapshot; under concurrent writes the two may be momentarily
		inconsistent, which is acceptable for this workload.

			@param ctx context.Context - execution context
			@param ownerID string - the owning user
			@param request ListEntriesRequest - pagination and ordering
			@param activeDBClient Database - existing database transaction
			@returns one listing page
	*/
	ListEntries(
		ctx context.Context, ownerID string, request ListEntriesRequest, activeDBClient db.Database,
	) (EntryPage, error)

	/*
		UpdateEntry apply a partial update to a journal entry

		Ownership is verified exactly as in GetEntry. Updated title or content
		is sealed into a brand new envelope; an existing envelope is never
		patched in place.

			@param ctx context.Context - execution context
			@param entryID string - journal entry ID
			@param ownerID string - the user making the request
			@param request UpdateEntryRequest - the fields to change
			@param activeDBClient Database - existing database transaction
			@returns the updated entry in logical form
	*/
	UpdateEntry(
		ctx context.Context,
		entryID string,
		ownerID string,
		request UpdateEntryRequest,
		activeDBClient db.Database,
	) (Entry, error)

	/*
		DeleteEntry delete a journal entry on behalf of an owner

			@param ctx context.Context - execution context
			@param entryID string - journal entry ID
			@param ownerID string - the user making the request
			@param activeDBClient Database - existing database transaction
			@returns true if a row was deleted; false for missing or not owned
	*/
	DeleteEntry(
		ctx context.Context, entryID string, ownerID string, activeDBClient db.Database,
	) (bool, error)
}

// journalStore implements JournalStore
type journalStore struct {
	goutils.Component

	persistence db.Client

	codec encryption.FieldCodec

	validator *validator.Validate
}

/*
NewJournalStore define new journal store

	@param ctx context.Context - execution context
	@param persistence db.Client - persistence layer client
	@param codec encryption.FieldCodec - field encryption codec
	@returns store instance
*/
func NewJournalStore(
	_ context.Context, persistence db.Client, codec encryption.FieldCodec,
) (JournalStore, error) {
	logTags := log.Fields{"module": "store", "component": "journal-store"}

	instance := &journalStore{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		persistence: persistence,
		codec:       codec,
		validator:   validator.New(),
	}

	if err := models.RegisterWithValidator(instance.validator); err != nil {
		return nil, fmt.Errorf("failed to install custom validation macros [%w]", err)
	}

	return instance, nil
}

// sealField encrypt one field value into its persisted envelope form
func (s *journalStore) sealField(ctx context.Context, value string) (models.EncryptedField, error) {
	envelope, err := s.codec.EncryptField(ctx, value)
	if err != nil {
		return models.EncryptedField{}, fmt.Errorf("failed to seal entry field [%w]", err)
	}
	return models.EncryptedField{
		CipherText: envelope.CipherText,
		Nonce:      envelope.Nonce,
		AuthTag:    envelope.AuthTag,
	}, nil
}

// openField read one field's logical value, reporting whether the field is
// still in legacy plain text form
func (s *journalStore) openField(
	ctx context.Context, field models.EncryptedField,
) (string, bool, error) {
	if field.IsEnvelope() {
		value, err := s.codec.DecryptField(ctx, encryption.Envelope{
			CipherText: field.CipherText,
			Nonce:      field.Nonce,
			AuthTag:    field.AuthTag,
		})
		if err != nil {
			return "", false, fmt.Errorf("failed to open entry field [%w]", err)
		}
		return value, false, nil
	}

	// Legacy row; pass the stored plain text through
	if field.PlainText != nil {
		return *field.PlainText, true, nil
	}
	return "", true, nil
}

// decodeTags unpack the persisted tags JSON into an ordered list
func decodeTags(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("entry tags unreadable [%w]", err)
	}
	return tags, nil
}

// encodeTags pack an ordered tag list into its persisted JSON form
func encodeTags(tags []string) (datatypes.JSON, error) {
	if tags == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("entry tags unserializable [%w]", err)
	}
	return datatypes.JSON(encoded), nil
}

// toLogicalEntry convert a persisted entry into its logical form
func (s *journalStore) toLogicalEntry(
	ctx context.Context, raw models.JournalEntry,
) (Entry, error) {
	title, _, err := s.openField(ctx, raw.Title)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %s title unreadable [%w]", raw.ID, err)
	}
	content, _, err := s.openField(ctx, raw.Content)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %s content unreadable [%w]", raw.ID, err)
	}
	tags, err := decodeTags(raw.Tags)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %s tags unreadable [%w]", raw.ID, err)
	}

	return Entry{
		ID:        raw.ID,
		OwnerID:   raw.OwnerID,
		Title:     title,
		Content:   content,
		Mood:      raw.Mood,
		Tags:      tags,
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
	}, nil
}

// fetchEntryForOwner fetch one entry, classifying the outcome.
//
// The ownership mismatch outcome exists for internal bookkeeping only; public
// behavior collapses it into not-found so existence never leaks across owners.
func fetchEntryForOwner(
	ctx context.Context, dbClient db.Database, entryID string, requestingOwnerID string,
) (models.JournalEntry, fetchOutcomeENUMType, error) {
	raw, err := dbClient.GetEntry(ctx, entryID)
	if err != nil {
		if db.IsRecordNotFound(err) {
			return models.JournalEntry{}, fetchNotFound, nil
		}
		return models.JournalEntry{}, fetchNotFound, err
	}

	if raw.OwnerID != requestingOwnerID {
		return models.JournalEntry{}, fetchOwnershipMismatch, nil
	}

	return raw, fetchFound, nil
}

/*
CreateEntry create a new journal entry

	@param ctx context.Context - execution context
	@param ownerID string - the owning user
	@param request CreateEntryRequest - the entry fields
	@param activeDBClient Database - existing database transaction
	@returns the created entry in logical form
*/
func (s *journalStore) CreateEntry(
	ctx context.Context, ownerID string, request CreateEntryRequest, activeDBClient db.Database,
) (Entry, error) {
	if err := s.validator.Struct(&request); err != nil {
		return Entry{}, fmt.Errorf("new entry request is not valid [%w]", err)
	}

	title, err := s.sealField(ctx, request.Title)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encrypt new entry title [%w]", err)
	}
	content, err := s.sealField(ctx, request.Content)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encrypt new entry content [%w]", err)
	}
	tags, err := encodeTags(request.Tags)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to serialize new entry tags [%w]", err)
	}

	var persisted models.JournalEntry
	if dbErr := db.ActiveSessionWrapper(
		ctx, activeDBClient, s.persistence, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			persisted, err = dbClient.DefineNewEntry(dbCtx, models.JournalEntry{
				OwnerID: ownerID,
				Title:   title,
				Content: content,
				Mood:    request.Mood,
				Tags:    tags,
			})
			return err
		},
	); dbErr != nil {
		return Entry{}, fmt.Errorf("failed to create entry for owner %s [%w]", ownerID, dbErr)
	}

	return Entry{
		ID:        persisted.ID,
		OwnerID:   persisted.OwnerID,
		Title:     request.Title,
		Content:   request.Content,
		Mood:      persisted.Mood,
		Tags:      request.Tags,
		CreatedAt: persisted.CreatedAt,
		UpdatedAt: persisted.UpdatedAt,
	}, nil
}

/*
GetEntry fetch a journal entry by ID on behalf of an owner

	@param ctx context.Context - execution context
	@param entryID string - journal entry ID
	@param requestingOwnerID string - the user making the request
	@param activeDBClient Database - existing database transaction
	@returns the entry in logical form
*/
func (s *journalStore) GetEntry(
	ctx context.Context, entryID string, requestingOwnerID string, activeDBClient db.Database,
) (Entry, error) {
	var result Entry

	if dbErr := db.ActiveSessionWrapper(
		ctx, activeDBClient, s.persistence, func(dbCtx context.Context, dbClient db.Database) error {
			raw, outcome, err := fetchEntryForOwner(dbCtx, dbClient, entryID, requestingOwnerID)
			if err != nil {
				return err
			}
			if outcome != fetchFound {
				return ErrNotFound
			}

			// Upgrade any legacy field before the read returns. Two concurrent
			// reads may both upgrade; the second write only replaces the
			// envelope with an equivalent one, so no locking is needed.
			title, legacyTitle, err := s.openField(dbCtx, raw.Title)
			if err != nil {
				return fmt.Errorf("entry %s title unreadable [%w]", raw.ID, err)
			}
			if legacyTitle {
				sealed, err := s.sealField(dbCtx, title)
				if err != nil {
					return fmt.Errorf("entry %s title re-encryption failed [%w]", raw.ID, err)
				}
				if err := dbClient.UpgradeEntryField(
					dbCtx, raw.ID, raw.OwnerID, models.EncryptableFieldTitle, sealed,
				); err != nil {
					return err
				}
			}

			content, legacyContent, err := s.openField(dbCtx, raw.Content)
			if err != nil {
				return fmt.Errorf("entry %s content unreadable [%w]", raw.ID, err)
			}
			if legacyContent {
				sealed, err := s.sealField(dbCtx, content)
				if err != nil {
					return fmt.Errorf("entry %s content re-encryption failed [%w]", raw.ID, err)
				}
				if err := dbClient.UpgradeEntryField(
					dbCtx, raw.ID, raw.OwnerID, models.EncryptableFieldContent, sealed,
				); err != nil {
					return err
				}
			}

			tags, err := decodeTags(raw.Tags)
			if err != nil {
				return fmt.Errorf("entry %s tags unreadable [%w]", raw.ID, err)
			}

			result = Entry{
				ID:        raw.ID,
				OwnerID:   raw.OwnerID,
				Title:     title,
				Content:   content,
				Mood:      raw.Mood,
				Tags:      tags,
				CreatedAt: raw.CreatedAt,
				UpdatedAt: raw.UpdatedAt,
			}
			return nil
		},
	); dbErr != nil {
		if errors.Is(dbErr, ErrNotFound) {
			return Entry{}, fmt.Errorf("entry %s [%w]", entryID, ErrNotFound)
		}
		return Entry{}, fmt.Errorf("failed to fetch entry %s [%w]", entryID, dbErr)
	}

	return result, nil
}

/*
ListEntries list one page of an owner's journal entries

	@param ctx context.Context - execution context
	@param ownerID string - the owning user
	@param request ListEntriesRequest - pagination and ordering
	@param activeDBClient Database - existing database transaction
	@returns one listing page
*/
func (s *journalStore) ListEntries(
	ctx context.Context, ownerID string, request ListEntriesRequest, activeDBClient db.Database,
) (EntryPage, error) {
	page := request.Page
	if page < 1 {
		page = 1
	}
	pageSize := request.PageSize
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > 100 {
		pageSize = 100
	}

	limit := pageSize
	offset := (page - 1) * pageSize

	var rawEntries []models.JournalEntry
	var total int64

	if dbErr := db.ActiveSessionWrapper(
		ctx, activeDBClient, s.persistence, func(dbCtx context.Context, dbClient db.Database) error {
			var err error

			total, err = dbClient.CountEntriesOfOwner(dbCtx, ownerID)
			if err != nil {
				return err
			}

			rawEntries, err = dbClient.ListEntriesOfOwner(dbCtx, ownerID, db.JournalEntryQueryFilter{
				CommonListEntryQueryFilter: db.CommonListEntryQueryFilter{
					Limit: &limit, Offset: &offset,
				},
				SortField: request.SortField,
				SortOrder: request.SortOrder,
			})
			return err
		},
	); dbErr != nil {
		return EntryPage{}, fmt.Errorf("failed to list entries of owner %s [%w]", ownerID, dbErr)
	}

	items := []Entry{}
	for _, raw := range rawEntries {
		entry, err := s.toLogicalEntry(ctx, raw)
		if err != nil {
			return EntryPage{}, fmt.Errorf("failed to list entries of owner %s [%w]", ownerID, err)
		}
		items = append(items, entry)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return EntryPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

/*
UpdateEntry apply a partial update to a journal entry

	@param ctx context.Context - execution context
	@param entryID string - journal entry ID
	@param ownerID string - the user making the request
	@param request UpdateEntryRequest - the fields to change
	@param activeDBClient Database - existing database transaction
	@returns the updated entry in logical form
*/
func (s *journalStore) UpdateEntry(
	ctx context.Context,
	entryID string,
	ownerID string,
	request UpdateEntryRequest,
	activeDBClient db.Database,
) (Entry, error) {
	if err := s.validator.Struct(&request); err != nil {
		return Entry{}, fmt.Errorf("entry update request is not valid [%w]", err)
	}

	var result Entry

	if dbErr := db.ActiveSessionWrapper(
		ctx, activeDBClient, s.persistence, func(dbCtx context.Context, dbClient db.Database) error {
			raw, outcome, err := fetchEntryForOwner(dbCtx, dbClient, entryID, ownerID)
			if err != nil {
				return err
			}
			if outcome != fetchFound {
				return ErrNotFound
			}

			// Changed fields get a brand new envelope; AEAD cipher text is
			// never patched in place
			if request.Title != nil {
				raw.Title, err = s.sealField(dbCtx, *request.Title)
				if err != nil {
					return fmt.Errorf("entry %s title re-encryption failed [%w]", raw.ID, err)
				}
			}
			if request.Content != nil {
				raw.Content, err = s.sealField(dbCtx, *request.Content)
				if err != nil {
					return fmt.Errorf("entry %s content re-encryption failed [%w]", raw.ID, err)
				}
			}
			if request.Mood != nil {
				raw.Mood = request.Mood
			}
			if request.Tags != nil {
				raw.Tags, err = encodeTags(*request.Tags)
				if err != nil {
					return fmt.Errorf("entry %s tags unserializable [%w]", raw.ID, err)
				}
			}

			saved, err := dbClient.SaveEntry(dbCtx, raw)
			if err != nil {
				if db.IsRecordNotFound(err) {
					// Deleted between the ownership check and the write
					return ErrNotFound
				}
				return err
			}

			result, err = s.toLogicalEntry(dbCtx, saved)
			return err
		},
	); dbErr != nil {
		if errors.Is(dbErr, ErrNotFound) {
			return Entry{}, fmt.Errorf("entry %s [%w]", entryID, ErrNotFound)
		}
		return Entry{}, fmt.Errorf("failed to update entry %s [%w]", entryID, dbErr)
	}

	return result, nil
}

/*
DeleteEntry delete a journal entry on behalf of an owner

	@param ctx context.Context - execution context
	@param entryID string - journal entry ID
	@param ownerID string - the user making the request
	@param activeDBClient Database - existing database transaction
	@returns true if a row was deleted; false for missing or not owned
*/
func (s *journalStore) DeleteEntry(
	ctx context.Context, entryID string, ownerID string, activeDBClient db.Database,
) (bool, error) {
	deleted := false

	if dbErr := db.ActiveSessionWrapper(
		ctx, activeDBClient, s.persistence, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			deleted, err = dbClient.DeleteEntryOfOwner(dbCtx, entryID, ownerID)
			return err
		},
	); dbErr != nil {
		return false, fmt.Errorf("failed to delete entry %s [%w]", entryID, dbErr)
	}

	return deleted, nil
}
