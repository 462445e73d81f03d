package db

import (
	"context"
	"fmt"

	"github.com/alwitt/chronicle/models"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// ======================================================================================
// Journal entries

/*
DefineNewEntry insert a new journal entry

	@param ctx context.Context - execution context
	@param newEntry models.JournalEntry - the entry to persist
	@returns entry as persisted
*/
func (d *databaseImpl) DefineNewEntry(
	_ context.Context, newEntry models.JournalEntry,
) (models.JournalEntry, error) {
	newEntry.ID = ulid.Make().String()
	entry := JournalEntryDBEntry{JournalEntry: newEntry}

	if err := d.validator.Struct(&entry); err != nil {
		return models.JournalEntry{}, fmt.Errorf(
			"new entry for owner %s is not valid [%w]", newEntry.OwnerID, err,
		)
	}

	if tmp := d.db.Create(&entry); tmp.Error != nil {
		return models.JournalEntry{}, fmt.Errorf(
			"new entry for owner %s failed insert [%w]", newEntry.OwnerID, tmp.Error,
		)
	}

	// Record this event
	if _, err := d.defineNewJournalEvent(
		models.JournalEventTypeEntryCreated,
		models.JournalEventEntryRelated{EntryID: entry.ID, OwnerID: entry.OwnerID},
	); err != nil {
		return models.JournalEntry{}, fmt.Errorf(
			"failed to log new entry %s audit event [%w]", entry.ID, err,
		)
	}

	return entry.JournalEntry, nil
}

// getEntryEntry find a journal entry by ID
func (d *databaseImpl) getEntryEntry(entryID string) (JournalEntryDBEntry, error) {
	var entry JournalEntryDBEntry
	err := d.db.Where("id = ?", entryID).First(&entry).Error
	return entry, err
}

/*
GetEntry fetch a journal entry by ID

	@param ctx context.Context - execution context
	@param entryID string - journal entry ID
	@returns entry in its persisted form
*/
func (d *databaseImpl) GetEntry(
	_ context.Context, entryID string,
) (models.JournalEntry, error) {
	entry, err := d.getEntryEntry(entryID)
	if err != nil {
		return models.JournalEntry{}, fmt.Errorf("failed to fetch entry %s [%w]", entryID, err)
	}

	return entry.JournalEntry, nil
}

/*
ListEntriesOfOwner list journal entries belonging to one owner

	@param ctx context.Context - execution context
	@param ownerID string - the owning user
	@param filters JournalEntryQueryFilter - entry listing filter
	@return list of entries in their persisted form
*/
func (d *databaseImpl) ListEntriesOfOwner(
	_ context.Context, ownerID string, filters JournalEntryQueryFilter,
) ([]models.JournalEntry, error) {
	query := d.db.Model(&JournalEntryDBEntry{}).Where("owner_id = ?", ownerID)

	if filters.Limit != nil {
		query = query.Limit(*filters.Limit)
	}
	if filters.Offset != nil {
		query = query.Offset(*filters.Offset)
	}

	sortField := models.EntrySortFieldCreatedAt
	if filters.SortField != "" {
		if err := d.validator.Var(string(filters.SortField), "entry_sort_field"); err != nil {
			return nil, fmt.Errorf("unsupported sort field '%s' [%w]", filters.SortField, err)
		}
		sortField = filters.SortField
	}
	sortOrder := models.SortOrderDescending
	if filters.SortOrder != "" {
		if err := d.validator.Var(string(filters.SortOrder), "sort_order"); err != nil {
			return nil, fmt.Errorf("unsupported sort order '%s' [%w]", filters.SortOrder, err)
		}
		sortOrder = filters.SortOrder
	}
	query = query.Order(fmt.Sprintf("%s %s", sortField, sortOrder))

	var entries []JournalEntryDBEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list entries of owner %s [%w]", ownerID, tmp.Error)
	}

	result := []models.JournalEntry{}
	for _, entry := range entries {
		result = append(result, entry.JournalEntry)
	}

	return result, nil
}

/*
CountEntriesOfOwner count journal entries belonging to one owner

	@param ctx context.Context - execution context
	@param ownerID string - the owning user
	@return total number of entries
*/
func (d *databaseImpl) CountEntriesOfOwner(
	_ context.Context, ownerID string,
) (int64, error) {
	var total int64
	if tmp := d.db.Model(&JournalEntryDBEntry{}).Where(
		"owner_id = ?", ownerID,
	).Count(&total); tmp.Error != nil {
		return 0, fmt.Errorf("failed to count entries of owner %s [%w]", ownerID, tmp.Error)
	}

	return total, nil
}

/*
SaveEntry persist updated fields of an existing journal entry

	@param ctx context.Context - execution context
	@param entry models.JournalEntry - the entry with updated fields
	@returns entry as persisted
*/
func (d *databaseImpl) SaveEntry(
	ctx context.Context, entry models.JournalEntry,
) (models.JournalEntry, error) {
	wrapped := JournalEntryDBEntry{JournalEntry: entry}
	if err := d.validator.Struct(&wrapped); err != nil {
		return models.JournalEntry{}, fmt.Errorf("updated entry %s is not valid [%w]", entry.ID, err)
	}

	// Explicit column map so cleared optional fields are written out as well
	updates := map[string]interface{}{
		"title_cipher_text":   entry.Title.CipherText,
		"title_nonce":         entry.Title.Nonce,
		"title_auth_tag":      entry.Title.AuthTag,
		"title_plain_text":    entry.Title.PlainText,
		"content_cipher_text": entry.Content.CipherText,
		"content_nonce":       entry.Content.Nonce,
		"content_auth_tag":    entry.Content.AuthTag,
		"content_plain_text":  entry.Content.PlainText,
		"mood":                entry.Mood,
		"tags":                entry.Tags,
	}

	tmp := d.db.Model(&JournalEntryDBEntry{}).Where(
		"id = ? AND owner_id = ?", entry.ID, entry.OwnerID,
	).Updates(updates)
	if tmp.Error != nil {
		return models.JournalEntry{}, fmt.Errorf("entry %s update failed [%w]", entry.ID, tmp.Error)
	}
	if tmp.RowsAffected == 0 {
		// The row vanished between the ownership check and this write
		return models.JournalEntry{}, fmt.Errorf(
			"entry %s no longer present for update [%w]", entry.ID, gorm.ErrRecordNotFound,
		)
	}

	// Record this event
	if _, err := d.defineNewJournalEvent(
		models.JournalEventTypeEntryUpdated,
		models.JournalEventEntryRelated{EntryID: entry.ID, OwnerID: entry.OwnerID},
	); err != nil {
		return models.JournalEntry{}, fmt.Errorf(
			"failed to log entry %s update audit event [%w]", entry.ID, err,
		)
	}

	saved, err := d.getEntryEntry(entry.ID)
	if err != nil {
		return models.JournalEntry{}, fmt.Errorf("failed to fetch entry %s [%w]", entry.ID, err)
	}
	return saved.JournalEntry, nil
}

/*
UpgradeEntryField replace a legacy plain text field with its envelope

	@param ctx context.Context - execution context
	@param entryID string - journal entry ID
	@param ownerID string - the owning user
	@param field models.EncryptableFieldENUMType - which field to upgrade
	@param envelope models.EncryptedField - the new envelope columns
*/
func (d *databaseImpl) UpgradeEntryField(
	_ context.Context,
	entryID string,
	ownerID string,
	field models.EncryptableFieldENUMType,
	envelope models.EncryptedField,
) error {
	if err := d.validator.Var(string(field), "encryptable_field"); err != nil {
		return fmt.Errorf("unsupported encryptable field '%s' [%w]", field, err)
	}

	updates := map[string]interface{}{
		fmt.Sprintf("%s_cipher_text", field): envelope.CipherText,
		fmt.Sprintf("%s_nonce", field):       envelope.Nonce,
		fmt.Sprintf("%s_auth_tag", field):    envelope.AuthTag,
		fmt.Sprintf("%s_plain_text", field):  nil,
	}

	// UpdateColumns keeps updated_at untouched; the logical content is unchanged
	tmp := d.db.Model(&JournalEntryDBEntry{}).Where(
		"id = ? AND owner_id = ?", entryID, ownerID,
	).UpdateColumns(updates)
	if tmp.Error != nil {
		return fmt.Errorf("entry %s field '%s' upgrade failed [%w]", entryID, field, tmp.Error)
	}
	if tmp.RowsAffected == 0 {
		// Row deleted since the read; nothing left to upgrade
		return nil
	}

	// Record this event
	if _, err := d.defineNewJournalEvent(
		models.JournalEventTypeEntryFieldMigrated,
		models.JournalEventFieldMigrationRelated{EntryID: entryID, Field: field},
	); err != nil {
		return fmt.Errorf(
			"failed to log entry %s field migration audit event [%w]", entryID, err,
		)
	}

	return nil
}

/*
DeleteEntryOfOwner delete a journal entry owned by a specific user

	@param ctx context.Context - execution context
	@param entryID string - journal entry ID
	@param ownerID string - the owning user
	@return whether a row was actually deleted
*/
func (d *databaseImpl) DeleteEntryOfOwner(
	_ context.Context, entryID string, ownerID string,
) (bool, error) {
	tmp := d.db.Where("id = ? AND owner_id = ?", entryID, ownerID).Delete(&JournalEntryDBEntry{})
	if tmp.Error != nil {
		return false, fmt.Errorf("failed to delete entry %s [%w]", entryID, tmp.Error)
	}
	if tmp.RowsAffected == 0 {
		// Missing and not-owned are deliberately indistinguishable here
		return false, nil
	}

	// Record this event
	if _, err := d.defineNewJournalEvent(
		models.JournalEventTypeEntryDeleted,
		models.JournalEventEntryRelated{EntryID: entryID, OwnerID: ownerID},
	); err != nil {
		return false, fmt.Errorf(
			"failed to log delete entry %s audit event [%w]", entryID, err,
		)
	}

	return true, nil
}
