package db

import "github.com/alwitt/chronicle/models"

// --------------------------------------------------------------------------------------
// Users

// UserDBEntry user DB entry
type UserDBEntry struct {
	models.User
}

// TableName hard code table name
func (UserDBEntry) TableName() string {
	return "users"
}

// --------------------------------------------------------------------------------------
// Journal entries

// JournalEntryDBEntry journal entry DB entry
type JournalEntryDBEntry struct {
	models.JournalEntry
	Owner UserDBEntry `gorm:"constraint:OnDelete:CASCADE;foreignKey:OwnerID" validate:"-"`
}

// TableName hard code table name
func (JournalEntryDBEntry) TableName() string {
	return "journal_entries"
}

// --------------------------------------------------------------------------------------
// Journal audit events

// JournalEventAuditDBEntry journal audit event DB entry
type JournalEventAuditDBEntry struct {
	models.JournalEventAudit
}

// TableName hard code table name
func (JournalEventAuditDBEntry) TableName() string {
	return "journal_audit_events"
}
