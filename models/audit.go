package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

// JournalEventTypeENUMType journal event type ENUM value type
type JournalEventTypeENUMType string

const (
	// JournalEventTypeUserRegistered a new user registered
	JournalEventTypeUserRegistered JournalEventTypeENUMType = "USER_REGISTERED"

	// JournalEventTypeUserDeleted a user is deleted
	JournalEventTypeUserDeleted JournalEventTypeENUMType = "USER_DELETED"

	// JournalEventTypeEntryCreated a new journal entry is created
	JournalEventTypeEntryCreated JournalEventTypeENUMType = "ENTRY_CREATED"

	// JournalEventTypeEntryUpdated a journal entry is updated
	JournalEventTypeEntryUpdated JournalEventTypeENUMType = "ENTRY_UPDATED"

	// JournalEventTypeEntryDeleted a journal entry is deleted
	JournalEventTypeEntryDeleted JournalEventTypeENUMType = "ENTRY_DELETED"

	// JournalEventTypeEntryFieldMigrated a legacy plain text field is upgraded
	// to an encrypted envelope
	JournalEventTypeEntryFieldMigrated JournalEventTypeENUMType = "ENTRY_FIELD_MIGRATED"
)

// JournalEventAudit recording of notable events within the journaling service.
//
// Metadata only ever carries identifiers, never field plain text.
type JournalEventAudit struct {
	// ID audit entry ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required"`
	// EventType journal event type
	EventType JournalEventTypeENUMType `json:"type" gorm:"column:type;not null" validate:"required,journal_event_type"`
	// Metadata a metadata relating to the event
	Metadata datatypes.JSON `json:"metadata,omitempty" gorm:"column:metadata;default:null"`
	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// ParseMetadata parse the metadata based on the event type
func (a JournalEventAudit) ParseMetadata(validator *validator.Validate) (interface{}, error) {
	switch a.EventType {
	// User related journal audit events
	case JournalEventTypeUserRegistered:
		fallthrough
	case JournalEventTypeUserDeleted:
		var parsed JournalEventUserRelated
		if err := json.Unmarshal(a.Metadata, &parsed); err != nil {
			return nil, fmt.Errorf("journal event '%s' metadata parse failed [%w]", a.EventType, err)
		}
		return parsed, validator.Struct(&parsed)

	// Entry related journal audit events
	case JournalEventTypeEntryCreated:
		fallthrough
	case JournalEventTypeEntryUpdated:
		fallthrough
	case JournalEventTypeEntryDeleted:
		var parsed JournalEventEntryRelated
		if err := json.Unmarshal(a.Metadata, &parsed); err != nil {
			return nil, fmt.Errorf("journal event '%s' metadata parse failed [%w]", a.EventType, err)
		}
		return parsed, validator.Struct(&parsed)

	// Lazy migration audit events
	case JournalEventTypeEntryFieldMigrated:
		var parsed JournalEventFieldMigrationRelated
		if err := json.Unmarshal(a.Metadata, &parsed); err != nil {
			return nil, fmt.Errorf("journal event '%s' metadata parse failed [%w]", a.EventType, err)
		}
		return parsed, validator.Struct(&parsed)
	}
	return nil, nil
}

// JournalEventUserRelated journal event metadata related to a user
type JournalEventUserRelated struct {
	// UserID the user this event concerns
	UserID string `json:"user_id" validate:"required,uuid_rfc4122"`
}

// JournalEventEntryRelated journal event metadata related to a journal entry
type JournalEventEntryRelated struct {
	// EntryID the journal entry ID
	EntryID string `json:"entry_id" validate:"required"`
	// OwnerID the entry owner
	OwnerID string `json:"owner_id" validate:"required,uuid_rfc4122"`
}

// JournalEventFieldMigrationRelated journal event metadata for a lazy field migration
type JournalEventFieldMigrationRelated struct {
	// EntryID the journal entry ID
	EntryID string `json:"entry_id" validate:"required"`
	// Field the entry field which was upgraded
	Field EncryptableFieldENUMType `json:"field" validate:"required,encryptable_field"`
}
