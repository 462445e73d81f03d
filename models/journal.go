package models

import (
	"time"

	"gorm.io/datatypes"
)

// EncryptableFieldENUMType enum naming the journal entry fields stored encrypted
type EncryptableFieldENUMType string

const (
	// EncryptableFieldTitle the entry title field
	EncryptableFieldTitle EncryptableFieldENUMType = "title"
	// EncryptableFieldContent the entry content field
	EncryptableFieldContent EncryptableFieldENUMType = "content"
)

// EntrySortFieldENUMType enum of supported entry listing sort fields
type EntrySortFieldENUMType string

const (
	// EntrySortFieldCreatedAt sort entries by creation timestamp
	EntrySortFieldCreatedAt EntrySortFieldENUMType = "created_at"
	// EntrySortFieldUpdatedAt sort entries by update timestamp
	EntrySortFieldUpdatedAt EntrySortFieldENUMType = "updated_at"
)

// SortOrderENUMType enum of supported entry listing sort orders
type SortOrderENUMType string

const (
	// SortOrderAscending ascending sort order
	SortOrderAscending SortOrderENUMType = "asc"
	// SortOrderDescending descending sort order
	SortOrderDescending SortOrderENUMType = "desc"
)

// EncryptedField one encryptable column group of a journal entry.
//
// A migrated field carries cipher text, nonce, and auth tag, with the plain
// text column cleared. A legacy field (written before encryption at rest
// existed) carries only the plain text column.
type EncryptedField struct {
	// CipherText the symmetrically encrypted field value
	CipherText []byte `json:"cipher_text,omitempty" gorm:"column:cipher_text;default:null"`
	// Nonce the encryption nonce used. Unique per encryption.
	Nonce []byte `json:"nonce,omitempty" gorm:"column:nonce;default:null"`
	// AuthTag the AEAD authentication tag over the cipher text
	AuthTag []byte `json:"auth_tag,omitempty" gorm:"column:auth_tag;default:null"`
	// PlainText legacy unencrypted field value
	PlainText *string `json:"-" gorm:"column:plain_text;default:null"`
}

// IsEnvelope structural check whether this field holds an encrypted envelope.
//
// It does not attempt decryption. Nonce and auth tag both present is the
// migration signal.
func (f EncryptedField) IsEnvelope() bool {
	return len(f.Nonce) > 0 && len(f.AuthTag) > 0
}

// JournalEntry one private journal entry
type JournalEntry struct {
	// ID entry ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required"`

	// OwnerID the user owning this entry. Immutable after creation.
	OwnerID string `json:"owner_id" gorm:"column:owner_id;not null" validate:"required,uuid_rfc4122"`

	// Title the entry title field
	Title EncryptedField `json:"title" gorm:"embedded;embeddedPrefix:title_"`
	// Content the entry content field
	Content EncryptedField `json:"content" gorm:"embedded;embeddedPrefix:content_"`

	// Mood optional plain text mood marker
	Mood *string `json:"mood,omitempty" gorm:"column:mood;default:null"`
	// Tags ordered list of plain text tags, stored as JSON
	Tags datatypes.JSON `json:"tags,omitempty" gorm:"column:tags;default:null"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}
