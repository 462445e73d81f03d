package db

import (
	"context"

	"gorm.io/gorm"
)

// DefineTables prepare a database with all chronicle tables.
//
// Intended for unit tests and embedded (Sqlite) deployments; managed
// deployments use the Atlas schema loader instead.
func DefineTables(_ context.Context, db *gorm.DB) error {
	return db.AutoMigrate(
		JournalEventAuditDBEntry{},
		UserDBEntry{},
		JournalEntryDBEntry{},
	)
}
