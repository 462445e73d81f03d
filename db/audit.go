// Package db - persistence layer
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alwitt/chronicle/models"
	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
)

// defineNewJournalEvent record a new journal event
func (d *databaseImpl) defineNewJournalEvent(
	eventType models.JournalEventTypeENUMType, metadata interface{},
) (models.JournalEventAudit, error) {

	newEntry := JournalEventAuditDBEntry{
		JournalEventAudit: models.JournalEventAudit{ID: ulid.Make().String(), EventType: eventType},
	}

	if metadata != nil {
		if err := d.validator.Struct(metadata); err != nil {
			return models.JournalEventAudit{}, fmt.Errorf(
				"new journal event '%s' metadata entry is not valid [%w]", eventType, err,
			)
		}

		metadataStr, _ := json.Marshal(&metadata)
		newEntry.Metadata = datatypes.JSON(metadataStr)
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.JournalEventAudit{}, fmt.Errorf(
			"new journal event '%s' entry is not valid [%w]", eventType, err,
		)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.JournalEventAudit{}, fmt.Errorf(
			"new journal event '%s' insert failed [%w]", eventType, tmp.Error,
		)
	}

	return newEntry.JournalEventAudit, nil
}

/*
ListJournalEvents list captured journal events

	@param ctx context.Context - execution context
	@param filters JournalEventQueryFilter - entry listing filter
	@return list of journal events
*/
func (d *databaseImpl) ListJournalEvents(
	_ context.Context, filters JournalEventQueryFilter,
) ([]models.JournalEventAudit, error) {
	query := d.db.Model(&JournalEventAuditDBEntry{})

	if len(filters.EventTypes) > 0 {
		query = query.Where("type in ?", filters.EventTypes)
	}

	if filters.EventsAfter != nil {
		query = query.Where("created_at >= ?", *filters.EventsAfter)
	}
	if filters.EventsBefore != nil {
		query = query.Where("created_at <= ?", *filters.EventsBefore)
	}

	if filters.Limit != nil {
		query = query.Limit(*filters.Limit)
	}
	if filters.Offset != nil {
		query = query.Offset(*filters.Offset)
	}

	query = query.Order("created_at")

	var entries []JournalEventAuditDBEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list captured journal events [%w]", tmp.Error)
	}

	result := []models.JournalEventAudit{}
	for _, entry := range entries {
		result = append(result, entry.JournalEventAudit)
	}

	return result, nil
}
