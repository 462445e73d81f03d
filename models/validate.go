package models

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

/*
RegisterWithValidator register with the validator this custom validation support

	@param v *validator.Validate - the validator to register against
	@return whether successful
*/
func RegisterWithValidator(v *validator.Validate) error {
	if err := v.RegisterValidation(
		"journal_event_type", validateJournalEventType,
	); err != nil {
		return err
	}

	if err := v.RegisterValidation(
		"encryptable_field", validateEncryptableFieldType,
	); err != nil {
		return err
	}

	if err := v.RegisterValidation(
		"entry_sort_field", validateEntrySortFieldType,
	); err != nil {
		return err
	}

	if err := v.RegisterValidation(
		"sort_order", validateSortOrderType,
	); err != nil {
		return err
	}

	return nil
}

func validateJournalEventType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch JournalEventTypeENUMType(fl.Field().String()) {
	case JournalEventTypeUserRegistered:
		fallthrough
	case JournalEventTypeUserDeleted:
		fallthrough
	case JournalEventTypeEntryCreated:
		fallthrough
	case JournalEventTypeEntryUpdated:
		fallthrough
	case JournalEventTypeEntryDeleted:
		fallthrough
	case JournalEventTypeEntryFieldMigrated:
		return true
	}
	return false
}

func validateEncryptableFieldType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch EncryptableFieldENUMType(fl.Field().String()) {
	case EncryptableFieldTitle:
		fallthrough
	case EncryptableFieldContent:
		return true
	}
	return false
}

func validateEntrySortFieldType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch EntrySortFieldENUMType(fl.Field().String()) {
	case EntrySortFieldCreatedAt:
		fallthrough
	case EntrySortFieldUpdatedAt:
		return true
	}
	return false
}

func validateSortOrderType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch SortOrderENUMType(fl.Field().String()) {
	case SortOrderAscending:
		fallthrough
	case SortOrderDescending:
		return true
	}
	return false
}
