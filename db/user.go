package db

import (
	"context"
	"fmt"

	"github.com/alwitt/chronicle/models"
	"github.com/google/uuid"
)

// ======================================================================================
// Users

/*
DefineNewUser define new user

	@param ctx context.Context - execution context
	@param email string - unique login email
	@param displayName string - user facing name
	@param passwordHash string - PHC encoded password hash
	@returns user entry
*/
func (d *databaseImpl) DefineNewUser(
	_ context.Context, email string, displayName string, passwordHash string,
) (models.User, error) {
	newEntry := UserDBEntry{
		User: models.User{
			ID:           uuid.NewString(),
			Email:        email,
			DisplayName:  displayName,
			PasswordHash: passwordHash,
		},
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.User{}, fmt.Errorf("new user '%s' is not valid [%w]", email, err)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.User{}, fmt.Errorf("new user '%s' failed insert [%w]", email, tmp.Error)
	}

	// Record this event
	if _, err := d.defineNewJournalEvent(
		models.JournalEventTypeUserRegistered,
		models.JournalEventUserRelated{UserID: newEntry.ID},
	); err != nil {
		return models.User{}, fmt.Errorf(
			"failed to log new user '%s' audit event [%w]", email, err,
		)
	}

	return newEntry.User, nil
}

// getUserEntry find a user by ID
func (d *databaseImpl) getUserEntry(userID string) (UserDBEntry, error) {
	var entry UserDBEntry
	err := d.db.Where("id = ?", userID).First(&entry).Error
	return entry, err
}

/*
GetUser fetch a user by ID

	@param ctx context.Context - execution context
	@param userID string - user ID
	@returns user entry
*/
func (d *databaseImpl) GetUser(_ context.Context, userID string) (models.User, error) {
	entry, err := d.getUserEntry(userID)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to fetch user %s [%w]", userID, err)
	}

	return entry.User, nil
}

/*
GetUserByEmail fetch a user by login email

	@param ctx context.Context - execution context
	@param email string - login email
	@returns user entry
*/
func (d *databaseImpl) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	var entry UserDBEntry
	if tmp := d.db.Where("email = ?", email).First(&entry); tmp.Error != nil {
		return models.User{}, fmt.Errorf("failed to fetch user '%s' [%w]", email, tmp.Error)
	}

	return entry.User, nil
}

/*
DeleteUser delete a user. Owned journal entries cascade.

	@param ctx context.Context - execution context
	@param userID string - user ID
*/
func (d *databaseImpl) DeleteUser(_ context.Context, userID string) error {
	entry, err := d.getUserEntry(userID)
	if err != nil {
		return fmt.Errorf("failed to fetch user %s [%w]", userID, err)
	}

	if tmp := d.db.Delete(&entry); tmp.Error != nil {
		return fmt.Errorf("failed to delete user %s [%w]", userID, tmp.Error)
	}

	// Record this event
	if _, err := d.defineNewJournalEvent(
		models.JournalEventTypeUserDeleted,
		models.JournalEventUserRelated{UserID: entry.ID},
	); err != nil {
		return fmt.Errorf(
			"failed to log delete user %s audit event [%w]", userID, err,
		)
	}

	return nil
}
