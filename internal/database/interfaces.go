package database

import (
	"context"
	"errors"

	"aichannel-bot/internal/database/models"
)

// ErrNotFound is returned by repositories when the requested document does not exist.
var ErrNotFound = errors.New("document not found")

// PostLogger defines the interface for logging published posts.
type PostLogger interface {
	// LogPublishedPost logs information about a post published to the channel.
	LogPublishedPost(log models.PostLog) error
}

// UserActionLogger defines the interface for logging user actions.
type UserActionLogger interface {
	// LogUserAction logs an action performed by a user.
	LogUserAction(userID int64, action string, details interface{}) error
}

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	// UpdateUser updates or creates a user record in the database.
	UpdateUser(ctx context.Context, userID int64, username, firstName, lastName string, isAdmin bool, action string) error
}

// DraftRepository keeps the history of generated drafts and how they were resolved.
type DraftRepository interface {
	SaveDraft(ctx context.Context, draft *models.Draft) error
	ResolveDraft(ctx context.Context, chatID int64, messageID int, status string, channelMessageID int) error
}

// ScheduleRepository persists the daily auto-post schedule across restarts.
type ScheduleRepository interface {
	GetSchedule(ctx context.Context, name string) (*models.Schedule, error)
	SaveSchedule(ctx context.Context, schedule *models.Schedule) error
}
