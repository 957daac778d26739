package database

import (
	"context"
	"fmt"
	"time"

	"aichannel-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	userActionsCollection = "user_actions"
	postLogsCollection    = "post_logs"
	usersCollection       = "users"
)

// MongoLogger implements PostLogger, UserActionLogger and UserRepository on MongoDB.
type MongoLogger struct {
	db *mongo.Database
}

// NewMongoLogger creates and returns a new MongoLogger instance.
func NewMongoLogger(db *mongo.Database) *MongoLogger {
	return &MongoLogger{db: db}
}

// LogUserAction writes a user action log entry to the database.
func (m *MongoLogger) LogUserAction(userID int64, action string, details interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := m.db.Collection(userActionsCollection).InsertOne(ctx, bson.M{
		"user_id": userID,
		"action":  action,
		"details": details,
		"time":    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to insert user action log for user %d: %w", userID, err)
	}
	return nil
}

// LogPublishedPost mirrors a published post into the post_logs collection.
func (m *MongoLogger) LogPublishedPost(entry models.PostLog) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = time.Now().UTC()
	}
	if _, err := m.db.Collection(postLogsCollection).InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert post log into collection '%s': %w", postLogsCollection, err)
	}
	return nil
}

// UpdateUser updates or inserts user information, counting actions per user.
func (m *MongoLogger) UpdateUser(ctx context.Context, userID int64, username, firstName, lastName string, isAdmin bool, action string) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"username":    username,
			"first_name":  firstName,
			"last_name":   lastName,
			"is_admin":    isAdmin,
			"last_seen":   now,
			"last_action": action,
		},
		"$inc": bson.M{
			"actions_count": 1,
		},
		"$setOnInsert": bson.M{
			"first_seen": now,
			"user_id":    userID,
		},
	}

	_, err := m.db.Collection(usersCollection).UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", userID, err)
	}
	return nil
}
