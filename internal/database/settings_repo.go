package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aichannel-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const settingsCollection = "settings"

// MongoScheduleRepository stores job schedules in the settings collection, one document per job name.
type MongoScheduleRepository struct {
	collection *mongo.Collection
}

// NewMongoScheduleRepository creates a schedule repository.
func NewMongoScheduleRepository(db *mongo.Database) *MongoScheduleRepository {
	return &MongoScheduleRepository{collection: db.Collection(settingsCollection)}
}

// GetSchedule loads the schedule with the given job name.
func (r *MongoScheduleRepository) GetSchedule(ctx context.Context, name string) (*models.Schedule, error) {
	var schedule models.Schedule
	err := r.collection.FindOne(ctx, bson.M{"_id": name}).Decode(&schedule)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule %q: %w", name, err)
	}
	return &schedule, nil
}

// SaveSchedule upserts the schedule document.
func (r *MongoScheduleRepository) SaveSchedule(ctx context.Context, schedule *models.Schedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": schedule.Name},
		schedule,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save schedule %q: %w", schedule.Name, err)
	}
	return nil
}
