package database

import (
	"context"
	"fmt"
	"time"

	"aichannel-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const draftsCollection = "drafts"

// draftRepository is a MongoDB implementation of DraftRepository.
type draftRepository struct {
	collection *mongo.Collection
}

// NewDraftRepository creates a DraftRepository backed by the drafts collection.
func NewDraftRepository(db *mongo.Database) DraftRepository {
	return &draftRepository{collection: db.Collection(draftsCollection)}
}

// SaveDraft stores a freshly generated draft.
func (r *draftRepository) SaveDraft(ctx context.Context, draft *models.Draft) error {
	if draft.ID.IsZero() {
		draft.ID = primitive.NewObjectID()
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now().UTC()
	}
	if draft.Status == "" {
		draft.Status = models.DraftStatusPending
	}

	if _, err := r.collection.InsertOne(ctx, draft); err != nil {
		return fmt.Errorf("failed to insert draft: %w", err)
	}
	return nil
}

// ResolveDraft marks the draft shown in the given admin message as published or deleted.
// It returns ErrNotFound when no pending draft matches.
func (r *draftRepository) ResolveDraft(ctx context.Context, chatID int64, messageID int, status string, channelMessageID int) error {
	now := time.Now().UTC()
	set := bson.M{
		"status":      status,
		"resolved_at": now,
	}
	if channelMessageID != 0 {
		set["channel_message_id"] = channelMessageID
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"chat_id": chatID, "message_id": messageID, "status": models.DraftStatusPending},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("failed to resolve draft %d/%d: %w", chatID, messageID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
