package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Draft kinds.
const (
	DraftKindIdea     = "idea"
	DraftKindNews     = "news"
	DraftKindResearch = "research"
)

// Draft statuses.
const (
	DraftStatusPending   = "pending"
	DraftStatusPublished = "published"
	DraftStatusDeleted   = "deleted"
)

// Draft is a generated post shown to the admin for review.
type Draft struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Kind             string             `bson:"kind"`
	Model            string             `bson:"model"`
	UsedFallback     bool               `bson:"used_fallback"`
	Text             string             `bson:"text"`
	ChatID           int64              `bson:"chat_id"`
	MessageID        int                `bson:"message_id"`
	Status           string             `bson:"status"`
	ChannelMessageID int                `bson:"channel_message_id,omitempty"`
	CreatedAt        time.Time          `bson:"created_at"`
	ResolvedAt       *time.Time         `bson:"resolved_at,omitempty"`
}
