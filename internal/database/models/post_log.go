package models

import "time"

// Post sources recorded with every log entry.
const (
	SourceManual  = "manual"
	SourceAuto    = "auto"
	SourceChannel = "channel"
)

// PostLog mirrors a published channel post in MongoDB.
type PostLog struct {
	ChannelID   int64     `bson:"channel_id"`
	MessageID   int       `bson:"message_id"`
	Text        string    `bson:"text"`
	Source      string    `bson:"source"`
	Reactions   int       `bson:"reactions"`
	PublishedAt time.Time `bson:"published_at"`
	LoggedAt    time.Time `bson:"logged_at"`
}
