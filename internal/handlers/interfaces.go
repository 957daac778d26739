package handlers

import (
	"context"
	"time"

	"aichannel-bot/internal/llm"
	"aichannel-bot/internal/news"
	"aichannel-bot/internal/postlog"
	"aichannel-bot/internal/publisher"
	"aichannel-bot/internal/scheduler"
)

// AdminChecker decides who may control the bot.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	AdminID() int64
}

// PostStore is the post log as seen by the handlers.
type PostStore interface {
	Append(rec postlog.Record) error
	ReadAll() ([]postlog.Record, error)
	Top(n int) ([]postlog.Record, error)
}

// DraftWriter generates post drafts.
type DraftWriter interface {
	Idea(ctx context.Context, top []postlog.Record) (llm.Draft, error)
	News(ctx context.Context, items []news.Item) (llm.Draft, error)
	AutoPost(ctx context.Context, top []postlog.Record) (llm.Draft, error)
	Research(ctx context.Context, query string) (llm.Draft, error)
	ResearchEnabled() bool
}

// ImageGenerator illustrates a post.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// NewsFetcher loads the news feed.
type NewsFetcher interface {
	Fetch(ctx context.Context, url string, limit int) ([]news.Item, error)
}

// PostPublisher sends posts to the channel.
type PostPublisher interface {
	Publish(ctx context.Context, text string, image []byte, source string) (publisher.Result, error)
	ChannelID() int64
}

// AutoScheduler controls the daily auto-post job.
type AutoScheduler interface {
	ScheduleDaily(ctx context.Context, hhmm string) (time.Time, error)
	Stop(ctx context.Context) (bool, error)
	Status() scheduler.Status
}
