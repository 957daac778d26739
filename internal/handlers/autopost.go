package handlers

import (
	"context"
	"errors"
	"fmt"

	"aichannel-bot/internal/database/models"
	"aichannel-bot/internal/llm"
	"aichannel-bot/internal/locales"
	telegoapi "aichannel-bot/pkg/telegoapi"

	"github.com/charmbracelet/log"
	"github.com/getsentry/sentry-go"
	tu "github.com/mymmrac/telego/telegoutil"
)

// AutoPoster is the body of the daily auto-post job: draft a post and publish it without review.
type AutoPoster struct {
	bot       telegoapi.BotAPI
	drafter   DraftWriter
	posts     PostStore
	publisher PostPublisher
	adminID   int64
	language  string
}

// NewAutoPoster creates an AutoPoster. Problems are reported to adminID.
func NewAutoPoster(bot telegoapi.BotAPI, drafter DraftWriter, posts PostStore, pub PostPublisher, adminID int64, language string) *AutoPoster {
	return &AutoPoster{
		bot:       bot,
		drafter:   drafter,
		posts:     posts,
		publisher: pub,
		adminID:   adminID,
		language:  language,
	}
}

// Run generates and publishes one auto-post.
func (a *AutoPoster) Run(ctx context.Context) {
	log.Info("[AutoPost] Job started")
	if err := a.run(ctx); err != nil {
		log.Errorf("[AutoPost] %v", err)
		sentry.CaptureException(fmt.Errorf("auto-post: %w", err))
		return
	}
	log.Info("[AutoPost] Job finished")
}

func (a *AutoPoster) run(ctx context.Context) error {
	top, err := a.posts.Top(topPostsLimit)
	if err != nil {
		log.Warnf("[AutoPost] Failed to read top posts: %v", err)
		top = nil
	}

	draft, err := a.drafter.AutoPost(ctx, top)
	if errors.Is(err, llm.ErrEmptyResponse) {
		a.notify(ctx, "MsgAutoEmpty", nil)
		return err
	}
	if err != nil {
		a.notify(ctx, "MsgAutoGenerateError", errData(err))
		return err
	}

	res, err := a.publisher.Publish(ctx, draft.Text, nil, models.SourceAuto)
	if err != nil {
		a.notify(ctx, "MsgAutoPublishError", map[string]interface{}{
			"ChannelID": a.publisher.ChannelID(),
			"Error":     err.Error(),
		})
		return err
	}
	log.Infof("[AutoPost] Published message %d to channel %d", res.MessageID, a.publisher.ChannelID())

	if res.LogErr != nil {
		a.notify(ctx, "MsgAutoLogError", map[string]interface{}{
			"MessageID": res.MessageID,
			"Error":     res.LogErr.Error(),
		})
	}
	return nil
}

func (a *AutoPoster) notify(ctx context.Context, msgID string, data map[string]interface{}) {
	text := locales.GetMessage(locales.NewLocalizer(a.language), msgID, data, nil)
	if _, err := a.bot.SendMessage(ctx, tu.Message(tu.ID(a.adminID), text)); err != nil {
		log.Errorf("[AutoPost] Failed to notify admin %d: %v", a.adminID, err)
	}
}
