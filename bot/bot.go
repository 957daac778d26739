package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"aichannel-bot/internal/handlers"
	"aichannel-bot/internal/locales"
	telegoapi "aichannel-bot/pkg/telegoapi"

	"github.com/charmbracelet/log"
	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/ratelimit"
)

// updateTimeout bounds the handling of one update. Drafting and image generation are slow.
const updateTimeout = 3 * time.Minute

// AllowedUpdates are the update types requested from Telegram.
var AllowedUpdates = []string{"message", "callback_query", "channel_post", "edited_channel_post"}

// UpdateHandler is the application logic the update loop dispatches to.
type UpdateHandler interface {
	GetCommandHandler(command string) handlers.CommandFunc
	HandleText(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error
	HandleCallbackQuery(ctx context.Context, bot telegoapi.BotAPI, query telego.CallbackQuery) error
	HandleChannelPost(ctx context.Context, message telego.Message) error
}

// Bot runs the update loop: every update is handled in its own goroutine
// behind a global rate limiter.
type Bot struct {
	bot         telegoapi.BotAPI
	updatesChan <-chan telego.Update
	debug       bool
	language    string
	handler     UpdateHandler
	ratelimiter ratelimit.Limiter
	timeout     time.Duration
}

// BotDeps holds the dependencies required by the Bot.
type BotDeps struct {
	Bot         telegoapi.BotAPI
	UpdatesChan <-chan telego.Update
	Debug       bool
	// Language of the few replies the loop sends itself.
	Language string
	Handler  UpdateHandler
}

// New creates a new Bot instance from its dependencies.
func New(deps BotDeps) (*Bot, error) {
	if deps.Bot == nil {
		return nil, fmt.Errorf("telego bot (BotAPI) instance cannot be nil")
	}
	if deps.Handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}
	if deps.UpdatesChan == nil {
		return nil, fmt.Errorf("updates channel cannot be nil")
	}
	language := deps.Language
	if language == "" {
		language = locales.DefaultLanguage
	}

	return &Bot{
		bot:         deps.Bot,
		updatesChan: deps.UpdatesChan,
		debug:       deps.Debug,
		language:    language,
		handler:     deps.Handler,
		ratelimiter: ratelimit.New(20),
		timeout:     updateTimeout,
	}, nil
}

// Start processes updates until ctx is cancelled or the updates channel closes.
// It returns after every in-flight update has been handled.
func (b *Bot) Start(ctx context.Context) {
	log.Info("Listening for updates...")

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			log.Info("Context done, stopping update processing...")
			wg.Wait()
			log.Info("All update processing finished.")
			return
		case update, ok := <-b.updatesChan:
			if !ok {
				log.Info("Updates channel closed.")
				wg.Wait()
				return
			}
			wg.Add(1)
			go func(up telego.Update) {
				defer wg.Done()
				b.processUpdate(ctx, up)
			}(update)
		}
	}
}

// processUpdate routes incoming updates to the appropriate handlers.
func (b *Bot) processUpdate(ctx context.Context, update telego.Update) {
	b.ratelimiter.Take()

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("PANIC recovered in processUpdate %d: %v\n%s", update.UpdateID, r, debug.Stack())
			sentry.CurrentHub().Recover(r)
			sentry.Flush(2 * time.Second)
		}
	}()

	processingCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	switch {
	case update.Message != nil:
		message := *update.Message
		if message.From == nil {
			log.Debugf("Ignoring message %d from chat %d without sender", message.MessageID, message.Chat.ID)
			return
		}
		switch {
		case strings.HasPrefix(message.Text, "/"):
			b.handleCommandUpdate(processingCtx, message)
		case message.Text != "":
			b.handleTextUpdate(processingCtx, message)
		default:
			log.Debugf("Ignoring non-text message %d", message.MessageID)
		}

	case update.CallbackQuery != nil:
		query := *update.CallbackQuery
		if err := b.handler.HandleCallbackQuery(processingCtx, b.bot, query); err != nil {
			b.report(fmt.Sprintf("[Callback User:%d Data:%s]", query.From.ID, query.Data), err)
		}

	case update.ChannelPost != nil:
		post := *update.ChannelPost
		if err := b.handler.HandleChannelPost(processingCtx, post); err != nil {
			b.report(fmt.Sprintf("[ChannelPost Chat:%d Msg:%d]", post.Chat.ID, post.MessageID), err)
		}

	case update.EditedChannelPost != nil:
		log.Debugf("[ChannelPost Msg:%d] Edited channel post ignored", update.EditedChannelPost.MessageID)

	default:
		log.Debugf("Ignoring unhandled update %d", update.UpdateID)
	}
}

// handleCommandUpdate processes a message identified as a command.
func (b *Bot) handleCommandUpdate(ctx context.Context, message telego.Message) {
	command := "unknown"
	if len(message.Text) > 1 {
		command = strings.Fields(message.Text)[0][1:]
	}
	logPrefix := fmt.Sprintf("[Cmd:%s User:%d]", command, message.From.ID)

	handlerFunc := b.handler.GetCommandHandler(command)
	if handlerFunc == nil {
		log.Warnf("%s No handler found", logPrefix)
		text := locales.GetMessage(locales.NewLocalizer(b.language), "MsgErrorUnknownCommand", nil, nil)
		if _, err := b.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), text)); err != nil {
			log.Errorf("%s Failed to send unknown command message: %v", logPrefix, err)
		}
		return
	}

	if b.debug {
		log.Debugf("%s Executing handler", logPrefix)
	}
	if err := handlerFunc(ctx, b.bot, message); err != nil {
		b.report(logPrefix, err)
		return
	}
	if b.debug {
		log.Debugf("%s Handler finished successfully", logPrefix)
	}
}

// handleTextUpdate processes a non-command text message.
func (b *Bot) handleTextUpdate(ctx context.Context, message telego.Message) {
	if err := b.handler.HandleText(ctx, b.bot, message); err != nil {
		b.report(fmt.Sprintf("[Text User:%d Msg:%d]", message.From.ID, message.MessageID), err)
	}
}

func (b *Bot) report(logPrefix string, err error) {
	log.Errorf("%s Handler error: %v", logPrefix, err)
	sentry.CaptureException(fmt.Errorf("%s handler error: %w", logPrefix, err))
}
