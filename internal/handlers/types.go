package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"aichannel-bot/internal/config"
	"aichannel-bot/internal/database"
	"aichannel-bot/internal/locales"
	telegoapi "aichannel-bot/pkg/telegoapi"

	"github.com/charmbracelet/log"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// topPostsLimit is how many of the best posts are shown to the model as examples.
const topPostsLimit = 5

// CommandFunc handles one bot command.
type CommandFunc func(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error

// Command represents a bot command, mapping the command string to its description key and handler function.
type Command struct {
	Command     string
	Description string // i18n message ID
	Handler     CommandFunc
}

// Deps holds the dependencies of a MessageHandler.
// Images may be nil when image generation is disabled.
type Deps struct {
	Config       *config.Config
	AdminChecker AdminChecker
	Posts        PostStore
	Drafter      DraftWriter
	Images       ImageGenerator
	News         NewsFetcher
	Publisher    PostPublisher
	Scheduler    AutoScheduler
	Drafts       database.DraftRepository
	UserRepo     database.UserRepository
	ActionLogger database.UserActionLogger
}

// MessageHandler handles admin commands, menu buttons, draft callbacks and channel posts.
type MessageHandler struct {
	cfg          *config.Config
	adminChecker AdminChecker
	posts        PostStore
	drafter      DraftWriter
	images       ImageGenerator
	news         NewsFetcher
	publisher    PostPublisher
	scheduler    AutoScheduler
	drafts       database.DraftRepository
	userRepo     database.UserRepository
	actionLogger database.UserActionLogger

	commands []Command
	now      func() time.Time
}

// NewMessageHandler creates a MessageHandler and registers the bot commands.
func NewMessageHandler(deps Deps) (*MessageHandler, error) {
	switch {
	case deps.Config == nil:
		return nil, fmt.Errorf("config cannot be nil")
	case deps.AdminChecker == nil:
		return nil, fmt.Errorf("admin checker cannot be nil")
	case deps.Posts == nil:
		return nil, fmt.Errorf("post store cannot be nil")
	case deps.Drafter == nil:
		return nil, fmt.Errorf("drafter cannot be nil")
	case deps.News == nil:
		return nil, fmt.Errorf("news fetcher cannot be nil")
	case deps.Publisher == nil:
		return nil, fmt.Errorf("publisher cannot be nil")
	case deps.Scheduler == nil:
		return nil, fmt.Errorf("scheduler cannot be nil")
	case deps.Drafts == nil:
		return nil, fmt.Errorf("draft repository cannot be nil")
	case deps.UserRepo == nil:
		return nil, fmt.Errorf("user repository cannot be nil")
	case deps.ActionLogger == nil:
		return nil, fmt.Errorf("action logger cannot be nil")
	}

	h := &MessageHandler{
		cfg:          deps.Config,
		adminChecker: deps.AdminChecker,
		posts:        deps.Posts,
		drafter:      deps.Drafter,
		images:       deps.Images,
		news:         deps.News,
		publisher:    deps.Publisher,
		scheduler:    deps.Scheduler,
		drafts:       deps.Drafts,
		userRepo:     deps.UserRepo,
		actionLogger: deps.ActionLogger,
		now:          time.Now,
	}
	h.commands = []Command{
		{Command: "start", Description: "CmdStartDesc", Handler: h.HandleStart},
		{Command: "help", Description: "CmdHelpDesc", Handler: h.HandleHelp},
		{Command: "idea", Description: "CmdIdeaDesc", Handler: h.HandleIdea},
		{Command: "news", Description: "CmdNewsDesc", Handler: h.HandleNews},
		{Command: "stats", Description: "CmdStatsDesc", Handler: h.HandleStats},
		{Command: "auto_best", Description: "CmdAutoBestDesc", Handler: h.HandleAutoBest},
		{Command: "weekly", Description: "CmdWeeklyDesc", Handler: h.HandleWeekly},
		{Command: "research", Description: "CmdResearchDesc", Handler: h.HandleResearch},
		{Command: "schedule", Description: "CmdScheduleDesc", Handler: h.HandleSchedule},
		{Command: "stop_auto", Description: "CmdStopAutoDesc", Handler: h.HandleStopAuto},
	}
	return h, nil
}

// GetCommandHandler returns the admin-gated handler for command, or nil if the command is unknown.
// A "@botname" suffix is ignored.
func (h *MessageHandler) GetCommandHandler(command string) CommandFunc {
	command, _, _ = strings.Cut(command, "@")
	for _, cmd := range h.commands {
		if cmd.Command == command {
			return h.adminOnly(cmd.Command, cmd.Handler)
		}
	}
	return nil
}

// GetChannelID returns the target channel ID.
func (h *MessageHandler) GetChannelID() int64 {
	return h.publisher.ChannelID()
}

// SetupCommands registers the command list with Telegram.
func (h *MessageHandler) SetupCommands(ctx context.Context, bot telegoapi.BotAPI) error {
	localizer := h.localizer()
	commands := make([]telego.BotCommand, 0, len(h.commands))
	for _, cmd := range h.commands {
		commands = append(commands, telego.BotCommand{
			Command:     cmd.Command,
			Description: locales.GetMessage(localizer, cmd.Description, nil, nil),
		})
	}
	if err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: commands}); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	log.Infof("Successfully set %d bot commands.", len(commands))
	return nil
}

// adminOnly rejects everybody but the administrator before running next.
func (h *MessageHandler) adminOnly(command string, next CommandFunc) CommandFunc {
	return func(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
		if message.From == nil {
			return nil
		}
		isAdmin, err := h.adminChecker.IsAdmin(ctx, message.From.ID)
		if err != nil {
			return fmt.Errorf("admin check for /%s: %w", command, err)
		}
		if !isAdmin {
			log.Warnf("[Cmd:%s User:%d] Unauthorized access attempt", command, message.From.ID)
			msg := locales.GetMessage(h.localizer(), "MsgAccessDenied", nil, nil)
			if _, err := bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), msg)); err != nil {
				log.Errorf("[Cmd:%s User:%d] Failed to send access denied message: %v", command, message.From.ID, err)
			}
			return nil
		}
		return next(ctx, bot, message)
	}
}
