package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"aichannel-bot/internal/database/models"
	"aichannel-bot/internal/postlog"
	telegoapi "aichannel-bot/pkg/telegoapi"

	"github.com/charmbracelet/log"
	"github.com/mymmrac/telego"
)

// Reply keyboard labels.
const (
	MenuIdea     = "💡 Идея"
	MenuNews     = "📰 Новости"
	MenuStats    = "📊 Статистика"
	MenuAutoBest = "🕒 Авто по лучшему"
	MenuWeekly   = "📅 Отчёт за неделю"
	MenuResearch = "🔍 Ресёрч PPLX"
	MenuSchedule = "⚙️ Расписание"
	MenuStopAuto = "🛑 Остановить автопост"
)

// menuRoutes maps lower-cased button text fragments to commands. The first match wins.
var menuRoutes = []struct {
	fragment string
	command  string
}{
	{strings.ToLower(MenuIdea), "idea"},
	{strings.ToLower(MenuNews), "news"},
	{strings.ToLower(MenuStats), "stats"},
	{strings.ToLower(MenuAutoBest), "auto_best"},
	{strings.ToLower(MenuWeekly), "weekly"},
	{"отчет", "weekly"},
	{strings.ToLower(MenuResearch), "research"},
	{strings.ToLower(MenuSchedule), "schedule"},
	{strings.ToLower(MenuStopAuto), "stop_auto"},
}

// MenuCommand returns the command behind a reply keyboard button, or "" if text is not a button.
func MenuCommand(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, route := range menuRoutes {
		if strings.Contains(lowered, route.fragment) {
			return route.command
		}
	}
	return ""
}

// HandleText handles non-command text: reply keyboard buttons run their command
// behind the same admin check as the slash commands. Any other text is ignored.
func (h *MessageHandler) HandleText(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	command := MenuCommand(message.Text)
	if command == "" {
		log.Debugf("[Menu Msg:%d] Text does not match any menu button: %q", message.MessageID, message.Text)
		return nil
	}
	handler := h.GetCommandHandler(command)
	if handler == nil {
		return fmt.Errorf("menu button %q points to unknown command /%s", message.Text, command)
	}
	log.Infof("[Menu Msg:%d] Button %q -> /%s", message.MessageID, message.Text, command)
	return handler(ctx, bot, message)
}

// HandleChannelPost appends a new text post of the managed channel to the post log.
func (h *MessageHandler) HandleChannelPost(_ context.Context, message telego.Message) error {
	channelID := h.publisher.ChannelID()
	if message.Chat.ID != channelID {
		log.Warnf("[ChannelPost Chat:%d] Post from an unmanaged channel ignored", message.Chat.ID)
		return nil
	}
	if message.Text == "" {
		log.Debugf("[ChannelPost Msg:%d] Non-text post, not logged", message.MessageID)
		return nil
	}

	rec := postlog.Record{
		MessageID: message.MessageID,
		Text:      message.Text,
		Timestamp: time.Unix(int64(message.Date), 0).UTC(),
		Source:    models.SourceChannel,
	}
	if err := h.posts.Append(rec); err != nil {
		return fmt.Errorf("log channel post %d: %w", message.MessageID, err)
	}
	log.Infof("[ChannelPost Msg:%d] New channel post logged", message.MessageID)
	return nil
}
