package handlers

import (
	"context"
	"errors"
	"strings"

	"aichannel-bot/internal/database"
	"aichannel-bot/internal/database/models"
	"aichannel-bot/internal/llm"
	"aichannel-bot/internal/locales"
	"aichannel-bot/internal/publisher"
	telegoapi "aichannel-bot/pkg/telegoapi"
	"aichannel-bot/pkg/utils"

	"github.com/charmbracelet/log"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// localizer returns the localizer for the configured bot language.
func (h *MessageHandler) localizer() *i18n.Localizer {
	return locales.NewLocalizer(h.cfg.DefaultLanguage)
}

// msg localizes a message ID.
func (h *MessageHandler) msg(id string, data map[string]interface{}) string {
	return locales.GetMessage(h.localizer(), id, data, nil)
}

// errData is the template data for messages that show an error.
func errData(err error) map[string]interface{} {
	return map[string]interface{}{"Error": err.Error()}
}

// sendText sends a plain text message. Delivery failures are logged, not returned.
func (h *MessageHandler) sendText(ctx context.Context, bot telegoapi.BotAPI, chatID int64, text string) {
	if _, err := bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.Errorf("Error sending message to chat %d: %v", chatID, err)
	}
}

// sendMarkdown sends text that is already escaped for MarkdownV2.
func (h *MessageHandler) sendMarkdown(ctx context.Context, bot telegoapi.BotAPI, chatID int64, text string) {
	params := tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeMarkdownV2)
	if _, err := bot.SendMessage(ctx, params); err != nil {
		log.Errorf("Error sending markdown message to chat %d: %v", chatID, err)
	}
}

// sendError reports err to the chat with the localized message msgID and returns err for the update loop.
func (h *MessageHandler) sendError(ctx context.Context, bot telegoapi.BotAPI, chatID int64, msgID string, err error) error {
	h.sendText(ctx, bot, chatID, h.msg(msgID, errData(err)))
	return err
}

// editText replaces the text of a bot message. Failures are only logged.
func (h *MessageHandler) editText(ctx context.Context, bot telegoapi.BotAPI, chatID int64, messageID int, text string, parseMode string) {
	params := tu.EditMessageText(tu.ID(chatID), messageID, text)
	if parseMode != "" {
		params = params.WithParseMode(parseMode)
	}
	if _, err := bot.EditMessageText(ctx, params); err != nil {
		log.Warnf("Failed to edit message %d in chat %d: %v", messageID, chatID, err)
	}
}

// chatAction shows a "typing" or "upload_photo" indicator.
func (h *MessageHandler) chatAction(ctx context.Context, bot telegoapi.BotAPI, chatID int64, action string) {
	if err := bot.SendChatAction(ctx, tu.ChatAction(tu.ID(chatID), action)); err != nil {
		log.Warnf("Failed to send chat action '%s' to chat %d: %v", action, chatID, err)
	}
}

// mainMenu is the persistent reply keyboard shown after /start.
func mainMenu() *telego.ReplyKeyboardMarkup {
	return tu.Keyboard(
		tu.KeyboardRow(tu.KeyboardButton(MenuIdea), tu.KeyboardButton(MenuNews)),
		tu.KeyboardRow(tu.KeyboardButton(MenuStats), tu.KeyboardButton(MenuAutoBest)),
		tu.KeyboardRow(tu.KeyboardButton(MenuWeekly), tu.KeyboardButton(MenuResearch)),
		tu.KeyboardRow(tu.KeyboardButton(MenuSchedule), tu.KeyboardButton(MenuStopAuto)),
	).WithResizeKeyboard().WithIsPersistent()
}

// draftKeyboard carries the publish and delete buttons under every draft.
func (h *MessageHandler) draftKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(h.msg("BtnPublish", nil)).WithCallbackData(CallbackPublish),
			tu.InlineKeyboardButton(h.msg("BtnDelete", nil)).WithCallbackData(CallbackDelete),
		),
	)
}

// sendDraft shows a generated draft to the admin and records it.
func (h *MessageHandler) sendDraft(ctx context.Context, bot telegoapi.BotAPI, chatID int64, kind, prefix string, draft llm.Draft) error {
	fallback := ""
	if draft.UsedFallback {
		fallback = draft.Model
	}
	text := utils.TruncateRunes(publisher.FormatDraft(prefix, draft.Text, fallback), publisher.MessageLimit)

	sent, err := bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text).WithReplyMarkup(h.draftKeyboard()))
	if err != nil {
		return err
	}

	record := &models.Draft{
		Kind:         kind,
		Model:        draft.Model,
		UsedFallback: draft.UsedFallback,
		Text:         draft.Text,
		ChatID:       chatID,
		MessageID:    sent.MessageID,
	}
	if err := h.drafts.SaveDraft(ctx, record); err != nil {
		log.Errorf("[Draft:%s Msg:%d] Failed to save draft: %v", kind, sent.MessageID, err)
	}
	return nil
}

// resolveDraft marks the stored draft as published or deleted.
func (h *MessageHandler) resolveDraft(ctx context.Context, chatID int64, messageID int, status string, channelMessageID int) {
	err := h.drafts.ResolveDraft(ctx, chatID, messageID, status, channelMessageID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		log.Debugf("[Draft Msg:%d] No pending draft stored, status %s not recorded", messageID, status)
	case err != nil:
		log.Errorf("[Draft Msg:%d] Failed to mark draft %s: %v", messageID, status, err)
	}
}

// commandArgs returns the text after the command word, or "" for non-command text.
func commandArgs(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	_, args, _ := strings.Cut(text, " ")
	return strings.TrimSpace(args)
}

// RecordUserActivity combines updating user info and logging the action.
func (h *MessageHandler) RecordUserActivity(ctx context.Context, user *telego.User, action string, isAdmin bool, details map[string]interface{}) {
	if user == nil {
		log.Warnf("Attempted to record activity for nil user, action: %s", action)
		return
	}
	if err := h.userRepo.UpdateUser(ctx, user.ID, user.Username, user.FirstName, user.LastName, isAdmin, action); err != nil {
		log.Errorf("Error updating user %d (%s) in DB during action %s: %v", user.ID, user.Username, action, err)
	}
	if err := h.actionLogger.LogUserAction(user.ID, action, details); err != nil {
		log.Errorf("Error logging action %s for user %d (%s): %v", action, user.ID, user.Username, err)
	}
}
