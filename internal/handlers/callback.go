package handlers

import (
	"context"
	"errors"
	"fmt"

	"aichannel-bot/internal/database/models"
	"aichannel-bot/internal/llm"
	"aichannel-bot/internal/publisher"
	telegoapi "aichannel-bot/pkg/telegoapi"
	"aichannel-bot/pkg/utils"

	"github.com/charmbracelet/log"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const publishPreviewLength = 100

// HandleCallbackQuery processes the draft keyboard buttons.
// The query is always answered so the button stops spinning.
func (h *MessageHandler) HandleCallbackQuery(ctx context.Context, bot telegoapi.BotAPI, query telego.CallbackQuery) error {
	logPrefix := fmt.Sprintf("[Callback User:%d Data:%s]", query.From.ID, query.Data)

	isAdmin, err := h.adminChecker.IsAdmin(ctx, query.From.ID)
	if err != nil {
		return fmt.Errorf("%s admin check: %w", logPrefix, err)
	}
	if !isAdmin {
		log.Warnf("%s Unauthorized callback", logPrefix)
		h.answerCallback(ctx, bot, tu.CallbackQuery(query.ID).WithText(h.msg("MsgAccessDenied", nil)).WithShowAlert())
		return nil
	}

	switch query.Data {
	case CallbackPublish, CallbackDelete:
	default:
		log.Warnf("%s Unknown callback data", logPrefix)
		h.answerCallback(ctx, bot, tu.CallbackQuery(query.ID).WithText(h.msg("MsgUnknownAction", nil)))
		return nil
	}
	h.answerCallback(ctx, bot, tu.CallbackQuery(query.ID))

	draftMsg, ok := query.Message.(*telego.Message)
	if !ok || draftMsg == nil {
		log.Errorf("%s Draft message is no longer accessible", logPrefix)
		h.sendText(ctx, bot, query.From.ID, h.msg("MsgDraftUnreadable", nil))
		return nil
	}

	if query.Data == CallbackDelete {
		h.editText(ctx, bot, draftMsg.Chat.ID, draftMsg.MessageID, h.msg("MsgDraftDeleted", nil), "")
		h.resolveDraft(ctx, draftMsg.Chat.ID, draftMsg.MessageID, models.DraftStatusDeleted, 0)
		h.RecordUserActivity(ctx, &query.From, ActionDeleteDraft, true, map[string]interface{}{
			"draft_message_id": draftMsg.MessageID,
		})
		log.Infof("%s Draft %d deleted", logPrefix, draftMsg.MessageID)
		return nil
	}
	return h.publishDraft(ctx, bot, query.From, draftMsg)
}

// publishDraft posts the draft shown in draftMsg to the channel, keeping the admin informed by editing that message.
func (h *MessageHandler) publishDraft(ctx context.Context, bot telegoapi.BotAPI, user telego.User, draftMsg *telego.Message) error {
	chatID, msgID := draftMsg.Chat.ID, draftMsg.MessageID
	logPrefix := fmt.Sprintf("[Publish User:%d Draft:%d]", user.ID, msgID)

	if draftMsg.Text == "" {
		log.Errorf("%s Draft message has no text", logPrefix)
		h.editText(ctx, bot, chatID, msgID, h.msg("MsgDraftUnreadable", nil), "")
		return nil
	}
	text := publisher.StripDraftPrefix(draftMsg.Text)
	if text == "" {
		log.Warnf("%s Nothing left after removing the draft prefix", logPrefix)
		h.editText(ctx, bot, chatID, msgID, h.msg("MsgDraftEmpty", nil), "")
		return nil
	}
	log.Infof("%s Publishing: %q", logPrefix, utils.Preview(text, publishPreviewLength))

	image := h.illustrate(ctx, bot, chatID, msgID, text)

	if len(image) > 0 {
		h.editText(ctx, bot, chatID, msgID, h.msg("MsgPublishingPhoto", nil), "")
	} else {
		h.editText(ctx, bot, chatID, msgID, h.msg("MsgPublishingText", nil), "")
	}

	res, err := h.publisher.Publish(ctx, text, image, models.SourceManual)
	if err != nil {
		if errors.Is(err, publisher.ErrNoChannelRights) {
			id := "MsgPublishRightsErrorText"
			if len(image) > 0 {
				id = "MsgPublishRightsErrorPhoto"
			}
			h.editText(ctx, bot, chatID, msgID, h.msg(id, errData(err)), "")
		} else {
			h.editText(ctx, bot, chatID, msgID, h.msg("MsgPublishError", errData(err)), "")
		}
		return fmt.Errorf("%s %w", logPrefix, err)
	}

	if res.LogErr != nil {
		h.sendText(ctx, bot, chatID, h.msg("MsgPublishLogError", map[string]interface{}{
			"MessageID": res.MessageID,
			"Error":     res.LogErr.Error(),
		}))
	}
	h.resolveDraft(ctx, chatID, msgID, models.DraftStatusPublished, res.MessageID)
	h.RecordUserActivity(ctx, &user, ActionPublishDraft, true, map[string]interface{}{
		"draft_message_id":   msgID,
		"channel_message_id": res.MessageID,
		"with_image":         res.WithImage,
	})

	h.editText(ctx, bot, chatID, msgID, h.publishedStatus(text, res.WithImage), telego.ModeMarkdownV2)
	return nil
}

// illustrate generates an image for the post when image generation is on.
// Any failure is reported to the admin and the post goes out as text.
func (h *MessageHandler) illustrate(ctx context.Context, bot telegoapi.BotAPI, chatID int64, msgID int, text string) []byte {
	if h.images == nil {
		return nil
	}
	h.editText(ctx, bot, chatID, msgID, h.msg("MsgImageGenerating", nil), "")

	image, err := h.images.Generate(ctx, text)
	switch {
	case errors.Is(err, llm.ErrImageDownload):
		log.Warnf("[Publish Draft:%d] %v", msgID, err)
		h.editText(ctx, bot, chatID, msgID, h.msg("MsgImageDownloadFailed", nil), "")
		return nil
	case err != nil:
		log.Errorf("[Publish Draft:%d] Image generation failed: %v", msgID, err)
		h.editText(ctx, bot, chatID, msgID, h.msg("MsgImageFailed", errData(err)), "")
		return nil
	}
	return image
}

func (h *MessageHandler) publishedStatus(text string, withImage bool) string {
	status := utils.EscapeMarkdownV2(h.msg("MsgPublishedText", nil))
	marker := ""
	if withImage {
		status = utils.EscapeMarkdownV2(h.msg("MsgPublishedPhoto", nil))
		marker = utils.EscapeMarkdownV2("🖼️ + ")
	}
	preview := utils.Italic(utils.EscapeMarkdownV2(utils.Preview(text, publishPreviewLength) + "..."))
	return status + "\n\n" + marker + preview
}

func (h *MessageHandler) answerCallback(ctx context.Context, bot telegoapi.BotAPI, params *telego.AnswerCallbackQueryParams) {
	if err := bot.AnswerCallbackQuery(ctx, params); err != nil {
		log.Warnf("Error answering callback query %s: %v", params.CallbackQueryID, err)
	}
}
