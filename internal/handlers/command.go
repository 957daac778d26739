package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"aichannel-bot/internal/analytics"
	"aichannel-bot/internal/database/models"
	"aichannel-bot/internal/llm"
	"aichannel-bot/internal/news"
	"aichannel-bot/internal/postlog"
	"aichannel-bot/internal/prompts"
	"aichannel-bot/internal/publisher"
	telegoapi "aichannel-bot/pkg/telegoapi"
	"aichannel-bot/pkg/utils"

	"github.com/charmbracelet/log"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const (
	reportDateLayout = "02.01.2006"
	nextRunLayout    = "2006-01-02 15:04:05 MST"
)

// HandleStart registers the commands and shows the menu keyboard.
func (h *MessageHandler) HandleStart(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	if err := h.SetupCommands(ctx, bot); err != nil {
		log.Warnf("[Cmd:start User:%d] %v", message.From.ID, err)
	}
	h.RecordUserActivity(ctx, message.From, ActionCommandStart, true, map[string]interface{}{
		"chat_id": message.Chat.ID,
	})

	params := tu.Message(tu.ID(message.Chat.ID), h.msg("MsgStart", nil)).WithReplyMarkup(mainMenu())
	_, err := bot.SendMessage(ctx, params)
	return err
}

// HandleHelp lists the commands with their descriptions.
func (h *MessageHandler) HandleHelp(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	var helpText strings.Builder
	helpText.WriteString(h.msg("MsgHelpHeader", nil) + "\n")
	for _, cmd := range h.commands {
		helpText.WriteString(fmt.Sprintf("/%s - %s\n", cmd.Command, h.msg(cmd.Description, nil)))
	}
	helpText.WriteString("\n" + h.msg("MsgHelpFooter", nil))

	h.RecordUserActivity(ctx, message.From, ActionCommandHelp, true, map[string]interface{}{
		"chat_id": message.Chat.ID,
	})
	h.sendText(ctx, bot, message.Chat.ID, helpText.String())
	return nil
}

// HandleIdea drafts a post inspired by the best posts so far.
func (h *MessageHandler) HandleIdea(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	chatID := message.Chat.ID
	h.RecordUserActivity(ctx, message.From, ActionCommandIdea, true, map[string]interface{}{"chat_id": chatID})
	h.chatAction(ctx, bot, chatID, telego.ChatActionTyping)

	draft, err := h.drafter.Idea(ctx, h.topPosts("idea"))
	if err != nil {
		return h.reportLLMError(ctx, bot, chatID, err, "MsgIdeaEmpty", "MsgIdeaError")
	}
	return h.sendDraft(ctx, bot, chatID, models.DraftKindIdea, publisher.PrefixIdea, draft)
}

// HandleNews drafts a post from the configured RSS feed.
func (h *MessageHandler) HandleNews(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	chatID := message.Chat.ID
	h.RecordUserActivity(ctx, message.From, ActionCommandNews, true, map[string]interface{}{"chat_id": chatID})
	h.chatAction(ctx, bot, chatID, telego.ChatActionTyping)

	if h.cfg.NewsRSSURL == "" {
		log.Error("[Cmd:news] NEWS_RSS_URL is not configured")
		h.sendText(ctx, bot, chatID, h.msg("MsgNewsNoURL", nil))
		return nil
	}

	items, err := h.news.Fetch(ctx, h.cfg.NewsRSSURL, h.cfg.NewsLimit)
	if errors.Is(err, news.ErrNoEntries) {
		log.Warnf("[Cmd:news] Feed %s has no usable entries", h.cfg.NewsRSSURL)
		h.sendText(ctx, bot, chatID, h.msg("MsgNewsNoEntries", nil))
		return nil
	}
	if err != nil {
		return h.sendError(ctx, bot, chatID, "MsgNewsFetchError", err)
	}

	draft, err := h.drafter.News(ctx, items)
	if errors.Is(err, news.ErrNoEntries) {
		h.sendText(ctx, bot, chatID, h.msg("MsgNewsNoEntries", nil))
		return nil
	}
	if err != nil {
		return h.reportLLMError(ctx, bot, chatID, err, "MsgNewsEmpty", "MsgNewsError")
	}
	return h.sendDraft(ctx, bot, chatID, models.DraftKindNews, publisher.PrefixNews, draft)
}

// HandleStats shows the best posting hour and the hourly reactions chart.
func (h *MessageHandler) HandleStats(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	chatID := message.Chat.ID
	h.RecordUserActivity(ctx, message.From, ActionCommandStats, true, map[string]interface{}{"chat_id": chatID})
	h.chatAction(ctx, bot, chatID, telego.ChatActionUploadPhoto)

	records, err := h.posts.ReadAll()
	if err != nil {
		return h.sendError(ctx, bot, chatID, "MsgStatsError", err)
	}
	best := analytics.BestPostingTime(records, h.cfg.DefaultPostTime)
	log.Infof("[Cmd:stats] Best posting time %s (fallback: %t, hours with data: %d)", best.Time, best.Fallback, len(best.Stats))

	var text strings.Builder
	text.WriteString(utils.Bold(utils.EscapeMarkdownV2(h.msg("MsgStatsHeader", nil))) + "\n\n")
	text.WriteString(utils.EscapeMarkdownV2(h.msg("MsgStatsBestTime", nil)) + " " + utils.Bold(utils.EscapeMarkdownV2(best.Time)))
	if best.Fallback {
		text.WriteString("\n" + utils.EscapeMarkdownV2(h.msg("MsgStatsFallback", nil)))
	}
	if len(best.Stats) > 0 {
		text.WriteString("\n\n" + utils.EscapeMarkdownV2(h.msg("MsgStatsChartCaption", nil)))
	}
	h.sendMarkdown(ctx, bot, chatID, text.String())

	if err := analytics.RenderHourlyChart(best.Stats, h.cfg.PlotFile); err != nil {
		if errors.Is(err, analytics.ErrNoChartData) {
			h.sendText(ctx, bot, chatID, h.msg("MsgStatsNoChart", nil))
			return nil
		}
		return h.sendError(ctx, bot, chatID, "MsgStatsError", err)
	}

	chart, err := os.Open(h.cfg.PlotFile)
	if err != nil {
		return h.sendError(ctx, bot, chatID, "MsgStatsError", err)
	}
	defer chart.Close()

	if _, err := bot.SendPhoto(ctx, tu.Photo(tu.ID(chatID), tu.File(chart))); err != nil {
		log.Errorf("[Cmd:stats] Failed to send chart %s: %v", h.cfg.PlotFile, err)
		h.sendText(ctx, bot, chatID, h.msg("MsgStatsChartSendError", errData(err)))
	}
	return nil
}

// HandleAutoBest schedules the daily auto-post at the best hour.
func (h *MessageHandler) HandleAutoBest(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	chatID := message.Chat.ID
	h.RecordUserActivity(ctx, message.From, ActionCommandAutoBest, true, map[string]interface{}{"chat_id": chatID})

	records, err := h.posts.ReadAll()
	if err != nil {
		return h.sendError(ctx, bot, chatID, "MsgAutoBestError", err)
	}
	best := analytics.BestPostingTime(records, h.cfg.DefaultPostTime)
	postTime := utils.FormatClock(best.Hour, 0)

	next, err := h.scheduler.ScheduleDaily(ctx, postTime)
	if err != nil {
		return h.sendError(ctx, bot, chatID, "MsgAutoBestError", err)
	}
	log.Infof("[Cmd:auto_best] Auto-post scheduled at %s UTC, next run %s", postTime, next.Format(time.RFC3339))
	h.sendText(ctx, bot, chatID, h.msg("MsgAutoBestScheduled", map[string]interface{}{"Time": postTime}))
	return nil
}

// HandleWeekly reports the posts of the last seven days.
func (h *MessageHandler) HandleWeekly(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	chatID := message.Chat.ID
	h.RecordUserActivity(ctx, message.From, ActionCommandWeekly, true, map[string]interface{}{"chat_id": chatID})
	h.chatAction(ctx, bot, chatID, telego.ChatActionTyping)

	records, err := h.posts.ReadAll()
	if err != nil {
		return h.sendError(ctx, bot, chatID, "MsgWeeklyError", err)
	}
	if !anyTimestamp(records) {
		h.sendText(ctx, bot, chatID, h.msg("MsgWeeklyNoData", nil))
		return nil
	}

	summary := analytics.WeeklyReport(records, h.now().UTC())
	if summary.Empty() {
		h.sendText(ctx, bot, chatID, h.msg("MsgWeeklyNoPosts", nil))
		return nil
	}
	h.sendMarkdown(ctx, bot, chatID, h.formatWeekly(summary))
	log.Infof("[Cmd:weekly] Report sent: %d posts, %d reactions", summary.TotalPosts, summary.TotalReactions)
	return nil
}

func (h *MessageHandler) formatWeekly(summary analytics.WeeklySummary) string {
	esc := utils.EscapeMarkdownV2
	var b strings.Builder
	b.WriteString(utils.Bold(esc(h.msg("MsgWeeklyHeader", nil))))
	b.WriteString(" " + esc(h.msg("MsgWeeklyPeriod", map[string]interface{}{
		"From": summary.From.Format(reportDateLayout),
		"To":   summary.To.Format(reportDateLayout),
	})) + "\n\n")
	b.WriteString(esc(h.msg("MsgWeeklyTotalPosts", map[string]interface{}{"Count": summary.TotalPosts})) + "\n")
	b.WriteString(esc(h.msg("MsgWeeklyTotalReactions", map[string]interface{}{"Count": summary.TotalReactions})) + "\n")
	b.WriteString(esc(h.msg("MsgWeeklyMeanReactions", map[string]interface{}{
		"Mean": fmt.Sprintf("%.1f", summary.MeanReactions),
	})) + "\n")

	if len(summary.Top) > 0 {
		b.WriteString("\n" + utils.Bold(esc(h.msg("MsgWeeklyTopHeader", nil))) + "\n")
		for _, post := range summary.Top {
			line := esc(h.msg("MsgWeeklyTopLine", map[string]interface{}{"Reactions": post.Reactions}))
			b.WriteString("  " + line + " " + utils.Italic(esc(post.Preview+"...")) + "\n")
		}
	}
	return b.String()
}

// HandleResearch drafts a post from a Perplexity answer. The topic follows the command.
func (h *MessageHandler) HandleResearch(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	chatID := message.Chat.ID
	h.RecordUserActivity(ctx, message.From, ActionCommandResearch, true, map[string]interface{}{"chat_id": chatID})

	if !h.drafter.ResearchEnabled() {
		log.Warn("[Cmd:research] Research requested without PPLX_API_KEY")
		h.sendText(ctx, bot, chatID, h.msg("MsgResearchDisabled", nil))
		return nil
	}

	query := commandArgs(message.Text)
	if query == "" {
		query = prompts.DefaultResearchQuery
	}
	h.sendText(ctx, bot, chatID, h.msg("MsgResearchSearching", map[string]interface{}{"Query": query}))
	h.chatAction(ctx, bot, chatID, telego.ChatActionTyping)

	draft, err := h.drafter.Research(ctx, query)
	switch {
	case errors.Is(err, llm.ErrUnauthorized):
		h.sendText(ctx, bot, chatID, h.msg("MsgResearchUnauthorized", nil))
		return err
	case errors.Is(err, llm.ErrEmptyResponse):
		h.sendText(ctx, bot, chatID, h.msg("MsgResearchEmpty", nil))
		return nil
	case err != nil:
		return h.sendError(ctx, bot, chatID, "MsgResearchError", err)
	}
	return h.sendDraft(ctx, bot, chatID, models.DraftKindResearch, publisher.PrefixResearch, draft)
}

// HandleSchedule shows whether the daily auto-post is on and when it runs next.
func (h *MessageHandler) HandleSchedule(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	chatID := message.Chat.ID
	h.RecordUserActivity(ctx, message.From, ActionCommandSchedule, true, map[string]interface{}{"chat_id": chatID})

	esc := utils.EscapeMarkdownV2
	status := h.scheduler.Status()

	var b strings.Builder
	b.WriteString(utils.Bold(esc(h.msg("MsgScheduleHeader", nil))) + "\n\n")
	if status.Enabled {
		b.WriteString(esc(h.msg("MsgScheduleEnabled", nil)) + "\n")
		b.WriteString(esc(h.msg("MsgScheduleTime", map[string]interface{}{"Time": status.Time})) + "\n")
		if !status.NextRun.IsZero() {
			b.WriteString(esc(h.msg("MsgScheduleNextRun", map[string]interface{}{
				"NextRun": status.NextRun.UTC().Format(nextRunLayout),
			})) + "\n")
		}
		b.WriteString("\n" + esc(h.msg("MsgScheduleStopHint", nil)))
	} else {
		b.WriteString(esc(h.msg("MsgScheduleDisabled", nil)) + "\n\n")
		b.WriteString(esc(h.msg("MsgScheduleEnableHint", nil)))
	}
	h.sendMarkdown(ctx, bot, chatID, b.String())
	return nil
}

// HandleStopAuto removes the daily auto-post job.
func (h *MessageHandler) HandleStopAuto(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	chatID := message.Chat.ID
	h.RecordUserActivity(ctx, message.From, ActionCommandStopAuto, true, map[string]interface{}{"chat_id": chatID})

	existed, err := h.scheduler.Stop(ctx)
	switch {
	case err != nil:
		return h.sendError(ctx, bot, chatID, "MsgStopAutoError", err)
	case !existed:
		h.sendText(ctx, bot, chatID, h.msg("MsgStopAutoNone", nil))
	default:
		h.sendText(ctx, bot, chatID, h.msg("MsgStopAutoDone", nil))
	}
	return nil
}

// topPosts reads the best posts for a prompt. A broken log only costs the examples.
func (h *MessageHandler) topPosts(command string) []postlog.Record {
	top, err := h.posts.Top(topPostsLimit)
	if err != nil {
		log.Warnf("[Cmd:%s] Failed to read top posts: %v", command, err)
		return nil
	}
	return top
}

// reportLLMError tells the admin why a draft could not be generated.
func (h *MessageHandler) reportLLMError(ctx context.Context, bot telegoapi.BotAPI, chatID int64, err error, emptyID, errorID string) error {
	switch {
	case errors.Is(err, llm.ErrUnauthorized):
		h.sendText(ctx, bot, chatID, h.msg("MsgLLMUnauthorized", nil))
	case errors.Is(err, llm.ErrEmptyResponse):
		h.sendText(ctx, bot, chatID, h.msg(emptyID, nil))
	default:
		h.sendText(ctx, bot, chatID, h.msg(errorID, errData(err)))
	}
	return err
}

func anyTimestamp(records []postlog.Record) bool {
	for _, rec := range records {
		if rec.HasTimestamp() {
			return true
		}
	}
	return false
}
