package handlers

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"aichannel-bot/internal/database/models"
	"aichannel-bot/internal/llm"
	"aichannel-bot/internal/news"
	"aichannel-bot/internal/postlog"
	"aichannel-bot/internal/prompts"
	"aichannel-bot/internal/publisher"
	"aichannel-bot/internal/scheduler"
	"aichannel-bot/pkg/utils"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewMessageHandler_RequiresDependencies(t *testing.T) {
	_, err := NewMessageHandler(Deps{})
	assert.Error(t, err)

	s := setupTestHandlerSuite(t)
	_, err = NewMessageHandler(Deps{
		Config:       s.cfg,
		AdminChecker: s.admin,
		Posts:        s.posts,
		Drafter:      s.drafter,
		News:         s.news,
		Publisher:    s.publisher,
		Scheduler:    s.scheduler,
		Drafts:       s.drafts,
		UserRepo:     s.userRepo,
		ActionLogger: s.actionLogger,
	})
	assert.NoError(t, err, "image generator is optional")
}

func TestGetCommandHandler(t *testing.T) {
	s := setupTestHandlerSuite(t)

	for _, command := range []string{"start", "help", "idea", "news", "stats", "auto_best", "weekly", "research", "schedule", "stop_auto", "idea@channel_ai_bot"} {
		assert.NotNil(t, s.handler.GetCommandHandler(command), command)
	}
	assert.Nil(t, s.handler.GetCommandHandler("suggest"))
	assert.Nil(t, s.handler.GetCommandHandler(""))
	assert.Equal(t, testChannelID, s.handler.GetChannelID())
}

func TestCommand_NonAdminDenied(t *testing.T) {
	s := setupTestHandlerSuite(t)

	handler := s.handler.GetCommandHandler("idea")
	require.NotNil(t, handler)

	err := handler(context.Background(), s.bot, messageFrom(testOutsiderID, "/idea"))
	require.NoError(t, err)

	require.Len(t, s.sent, 1)
	assert.Equal(t, telegoutil.ID(testOutsiderID), s.sent[0].ChatID)
	assert.Equal(t, "🚫 Доступ запрещен.", s.sent[0].Text)
	s.drafter.AssertNotCalled(t, "Idea", mock.Anything, mock.Anything)
}

func TestCommand_AdminCheckError(t *testing.T) {
	s := setupTestHandlerSuite(t)
	s.admin.ExpectedCalls = nil
	s.admin.On("IsAdmin", mock.Anything, testAdminID).Return(false, errors.New("db down"))

	err := s.handler.GetCommandHandler("stats")(context.Background(), s.bot, adminMessage("/stats"))
	assert.Error(t, err)
	assert.Empty(t, s.sent)
}

func TestHandleStart(t *testing.T) {
	s := setupTestHandlerSuite(t)

	var registered *telego.SetMyCommandsParams
	s.bot.ExpectedCalls = filterCalls(s.bot.ExpectedCalls, "SetMyCommands")
	s.bot.On("SetMyCommands", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		registered = args.Get(1).(*telego.SetMyCommandsParams)
	}).Return(nil).Once()

	err := s.handler.HandleStart(context.Background(), s.bot, adminMessage("/start"))
	require.NoError(t, err)

	require.NotNil(t, registered)
	require.Len(t, registered.Commands, 10)
	assert.Equal(t, "start", registered.Commands[0].Command)
	assert.Equal(t, ru("CmdIdeaDesc", nil), registered.Commands[2].Description)

	require.Len(t, s.sent, 1)
	assert.Equal(t, ru("MsgStart", nil), s.sent[0].Text)
	keyboard, ok := s.sent[0].ReplyMarkup.(*telego.ReplyKeyboardMarkup)
	require.True(t, ok, "start must attach the reply keyboard")
	assert.Len(t, keyboard.Keyboard, 4)
	assert.True(t, keyboard.ResizeKeyboard)
	assert.True(t, keyboard.IsPersistent)
	assert.Equal(t, MenuIdea, keyboard.Keyboard[0][0].Text)
	assert.Equal(t, MenuStopAuto, keyboard.Keyboard[3][1].Text)

	s.userRepo.AssertCalled(t, "UpdateUser", mock.Anything, testAdminID, "tester", "Test", "", true, ActionCommandStart)
}

func TestHandleHelp(t *testing.T) {
	s := setupTestHandlerSuite(t)

	err := s.handler.HandleHelp(context.Background(), s.bot, adminMessage("/help"))
	require.NoError(t, err)

	require.Len(t, s.sent, 1)
	text := s.sent[0].Text
	assert.True(t, strings.HasPrefix(text, ru("MsgHelpHeader", nil)))
	assert.Contains(t, text, "/idea - "+ru("CmdIdeaDesc", nil))
	assert.Contains(t, text, "/stop_auto - "+ru("CmdStopAutoDesc", nil))
	assert.True(t, strings.HasSuffix(text, ru("MsgHelpFooter", nil)))
}

func TestHandleIdea(t *testing.T) {
	top := []postlog.Record{{MessageID: 1, Text: "Лучший пост", Reactions: 40}}

	t.Run("Success", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.posts.On("Top", topPostsLimit).Return(top, nil).Once()
		s.drafter.On("Idea", mock.Anything, top).Return(llm.Draft{Text: "Новый пост", Model: "gpt-4o"}, nil).Once()
		s.drafts.On("SaveDraft", mock.Anything, mock.MatchedBy(func(d *models.Draft) bool {
			return d.Kind == models.DraftKindIdea && d.Text == "Новый пост" &&
				d.ChatID == testAdminID && d.MessageID == draftMessageID && !d.UsedFallback
		})).Return(nil).Once()

		err := s.handler.HandleIdea(context.Background(), s.bot, adminMessage("/idea"))
		require.NoError(t, err)

		require.Len(t, s.sent, 1)
		assert.Equal(t, publisher.PrefixIdea+"\nНовый пост", s.sent[0].Text)
		keyboard, ok := s.sent[0].ReplyMarkup.(*telego.InlineKeyboardMarkup)
		require.True(t, ok)
		require.Len(t, keyboard.InlineKeyboard, 1)
		require.Len(t, keyboard.InlineKeyboard[0], 2)
		assert.Equal(t, CallbackPublish, keyboard.InlineKeyboard[0][0].CallbackData)
		assert.Equal(t, CallbackDelete, keyboard.InlineKeyboard[0][1].CallbackData)
		s.drafts.AssertExpectations(t)
	})

	t.Run("FallbackModelNotice", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.posts.On("Top", topPostsLimit).Return(top, nil).Once()
		s.drafter.On("Idea", mock.Anything, top).
			Return(llm.Draft{Text: "Пост", Model: "gpt-3.5-turbo", UsedFallback: true}, nil).Once()
		s.drafts.On("SaveDraft", mock.Anything, mock.Anything).Return(nil).Once()

		require.NoError(t, s.handler.HandleIdea(context.Background(), s.bot, adminMessage("/idea")))

		require.Len(t, s.sent, 1)
		assert.True(t, strings.HasPrefix(s.sent[0].Text, publisher.FallbackNotice+" gpt-3.5-turbo."))
		assert.Contains(t, s.sent[0].Text, publisher.PrefixIdea+"\nПост")
	})

	t.Run("BrokenLogStillDrafts", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.posts.On("Top", topPostsLimit).Return(nil, errors.New("csv broken")).Once()
		s.drafter.On("Idea", mock.Anything, []postlog.Record(nil)).Return(llm.Draft{Text: "Пост", Model: "gpt-4o"}, nil).Once()
		s.drafts.On("SaveDraft", mock.Anything, mock.Anything).Return(errors.New("mongo down")).Once()

		require.NoError(t, s.handler.HandleIdea(context.Background(), s.bot, adminMessage("/idea")))
		assert.Len(t, s.sent, 1)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.posts.On("Top", topPostsLimit).Return(top, nil).Once()
		s.drafter.On("Idea", mock.Anything, top).Return(llm.Draft{}, llm.ErrUnauthorized).Once()

		err := s.handler.HandleIdea(context.Background(), s.bot, adminMessage("/idea"))
		assert.ErrorIs(t, err, llm.ErrUnauthorized)
		assert.Equal(t, []string{ru("MsgLLMUnauthorized", nil)}, s.sentTexts())
		s.drafts.AssertNotCalled(t, "SaveDraft", mock.Anything, mock.Anything)
	})

	t.Run("EmptyResponse", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.posts.On("Top", topPostsLimit).Return(top, nil).Once()
		s.drafter.On("Idea", mock.Anything, top).Return(llm.Draft{}, llm.ErrEmptyResponse).Once()

		err := s.handler.HandleIdea(context.Background(), s.bot, adminMessage("/idea"))
		assert.ErrorIs(t, err, llm.ErrEmptyResponse)
		assert.Equal(t, []string{ru("MsgIdeaEmpty", nil)}, s.sentTexts())
	})
}

func TestHandleNews(t *testing.T) {
	items := []news.Item{{Title: "Заголовок", Link: "https://example.com/1", Summary: "Кратко"}}

	t.Run("NoFeedConfigured", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.cfg.NewsRSSURL = ""

		require.NoError(t, s.handler.HandleNews(context.Background(), s.bot, adminMessage("/news")))
		assert.Equal(t, []string{ru("MsgNewsNoURL", nil)}, s.sentTexts())
		s.news.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NoEntries", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.news.On("Fetch", mock.Anything, "https://example.com/rss", 7).Return(nil, news.ErrNoEntries).Once()

		require.NoError(t, s.handler.HandleNews(context.Background(), s.bot, adminMessage("/news")))
		assert.Equal(t, []string{ru("MsgNewsNoEntries", nil)}, s.sentTexts())
		s.drafter.AssertNotCalled(t, "News", mock.Anything, mock.Anything)
	})

	t.Run("FetchError", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		fetchErr := errors.New("connection refused")
		s.news.On("Fetch", mock.Anything, "https://example.com/rss", 7).Return(nil, fetchErr).Once()

		err := s.handler.HandleNews(context.Background(), s.bot, adminMessage("/news"))
		assert.ErrorIs(t, err, fetchErr)
		assert.Equal(t, []string{ru("MsgNewsFetchError", errData(fetchErr))}, s.sentTexts())
	})

	t.Run("Success", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.news.On("Fetch", mock.Anything, "https://example.com/rss", 7).Return(items, nil).Once()
		s.drafter.On("News", mock.Anything, items).Return(llm.Draft{Text: "Новостной пост", Model: "gpt-4o"}, nil).Once()
		s.drafts.On("SaveDraft", mock.Anything, mock.MatchedBy(func(d *models.Draft) bool {
			return d.Kind == models.DraftKindNews
		})).Return(nil).Once()

		require.NoError(t, s.handler.HandleNews(context.Background(), s.bot, adminMessage("/news")))
		require.Len(t, s.sent, 1)
		assert.Equal(t, publisher.PrefixNews+"\nНовостной пост", s.sent[0].Text)
		s.drafts.AssertExpectations(t)
	})
}

func statsRecords() []postlog.Record {
	return []postlog.Record{
		{MessageID: 1, Text: "a", Timestamp: at(14, 1), Reactions: 10},
		{MessageID: 2, Text: "b", Timestamp: at(14, 2), Reactions: 12},
		{MessageID: 3, Text: "c", Timestamp: at(9, 3), Reactions: 2},
		{MessageID: 4, Text: "no timestamp", Reactions: 500},
	}
}

func TestHandleStats(t *testing.T) {
	t.Run("WithData", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.posts.On("ReadAll").Return(statsRecords(), nil).Once()
		s.bot.On("SendPhoto", mock.Anything, mock.Anything).Return(&telego.Message{MessageID: 2}, nil).Once()

		require.NoError(t, s.handler.HandleStats(context.Background(), s.bot, adminMessage("/stats")))

		require.Len(t, s.sent, 1)
		assert.Equal(t, telego.ModeMarkdownV2, s.sent[0].ParseMode)
		assert.Contains(t, s.sent[0].Text, "*14:00*")
		assert.Contains(t, s.sent[0].Text, utils.EscapeMarkdownV2(ru("MsgStatsChartCaption", nil)))
		assert.NotContains(t, s.sent[0].Text, utils.EscapeMarkdownV2(ru("MsgStatsFallback", nil)))

		s.bot.AssertNumberOfCalls(t, "SendPhoto", 1)
		info, err := os.Stat(s.cfg.PlotFile)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	})

	t.Run("NoData", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.posts.On("ReadAll").Return(nil, nil).Once()

		require.NoError(t, s.handler.HandleStats(context.Background(), s.bot, adminMessage("/stats")))

		require.Len(t, s.sent, 2)
		assert.Contains(t, s.sent[0].Text, "*10:00*")
		assert.Contains(t, s.sent[0].Text, utils.EscapeMarkdownV2(ru("MsgStatsFallback", nil)))
		assert.Equal(t, ru("MsgStatsNoChart", nil), s.sent[1].Text)
		s.bot.AssertNotCalled(t, "SendPhoto", mock.Anything, mock.Anything)
	})

	t.Run("ChartSendFails", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		sendErr := errors.New("photo too big")
		s.posts.On("ReadAll").Return(statsRecords(), nil).Once()
		s.bot.On("SendPhoto", mock.Anything, mock.Anything).Return(nil, sendErr).Once()

		require.NoError(t, s.handler.HandleStats(context.Background(), s.bot, adminMessage("/stats")))
		require.Len(t, s.sent, 2)
		assert.Equal(t, ru("MsgStatsChartSendError", errData(sendErr)), s.sent[1].Text)
	})

	t.Run("ReadError", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		readErr := errors.New("permission denied")
		s.posts.On("ReadAll").Return(nil, readErr).Once()

		err := s.handler.HandleStats(context.Background(), s.bot, adminMessage("/stats"))
		assert.ErrorIs(t, err, readErr)
		assert.Equal(t, []string{ru("MsgStatsError", errData(readErr))}, s.sentTexts())
	})
}

func TestHandleAutoBest(t *testing.T) {
	t.Run("SchedulesAtBestHour", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.posts.On("ReadAll").Return(statsRecords(), nil).Once()
		s.scheduler.On("ScheduleDaily", mock.Anything, "14:00").Return(at(14, 11), nil).Once()

		require.NoError(t, s.handler.HandleAutoBest(context.Background(), s.bot, adminMessage("/auto_best")))
		assert.Equal(t, []string{ru("MsgAutoBestScheduled", map[string]interface{}{"Time": "14:00"})}, s.sentTexts())
		s.scheduler.AssertExpectations(t)
	})

	t.Run("FallbackTimeWithoutData", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.cfg.DefaultPostTime = "08:30"
		s.posts.On("ReadAll").Return(nil, nil).Once()
		s.scheduler.On("ScheduleDaily", mock.Anything, "08:00").Return(at(8, 11), nil).Once()

		require.NoError(t, s.handler.HandleAutoBest(context.Background(), s.bot, adminMessage("/auto_best")))
		s.scheduler.AssertExpectations(t)
	})

	t.Run("ScheduleError", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		schedErr := errors.New("settings unavailable")
		s.posts.On("ReadAll").Return(statsRecords(), nil).Once()
		s.scheduler.On("ScheduleDaily", mock.Anything, "14:00").Return(time.Time{}, schedErr).Once()

		err := s.handler.HandleAutoBest(context.Background(), s.bot, adminMessage("/auto_best"))
		assert.ErrorIs(t, err, schedErr)
		assert.Equal(t, []string{ru("MsgAutoBestError", errData(schedErr))}, s.sentTexts())
	})
}

func TestHandleWeekly(t *testing.T) {
	esc := utils.EscapeMarkdownV2
	now := time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)

	t.Run("Report", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.handler.now = func() time.Time { return now }
		s.posts.On("ReadAll").Return([]postlog.Record{
			{MessageID: 1, Text: "Первый пост", Timestamp: at(10, 9), Reactions: 5},
			{MessageID: 2, Text: "Второй пост", Timestamp: at(10, 8), Reactions: 9},
			{MessageID: 3, Text: "Старый", Timestamp: time.Date(2024, time.April, 1, 10, 0, 0, 0, time.UTC), Reactions: 100},
		}, nil).Once()

		require.NoError(t, s.handler.HandleWeekly(context.Background(), s.bot, adminMessage("/weekly")))

		require.Len(t, s.sent, 1)
		text := s.sent[0].Text
		assert.Equal(t, telego.ModeMarkdownV2, s.sent[0].ParseMode)
		assert.Contains(t, text, esc(ru("MsgWeeklyPeriod", map[string]interface{}{"From": "03.05.2024", "To": "10.05.2024"})))
		assert.Contains(t, text, esc(ru("MsgWeeklyTotalPosts", map[string]interface{}{"Count": 2})))
		assert.Contains(t, text, esc(ru("MsgWeeklyTotalReactions", map[string]interface{}{"Count": 14})))
		assert.Contains(t, text, esc(ru("MsgWeeklyMeanReactions", map[string]interface{}{"Mean": "7.0"})))
		assert.Contains(t, text, "_Второй пост\\.\\.\\._")
		assert.Less(t, strings.Index(text, "Второй пост"), strings.Index(text, "Первый пост"))
		assert.NotContains(t, text, "Старый")
	})

	t.Run("NoTimestamps", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.posts.On("ReadAll").Return([]postlog.Record{{MessageID: 1, Text: "old format", Reactions: 3}}, nil).Once()

		require.NoError(t, s.handler.HandleWeekly(context.Background(), s.bot, adminMessage("/weekly")))
		assert.Equal(t, []string{ru("MsgWeeklyNoData", nil)}, s.sentTexts())
	})

	t.Run("NothingThisWeek", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.handler.now = func() time.Time { return now }
		s.posts.On("ReadAll").Return([]postlog.Record{
			{MessageID: 3, Text: "Старый", Timestamp: time.Date(2024, time.April, 1, 10, 0, 0, 0, time.UTC), Reactions: 100},
		}, nil).Once()

		require.NoError(t, s.handler.HandleWeekly(context.Background(), s.bot, adminMessage("/weekly")))
		assert.Equal(t, []string{ru("MsgWeeklyNoPosts", nil)}, s.sentTexts())
	})
}

func TestHandleResearch(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.drafter.On("ResearchEnabled").Return(false)

		require.NoError(t, s.handler.HandleResearch(context.Background(), s.bot, adminMessage("/research")))
		assert.Equal(t, []string{ru("MsgResearchDisabled", nil)}, s.sentTexts())
		s.drafter.AssertNotCalled(t, "Research", mock.Anything, mock.Anything)
	})

	t.Run("QueryFromCommand", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.drafter.On("ResearchEnabled").Return(true)
		s.drafter.On("Research", mock.Anything, "квантовые компьютеры").
			Return(llm.Draft{Text: "Обзор", Model: "sonar-pro"}, nil).Once()
		s.drafts.On("SaveDraft", mock.Anything, mock.MatchedBy(func(d *models.Draft) bool {
			return d.Kind == models.DraftKindResearch && d.Model == "sonar-pro"
		})).Return(nil).Once()

		require.NoError(t, s.handler.HandleResearch(context.Background(), s.bot, adminMessage("/research квантовые компьютеры")))

		require.Len(t, s.sent, 2)
		assert.Equal(t, ru("MsgResearchSearching", map[string]interface{}{"Query": "квантовые компьютеры"}), s.sent[0].Text)
		assert.Equal(t, publisher.PrefixResearch+"\nОбзор", s.sent[1].Text)
		s.drafts.AssertExpectations(t)
	})

	t.Run("DefaultQueryFromMenu", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.drafter.On("ResearchEnabled").Return(true)
		s.drafter.On("Research", mock.Anything, prompts.DefaultResearchQuery).
			Return(llm.Draft{Text: "Обзор", Model: "sonar-pro"}, nil).Once()
		s.drafts.On("SaveDraft", mock.Anything, mock.Anything).Return(nil).Once()

		require.NoError(t, s.handler.HandleResearch(context.Background(), s.bot, adminMessage(MenuResearch)))
		s.drafter.AssertExpectations(t)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.drafter.On("ResearchEnabled").Return(true)
		s.drafter.On("Research", mock.Anything, "тема").Return(llm.Draft{}, llm.ErrUnauthorized).Once()

		err := s.handler.HandleResearch(context.Background(), s.bot, adminMessage("/research тема"))
		assert.ErrorIs(t, err, llm.ErrUnauthorized)
		require.Len(t, s.sent, 2)
		assert.Equal(t, ru("MsgResearchUnauthorized", nil), s.sent[1].Text)
	})
}

func TestHandleSchedule(t *testing.T) {
	esc := utils.EscapeMarkdownV2

	t.Run("Enabled", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.scheduler.On("Status").Return(scheduler.Status{Enabled: true, Time: "14:00", NextRun: at(14, 11)})

		require.NoError(t, s.handler.HandleSchedule(context.Background(), s.bot, adminMessage("/schedule")))

		require.Len(t, s.sent, 1)
		assert.Equal(t, telego.ModeMarkdownV2, s.sent[0].ParseMode)
		assert.Contains(t, s.sent[0].Text, esc(ru("MsgScheduleTime", map[string]interface{}{"Time": "14:00"})))
		assert.Contains(t, s.sent[0].Text, esc(ru("MsgScheduleNextRun", map[string]interface{}{"NextRun": "2024-05-11 14:00:00 UTC"})))
		assert.Contains(t, s.sent[0].Text, esc(ru("MsgScheduleStopHint", nil)))
	})

	t.Run("Disabled", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.scheduler.On("Status").Return(scheduler.Status{})

		require.NoError(t, s.handler.HandleSchedule(context.Background(), s.bot, adminMessage("/schedule")))

		require.Len(t, s.sent, 1)
		assert.Contains(t, s.sent[0].Text, esc(ru("MsgScheduleDisabled", nil)))
		assert.Contains(t, s.sent[0].Text, esc(ru("MsgScheduleEnableHint", nil)))
	})
}

func TestHandleStopAuto(t *testing.T) {
	stopErr := errors.New("cron gone")
	tests := []struct {
		name    string
		existed bool
		err     error
		want    string
	}{
		{name: "Stopped", existed: true, want: ru("MsgStopAutoDone", nil)},
		{name: "NothingScheduled", existed: false, want: ru("MsgStopAutoNone", nil)},
		{name: "Error", err: stopErr, want: ru("MsgStopAutoError", errData(stopErr))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestHandlerSuite(t)
			s.scheduler.On("Stop", mock.Anything).Return(tt.existed, tt.err).Once()

			err := s.handler.HandleStopAuto(context.Background(), s.bot, adminMessage("/stop_auto"))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, []string{tt.want}, s.sentTexts())
		})
	}
}

func TestCommandArgs(t *testing.T) {
	assert.Equal(t, "тема поста", commandArgs("/research   тема поста "))
	assert.Equal(t, "", commandArgs("/research"))
	assert.Equal(t, "", commandArgs(MenuResearch))
}

// filterCalls drops the default expectation for method so a test can install its own.
func filterCalls(calls []*mock.Call, method string) []*mock.Call {
	kept := calls[:0]
	for _, c := range calls {
		if c.Method != method {
			kept = append(kept, c)
		}
	}
	return kept
}
