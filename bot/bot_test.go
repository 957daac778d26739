package bot

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"aichannel-bot/internal/handlers"
	"aichannel-bot/internal/locales"
	telegoapi "aichannel-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := locales.Init("ru"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type MockBot struct {
	mock.Mock
}

func (m *MockBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	msg, _ := args.Get(0).(*telego.Message)
	return msg, args.Error(1)
}

func (m *MockBot) SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	msg, _ := args.Get(0).(*telego.Message)
	return msg, args.Error(1)
}

func (m *MockBot) EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	msg, _ := args.Get(0).(*telego.Message)
	return msg, args.Error(1)
}

func (m *MockBot) AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *MockBot) SendChatAction(ctx context.Context, params *telego.SendChatActionParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *MockBot) SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *MockBot) GetMe(ctx context.Context) (*telego.User, error) {
	args := m.Called(ctx)
	user, _ := args.Get(0).(*telego.User)
	return user, args.Error(1)
}

// recordingHandler records which entry point each update reached.
type recordingHandler struct {
	mu       sync.Mutex
	commands []string
	texts    []string
	queries  []string
	posts    []int
	err      error
	panicky  bool
}

func (h *recordingHandler) GetCommandHandler(command string) handlers.CommandFunc {
	if command == "missing" {
		return nil
	}
	return func(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
		if h.panicky {
			panic("handler exploded")
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		h.commands = append(h.commands, command)
		return h.err
	}
}

func (h *recordingHandler) HandleText(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.texts = append(h.texts, message.Text)
	return h.err
}

func (h *recordingHandler) HandleCallbackQuery(ctx context.Context, bot telegoapi.BotAPI, query telego.CallbackQuery) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queries = append(h.queries, query.Data)
	return h.err
}

func (h *recordingHandler) HandleChannelPost(ctx context.Context, message telego.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.posts = append(h.posts, message.MessageID)
	return h.err
}

func newTestBot(t *testing.T, api telegoapi.BotAPI, handler UpdateHandler, updates <-chan telego.Update) *Bot {
	t.Helper()
	b, err := New(BotDeps{Bot: api, UpdatesChan: updates, Handler: handler, Language: "ru"})
	require.NoError(t, err)
	return b
}

func userMessage(text string) *telego.Message {
	return &telego.Message{
		MessageID: 1,
		From:      &telego.User{ID: 1001},
		Chat:      telego.Chat{ID: 1001},
		Text:      text,
	}
}

func TestNew_ValidatesDependencies(t *testing.T) {
	updates := make(chan telego.Update)
	_, err := New(BotDeps{UpdatesChan: updates, Handler: &recordingHandler{}})
	assert.Error(t, err)
	_, err = New(BotDeps{Bot: new(MockBot), UpdatesChan: updates})
	assert.Error(t, err)
	_, err = New(BotDeps{Bot: new(MockBot), Handler: &recordingHandler{}})
	assert.Error(t, err)

	b, err := New(BotDeps{Bot: new(MockBot), UpdatesChan: updates, Handler: &recordingHandler{}})
	require.NoError(t, err)
	assert.Equal(t, locales.DefaultLanguage, b.language)
}

func TestProcessUpdate_Routing(t *testing.T) {
	handler := &recordingHandler{}
	b := newTestBot(t, new(MockBot), handler, make(chan telego.Update))
	ctx := context.Background()

	b.processUpdate(ctx, telego.Update{Message: userMessage("/idea@channel_ai_bot")})
	b.processUpdate(ctx, telego.Update{Message: userMessage("/research космос")})
	b.processUpdate(ctx, telego.Update{Message: userMessage("💡 Идея")})
	b.processUpdate(ctx, telego.Update{Message: &telego.Message{MessageID: 2, Chat: telego.Chat{ID: 5}, Text: "no sender"}})
	b.processUpdate(ctx, telego.Update{Message: &telego.Message{MessageID: 3, From: &telego.User{ID: 1}, Chat: telego.Chat{ID: 1}}})
	b.processUpdate(ctx, telego.Update{CallbackQuery: &telego.CallbackQuery{ID: "q", Data: "publish"}})
	b.processUpdate(ctx, telego.Update{ChannelPost: &telego.Message{MessageID: 77, Chat: telego.Chat{ID: -100}, Text: "post"}})
	b.processUpdate(ctx, telego.Update{EditedChannelPost: &telego.Message{MessageID: 77, Chat: telego.Chat{ID: -100}, Text: "edited"}})

	assert.Equal(t, []string{"idea@channel_ai_bot", "research"}, handler.commands)
	assert.Equal(t, []string{"💡 Идея"}, handler.texts)
	assert.Equal(t, []string{"publish"}, handler.queries)
	assert.Equal(t, []int{77}, handler.posts)
}

func TestProcessUpdate_UnknownCommand(t *testing.T) {
	api := new(MockBot)
	var sent *telego.SendMessageParams
	api.On("SendMessage", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(*telego.SendMessageParams)
	}).Return(&telego.Message{}, nil).Once()

	b := newTestBot(t, api, &recordingHandler{}, make(chan telego.Update))
	b.processUpdate(context.Background(), telego.Update{Message: userMessage("/missing")})

	require.NotNil(t, sent)
	assert.Equal(t, locales.GetMessage(locales.NewLocalizer("ru"), "MsgErrorUnknownCommand", nil, nil), sent.Text)
	api.AssertExpectations(t)
}

func TestProcessUpdate_HandlerErrorsAndPanicsAreContained(t *testing.T) {
	b := newTestBot(t, new(MockBot), &recordingHandler{err: errors.New("boom")}, make(chan telego.Update))
	assert.NotPanics(t, func() {
		b.processUpdate(context.Background(), telego.Update{Message: userMessage("/idea")})
		b.processUpdate(context.Background(), telego.Update{CallbackQuery: &telego.CallbackQuery{ID: "q"}})
	})

	b = newTestBot(t, new(MockBot), &recordingHandler{panicky: true}, make(chan telego.Update))
	assert.NotPanics(t, func() {
		b.processUpdate(context.Background(), telego.Update{Message: userMessage("/idea")})
	})
}

func TestStart_DrainsUntilChannelCloses(t *testing.T) {
	handler := &recordingHandler{}
	updates := make(chan telego.Update, 3)
	b := newTestBot(t, new(MockBot), handler, updates)

	updates <- telego.Update{Message: userMessage("/stats")}
	updates <- telego.Update{Message: userMessage("/weekly")}
	updates <- telego.Update{ChannelPost: &telego.Message{MessageID: 9, Chat: telego.Chat{ID: -100}, Text: "x"}}
	close(updates)

	done := make(chan struct{})
	go func() {
		b.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after the updates channel closed")
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.ElementsMatch(t, []string{"stats", "weekly"}, handler.commands)
	assert.Equal(t, []int{9}, handler.posts)
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	b := newTestBot(t, new(MockBot), &recordingHandler{}, make(chan telego.Update))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		b.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancellation")
	}
}
