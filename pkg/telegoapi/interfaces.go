package telegoapi

import (
	"context"

	"github.com/mymmrac/telego"
)

// BotAPI defines the bot operations used across packages.
// This allows using both the real telego.Bot and mocks.
type BotAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error)
	EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
	SendChatAction(ctx context.Context, params *telego.SendChatActionParams) error
	SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error
	GetMe(ctx context.Context) (*telego.User, error)
}

// ChannelSender is the subset of BotAPI needed to post into a channel.
type ChannelSender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error)
}
