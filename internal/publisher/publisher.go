// Package publisher posts approved texts to the channel and records them in the post log.
package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aichannel-bot/internal/postlog"
	"aichannel-bot/pkg/telegoapi"
	"aichannel-bot/pkg/utils"

	"github.com/charmbracelet/log"
	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Telegram limits.
const (
	CaptionLimit = 1024
	MessageLimit = 4096
)

const (
	defaultMaxRetries = 3
	defaultRetryWait  = 2 * time.Second
	imageFileName     = "post.png"
)

var (
	// ErrNoChannelRights means Telegram refused the post, usually because the bot is not a channel admin.
	ErrNoChannelRights = errors.New("bot has no rights to post in the channel")
	// ErrEmptyDraft means nothing is left to publish once service prefixes are removed.
	ErrEmptyDraft = errors.New("draft text is empty")
)

// PostAppender stores published posts.
type PostAppender interface {
	Append(rec postlog.Record) error
}

// Result describes a published post.
type Result struct {
	MessageID   int
	WithImage   bool
	PublishedAt time.Time
	// LogErr is set when the post went out but could not be written to the post log.
	LogErr error
}

// Publisher sends posts to one channel.
type Publisher struct {
	bot        telegoapi.ChannelSender
	channelID  int64
	posts      PostAppender
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a publisher for channelID.
func New(bot telegoapi.ChannelSender, channelID int64, posts PostAppender) *Publisher {
	return &Publisher{
		bot:        bot,
		channelID:  channelID,
		posts:      posts,
		maxRetries: defaultMaxRetries,
		sleep:      sleepCtx,
	}
}

// ChannelID returns the target channel.
func (p *Publisher) ChannelID() int64 {
	return p.channelID
}

// Publish posts text, as a photo caption when image is not empty, and appends the full text to the post log.
func (p *Publisher) Publish(ctx context.Context, text string, image []byte, source string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyDraft
	}
	logPrefix := fmt.Sprintf("[Publish Channel:%d Source:%s]", p.channelID, source)

	var (
		msg *telego.Message
		err error
	)
	withImage := len(image) > 0
	if withImage {
		caption := TruncateCaption(text)
		if caption != text {
			log.Warnf("%s Caption truncated to %d chars", logPrefix, CaptionLimit)
		}
		msg, err = p.sendWithRetry(ctx, logPrefix, func() (*telego.Message, error) {
			params := tu.Photo(tu.ID(p.channelID), tu.File(tu.NameReader(bytes.NewReader(image), imageFileName))).
				WithCaption(caption)
			return p.bot.SendPhoto(ctx, params)
		})
	} else {
		body := utils.TruncateRunes(text, MessageLimit)
		msg, err = p.sendWithRetry(ctx, logPrefix, func() (*telego.Message, error) {
			return p.bot.SendMessage(ctx, tu.Message(tu.ID(p.channelID), body))
		})
	}
	if err != nil {
		return Result{}, err
	}

	res := Result{MessageID: msg.MessageID, WithImage: withImage, PublishedAt: time.Now().UTC()}
	if msg.Date > 0 {
		res.PublishedAt = time.Unix(int64(msg.Date), 0).UTC()
	}
	log.Infof("%s Published message %d (image: %t)", logPrefix, res.MessageID, withImage)

	if p.posts != nil {
		rec := postlog.Record{MessageID: res.MessageID, Text: text, Timestamp: res.PublishedAt, Source: source}
		if err := p.posts.Append(rec); err != nil {
			log.Errorf("%s Failed to log message %d: %v", logPrefix, res.MessageID, err)
			sentry.CaptureException(fmt.Errorf("%s log post: %w", logPrefix, err))
			res.LogErr = err
		}
	}
	return res, nil
}

// sendWithRetry retries on 429 responses, waiting for the delay Telegram asks for.
func (p *Publisher) sendWithRetry(ctx context.Context, logPrefix string, send func() (*telego.Message, error)) (*telego.Message, error) {
	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		msg, err := send()
		if err == nil {
			if attempt > 1 {
				log.Infof("%s Sent after %d attempt(s)", logPrefix, attempt)
			}
			return msg, nil
		}
		lastErr = err

		if IsForbidden(err) {
			return nil, fmt.Errorf("%w: %v", ErrNoChannelRights, err)
		}
		if !IsTooManyRequests(err) {
			return nil, fmt.Errorf("%s send failed: %w", logPrefix, err)
		}

		if attempt == p.maxRetries {
			break
		}
		wait := defaultRetryWait
		if seconds, ok := ParseRetryAfter(err.Error()); ok {
			wait = time.Duration(seconds) * time.Second
		}
		log.Warnf("%s Rate limit hit (attempt %d/%d), waiting %v", logPrefix, attempt, p.maxRetries, wait)
		if err := p.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("%s cancelled during rate limit wait: %w", logPrefix, err)
		}
	}
	return nil, fmt.Errorf("%s max retries (%d) exceeded: %w", logPrefix, p.maxRetries, lastErr)
}

// IsForbidden reports whether err is a 403 from the Bot API.
func IsForbidden(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "403") || strings.Contains(s, "Forbidden") || strings.Contains(s, "not enough rights")
}

// IsTooManyRequests reports whether err is a 429 from the Bot API.
func IsTooManyRequests(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "Too Many Requests") || strings.Contains(s, "429")
}

// ParseRetryAfter extracts N from an error message ending with "retry after N".
func ParseRetryAfter(errorString string) (int, bool) {
	fields := strings.Fields(errorString)
	for i := len(fields) - 2; i >= 0; i-- {
		if !strings.EqualFold(fields[i], "after") {
			continue
		}
		var retryAfter int
		if _, err := fmt.Sscan(strings.Trim(fields[i+1], ",.;)\""), &retryAfter); err == nil && retryAfter > 0 {
			return retryAfter, true
		}
	}
	return 0, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
