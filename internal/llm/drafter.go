package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aichannel-bot/internal/news"
	"aichannel-bot/internal/postlog"
	"aichannel-bot/internal/prompts"

	"github.com/charmbracelet/log"
)

// Generation parameters per draft kind.
const (
	ideaMaxTokens   = 400
	ideaTemperature = 0.75
	newsMaxTokens   = 500
	newsTemperature = 0.6
)

// Draft is a generated post text together with the model that wrote it.
type Draft struct {
	Text         string
	Model        string
	UsedFallback bool
}

// DrafterConfig selects the models used by a Drafter.
type DrafterConfig struct {
	Model string
	// FallbackModel is tried once when Model fails. Empty or equal to Model disables it.
	FallbackModel string
	ResearchModel string
}

// Drafter writes post drafts with the configured models.
type Drafter struct {
	chat     Completer
	research Completer
	cfg      DrafterConfig
}

// NewDrafter creates a drafter. research may be nil when Perplexity is not configured.
func NewDrafter(chat, research Completer, cfg DrafterConfig) *Drafter {
	return &Drafter{chat: chat, research: research, cfg: cfg}
}

// ResearchEnabled reports whether research queries can be served.
func (d *Drafter) ResearchEnabled() bool {
	return d.research != nil
}

// Idea writes a draft inspired by the best posts so far.
func (d *Drafter) Idea(ctx context.Context, top []postlog.Record) (Draft, error) {
	prompt, err := prompts.Idea(top)
	if err != nil {
		return Draft{}, err
	}
	return d.generate(ctx, "idea", Request{Prompt: prompt, MaxTokens: ideaMaxTokens, Temperature: ideaTemperature}, true)
}

// News writes a draft about the given feed items.
func (d *Drafter) News(ctx context.Context, items []news.Item) (Draft, error) {
	digest := news.FormatForPrompt(items)
	if strings.TrimSpace(digest) == "" {
		return Draft{}, news.ErrNoEntries
	}
	prompt, err := prompts.News(digest)
	if err != nil {
		return Draft{}, err
	}
	return d.generate(ctx, "news", Request{Prompt: prompt, MaxTokens: newsMaxTokens, Temperature: newsTemperature}, true)
}

// AutoPost writes the scheduled daily post. Only the primary model is used.
func (d *Drafter) AutoPost(ctx context.Context, top []postlog.Record) (Draft, error) {
	prompt, err := prompts.AutoPost(top)
	if err != nil {
		return Draft{}, err
	}
	return d.generate(ctx, "auto", Request{Prompt: prompt, MaxTokens: ideaMaxTokens, Temperature: ideaTemperature}, false)
}

// Research asks Perplexity about query. An empty query uses the default topic.
func (d *Drafter) Research(ctx context.Context, query string) (Draft, error) {
	if d.research == nil {
		return Draft{}, ErrResearchDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		query = prompts.DefaultResearchQuery
	}
	prompt, err := prompts.Research(query)
	if err != nil {
		return Draft{}, err
	}

	log.Infof("[LLM] Research request (model: %s): %q", d.cfg.ResearchModel, query)
	text, err := d.research.Complete(ctx, Request{
		Model:  d.cfg.ResearchModel,
		System: prompts.ResearchSystem,
		Prompt: prompt,
	})
	if err != nil {
		return Draft{}, fmt.Errorf("research %q: %w", query, err)
	}
	return Draft{Text: text, Model: d.cfg.ResearchModel}, nil
}

func (d *Drafter) generate(ctx context.Context, kind string, req Request, allowFallback bool) (Draft, error) {
	req.Model = d.cfg.Model
	log.Infof("[LLM] Generating %s draft with %s", kind, req.Model)
	text, err := d.chat.Complete(ctx, req)
	if err == nil {
		return Draft{Text: text, Model: req.Model}, nil
	}
	log.Warnf("[LLM] Model %s failed for %s: %v", req.Model, kind, err)

	fallback := d.cfg.FallbackModel
	if !allowFallback || fallback == "" || fallback == d.cfg.Model || errors.Is(ctx.Err(), context.Canceled) {
		return Draft{}, fmt.Errorf("generate %s with %s: %w", kind, req.Model, err)
	}

	req.Model = fallback
	log.Warnf("[LLM] Retrying %s draft with fallback model %s", kind, fallback)
	text, fbErr := d.chat.Complete(ctx, req)
	if fbErr != nil {
		return Draft{}, fmt.Errorf("generate %s with %s after %s failed (%v): %w", kind, fallback, d.cfg.Model, err, fbErr)
	}
	return Draft{Text: text, Model: fallback, UsedFallback: true}, nil
}
