// Package llm talks to the language and image models that write channel drafts.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrUnauthorized means the provider rejected the API key (HTTP 401).
	ErrUnauthorized = errors.New("llm: unauthorized")
	// ErrEmptyResponse means the model answered without any text.
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrResearchDisabled is returned by research calls when no Perplexity key is configured.
	ErrResearchDisabled = errors.New("llm: research provider is not configured")
)

// Request is a single chat completion call.
type Request struct {
	Model  string
	System string
	Prompt string
	// MaxTokens and Temperature are left to provider defaults when zero.
	MaxTokens   int
	Temperature float32
}

// Completer returns the model's text answer for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
