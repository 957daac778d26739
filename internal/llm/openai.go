package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// PerplexityBaseURL is the OpenAI-compatible Perplexity endpoint.
const PerplexityBaseURL = "https://api.perplexity.ai"

const clientTimeout = 60 * time.Second

// OpenAIClient is a Completer for OpenAI-compatible chat APIs.
type OpenAIClient struct {
	api *openai.Client
}

// NewOpenAIClient creates an OpenAI client. proxy is an optional HTTP proxy URL.
func NewOpenAIClient(apiKey, proxy string) (*OpenAIClient, error) {
	httpClient, err := newHTTPClient(proxy)
	if err != nil {
		return nil, err
	}
	return newCompatibleClient(apiKey, "", httpClient), nil
}

// NewPerplexityClient creates a client for the Perplexity API.
func NewPerplexityClient(apiKey string) *OpenAIClient {
	return newCompatibleClient(apiKey, PerplexityBaseURL, &http.Client{Timeout: clientTimeout})
}

func newCompatibleClient(apiKey, baseURL string, httpClient *http.Client) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = httpClient
	return &OpenAIClient{api: openai.NewClientWithConfig(cfg)}
}

// API exposes the underlying client, e.g. for image generation.
func (c *OpenAIClient) API() *openai.Client {
	return c.api
}

// Complete runs a chat completion and returns the trimmed answer.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func newHTTPClient(proxy string) (*http.Client, error) {
	if proxy == "" {
		return &http.Client{Timeout: clientTimeout}, nil
	}
	proxyURL, err := url.Parse(proxy)
	if err != nil {
		return nil, fmt.Errorf("invalid OPENAI_PROXY %q: %w", proxy, err)
	}
	return &http.Client{
		Timeout:   clientTimeout,
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}, nil
}

// classifyOpenAIError wraps authentication failures in ErrUnauthorized.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %v", ErrUnauthorized, reqErr.Err)
	}
	return err
}
