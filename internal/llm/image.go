package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"aichannel-bot/pkg/utils"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"
)

const (
	downloadTimeout  = 45 * time.Second
	maxImageBytes    = 20 << 20
	defaultImageSize = openai.CreateImageSize1024x1024
	// DownloadUserAgent is sent when fetching generated images.
	DownloadUserAgent = "Mozilla/5.0 (compatible; AIChannelBot/1.0)"
)

var (
	// ErrEmptyImage is returned when an image response or download carries no data.
	ErrEmptyImage = errors.New("llm: empty image")
	// ErrImageDownload wraps failures to fetch an image the API generated by URL.
	ErrImageDownload = errors.New("llm: image download failed")
)

// ImageConfig holds the image generation settings.
type ImageConfig struct {
	Model           string
	Size            string
	Quality         string
	Style           string
	PromptMaxLength int
}

// ImageAPI is the part of the OpenAI client used for image generation.
type ImageAPI interface {
	CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error)
}

// ImageGenerator renders post illustrations.
type ImageGenerator struct {
	api    ImageAPI
	cfg    ImageConfig
	client *http.Client
}

// NewImageGenerator validates cfg and creates a generator.
func NewImageGenerator(api ImageAPI, cfg ImageConfig) *ImageGenerator {
	return &ImageGenerator{
		api:    api,
		cfg:    NormalizeImageConfig(cfg),
		client: &http.Client{Timeout: downloadTimeout},
	}
}

// Config returns the effective, validated settings.
func (g *ImageGenerator) Config() ImageConfig {
	return g.cfg
}

// NormalizeImageConfig replaces settings the model does not support with its defaults.
// An unknown model falls back to dall-e-3.
func NormalizeImageConfig(cfg ImageConfig) ImageConfig {
	var sizes []string
	switch cfg.Model {
	case openai.CreateImageModelDallE3:
		sizes = []string{openai.CreateImageSize1024x1024, openai.CreateImageSize1792x1024, openai.CreateImageSize1024x1792}
	case openai.CreateImageModelGptImage1:
		sizes = []string{openai.CreateImageSize1024x1024, openai.CreateImageSize1024x1536, openai.CreateImageSize1536x1024}
	case openai.CreateImageModelDallE2:
		sizes = []string{openai.CreateImageSize1024x1024, openai.CreateImageSize512x512, openai.CreateImageSize256x256}
	default:
		log.Warnf("[Images] Unknown IMAGE_MODEL %q, using %s", cfg.Model, openai.CreateImageModelDallE3)
		cfg.Model = openai.CreateImageModelDallE3
		return NormalizeImageConfig(cfg)
	}

	if !slices.Contains(sizes, cfg.Size) {
		log.Warnf("[Images] Size %q is not supported by %s, using %s", cfg.Size, cfg.Model, defaultImageSize)
		cfg.Size = defaultImageSize
	}
	if cfg.Model == openai.CreateImageModelDallE3 {
		if cfg.Quality != openai.CreateImageQualityStandard && cfg.Quality != openai.CreateImageQualityHD {
			log.Warnf("[Images] Quality %q is not supported by dall-e-3, using standard", cfg.Quality)
			cfg.Quality = openai.CreateImageQualityStandard
		}
		if cfg.Style != openai.CreateImageStyleVivid && cfg.Style != openai.CreateImageStyleNatural {
			log.Warnf("[Images] Style %q is not supported by dall-e-3, using vivid", cfg.Style)
			cfg.Style = openai.CreateImageStyleVivid
		}
	} else {
		cfg.Quality = ""
		cfg.Style = ""
	}
	if cfg.PromptMaxLength <= 0 {
		cfg.PromptMaxLength = 1000
	}
	return cfg
}

// BuildRequest prepares the API request for prompt. Quality and style are only sent to dall-e-3.
func (g *ImageGenerator) BuildRequest(prompt string) (openai.ImageRequest, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return openai.ImageRequest{}, errors.New("image prompt is empty")
	}
	if n := len([]rune(prompt)); n > g.cfg.PromptMaxLength {
		prompt = strings.TrimSpace(utils.TruncateRunes(prompt, g.cfg.PromptMaxLength))
		log.Warnf("[Images] Prompt of %d chars truncated to %d", n, g.cfg.PromptMaxLength)
	}

	req := openai.ImageRequest{
		Prompt: prompt,
		Model:  g.cfg.Model,
		N:      1,
		Size:   g.cfg.Size,
	}
	switch g.cfg.Model {
	case openai.CreateImageModelDallE3:
		req.Quality = g.cfg.Quality
		req.Style = g.cfg.Style
		req.ResponseFormat = openai.CreateImageResponseFormatURL
	case openai.CreateImageModelDallE2:
		req.ResponseFormat = openai.CreateImageResponseFormatURL
	}
	return req, nil
}

// Generate creates an image for prompt and returns its bytes.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	req, err := g.BuildRequest(prompt)
	if err != nil {
		return nil, err
	}
	log.Infof("[Images] Requesting image (model: %s, size: %s): %q", req.Model, req.Size, utils.Preview(req.Prompt, 100))

	resp, err := g.api.CreateImage(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("image API error (model %s, status %d, code %v): %s", req.Model, apiErr.HTTPStatusCode, apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("image request (model %s): %w", req.Model, err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrEmptyImage
	}

	data := resp.Data[0]
	if data.RevisedPrompt != "" {
		log.Debugf("[Images] Revised prompt: %s", data.RevisedPrompt)
	}
	if data.B64JSON != "" {
		img, err := base64.StdEncoding.DecodeString(data.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("decode image data: %w", err)
		}
		if len(img) == 0 {
			return nil, ErrEmptyImage
		}
		return img, nil
	}
	if data.URL == "" {
		return nil, ErrEmptyImage
	}
	img, err := DownloadImage(ctx, g.client, data.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageDownload, err)
	}
	return img, nil
}

// DownloadImage fetches an image. A non-image content type is only logged; an empty body is an error.
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = &http.Client{Timeout: downloadTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("User-Agent", DownloadUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image: unexpected status %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		log.Warnf("[Images] Downloaded content type is %q, expected an image", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if len(body) == 0 {
		return nil, ErrEmptyImage
	}
	log.Infof("[Images] Image downloaded (%d bytes)", len(body))
	return body, nil
}
