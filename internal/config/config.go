package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"aichannel-bot/pkg/utils"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Provider names accepted in LLM_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	defaultNewsRSSURL = "https://news.google.com/rss/search?q=artificial+intelligence&hl=ru&gl=RU&ceid=RU:ru"
	// FallbackModel is tried once when the primary chat model fails.
	FallbackModel = "gpt-3.5-turbo"
)

// Config holds the application configuration.
type Config struct {
	AppEnv          string
	Debug           bool
	Version         string
	LogLevel        string
	DefaultLanguage string

	BotToken  string
	ChannelID int64
	AdminID   int64

	LLMProvider   string
	OpenAIAPIKey  string
	OpenAIProxy   string
	Model         string
	FallbackModel string
	GeminiAPIKey  string
	GeminiModel   string

	PerplexityAPIKey string
	PerplexityModel  string

	LogFile          string
	PlotFile         string
	DefaultPostTime  string
	DailyAutoPostJob string

	NewsRSSURL string
	NewsLimit  int

	ImageGenerationEnabled bool
	ImageModel             string
	ImageSize              string
	ImageQuality           string
	ImageStyle             string
	ImagePromptMaxLength   int

	SentryDSN       string
	MongoDBURI      string
	MongoDBDatabase string
}

// LoadConfig loads configuration from environment variables.
// A .env file is read first when present; variables already set in the
// environment take precedence over it.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, relying on environment variables")
	}

	channelID, err := parseInt64("CHANNEL_ID")
	if err != nil {
		return nil, err
	}
	adminID, err := parseInt64("ADMIN_ID")
	if err != nil {
		return nil, err
	}
	newsLimit, err := parseInt("NEWS_LIMIT", 7)
	if err != nil {
		return nil, err
	}
	promptMax, err := parseInt("IMAGE_PROMPT_MAX_LENGTH", 1000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		Debug:           parseBool(getEnv("DEBUG", "false")),
		Version:         getEnv("VERSION", "dev"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "ru"),

		BotToken:  getEnv("BOT_TOKEN", getEnv("TELEGRAM_BOT_TOKEN", "")),
		ChannelID: channelID,
		AdminID:   adminID,

		LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIProxy:   getEnv("OPENAI_PROXY", ""),
		Model:         getEnv("MODEL", "gpt-4o-mini"),
		FallbackModel: getEnv("FALLBACK_MODEL", FallbackModel),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		PerplexityAPIKey: getEnv("PPLX_API_KEY", ""),
		PerplexityModel:  getEnv("PPLX_MODEL", "sonar"),

		LogFile:          getEnv("LOG_FILE", "../data/telegram_channel_log.csv"),
		PlotFile:         getEnv("PLOT_FILE", "../data/posting_time_stats.png"),
		DefaultPostTime:  getEnv("DEFAULT_POST_TIME", "10:00"),
		DailyAutoPostJob: getEnv("DAILY_AUTO_POST_JOB", "daily_auto_post_job"),

		NewsRSSURL: getEnv("NEWS_RSS_URL", defaultNewsRSSURL),
		NewsLimit:  newsLimit,

		ImageGenerationEnabled: parseBool(getEnv("IMAGE_GENERATION_ENABLED", "false")),
		ImageModel:             getEnv("IMAGE_MODEL", "dall-e-3"),
		ImageSize:              getEnv("IMAGE_SIZE", "1024x1024"),
		ImageQuality:           getEnv("IMAGE_QUALITY", "standard"),
		ImageStyle:             getEnv("IMAGE_STYLE", "vivid"),
		ImagePromptMaxLength:   promptMax,

		SentryDSN:       getEnv("SENTRY_DSN", ""),
		MongoDBURI:      getEnv("MONGODB_URI", ""),
		MongoDBDatabase: getEnv("MONGODB_DATABASE", "channel_bot"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the essential settings and warns about optional features that are switched off.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.ChannelID == 0 {
		return fmt.Errorf("CHANNEL_ID is required")
	}
	if c.AdminID == 0 {
		return fmt.Errorf("ADMIN_ID is required")
	}
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}
	if _, _, err := utils.ParseClock(c.DefaultPostTime); err != nil {
		return fmt.Errorf("invalid DEFAULT_POST_TIME: %w", err)
	}
	if c.MongoDBURI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if c.NewsLimit <= 0 {
		return fmt.Errorf("NEWS_LIMIT must be positive")
	}

	if c.PerplexityAPIKey == "" {
		log.Warn("PPLX_API_KEY is not set. /research is disabled.")
	}
	if c.ImageGenerationEnabled && c.OpenAIAPIKey == "" {
		log.Warn("IMAGE_GENERATION_ENABLED is set but OPENAI_API_KEY is empty. Images are disabled.")
		c.ImageGenerationEnabled = false
	}
	if c.SentryDSN == "" {
		log.Warn("SENTRY_DSN is not set. Error tracking disabled.")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func parseInt64(key string) (int64, error) {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseInt(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
