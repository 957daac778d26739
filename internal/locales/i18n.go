package locales

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// DefaultLanguage is used when no language is configured.
const DefaultLanguage = "ru"

//go:embed *.json
var localeFS embed.FS

var (
	mu              sync.RWMutex
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
)

// Init loads the embedded message files and sets the default language.
// An unparsable code falls back to DefaultLanguage.
func Init(defaultLangCode string) error {
	tag, err := language.Parse(defaultLangCode)
	if err != nil {
		log.Warnf("[i18n] Failed to parse default language code '%s': %v. Falling back to %s.", defaultLangCode, err, DefaultLanguage)
		tag = language.MustParse(DefaultLanguage)
	}

	b := i18n.NewBundle(tag)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir(".")
	if err != nil {
		return fmt.Errorf("failed to read embedded locales: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if _, err := b.LoadMessageFileFS(localeFS, entry.Name()); err != nil {
			log.Warnf("[i18n] Failed to load message file '%s': %v", entry.Name(), err)
			continue
		}
		log.Debugf("[i18n] Loaded message file: %s", entry.Name())
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("no message files loaded")
	}

	mu.Lock()
	bundle = b
	defaultLanguage = tag
	mu.Unlock()
	log.Infof("[i18n] Bundle initialized with %d file(s). Default language: %s", loaded, tag)
	return nil
}

// GetDefaultLanguageTag returns the configured default language tag.
func GetDefaultLanguageTag() language.Tag {
	mu.RLock()
	defer mu.RUnlock()
	if bundle == nil {
		log.Fatal("[i18n] Default language requested before bundle initialization")
	}
	return defaultLanguage
}

// NewLocalizer creates a localizer for the given language preferences.
// The default language is always appended as the last preference.
func NewLocalizer(langPrefs ...string) *i18n.Localizer {
	mu.RLock()
	defer mu.RUnlock()
	if bundle == nil {
		log.Fatal("[i18n] Localizer requested before bundle initialization")
	}
	return i18n.NewLocalizer(bundle, append(langPrefs, defaultLanguage.String())...)
}

// GetMessage retrieves and formats a message by its ID.
// When the localizer has no translation it retries in English, and finally returns the ID itself.
func GetMessage(localizer *i18n.Localizer, msgID string, templateData map[string]interface{}, pluralCount *int) string {
	cfg := &i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: templateData,
	}
	if pluralCount != nil {
		cfg.PluralCount = *pluralCount
	}

	msg, err := localizer.Localize(cfg)
	if err == nil {
		return msg
	}
	log.Errorf("[i18n] Failed to localize message ID '%s': %v. Falling back to English.", msgID, err)

	mu.RLock()
	b := bundle
	mu.RUnlock()
	fallback, fallbackErr := i18n.NewLocalizer(b, language.English.String()).Localize(cfg)
	if fallbackErr == nil {
		return fallback
	}
	log.Errorf("[i18n] Message ID '%s' missing in English as well. Returning ID.", msgID)
	return msgID
}
