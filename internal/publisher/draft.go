package publisher

import (
	"strings"

	"aichannel-bot/pkg/utils"
)

// Draft headers shown to the admin above generated text.
const (
	PrefixIdea     = "💡 Черновик:"
	PrefixNews     = "📰 Новость:"
	PrefixAuto     = "⚙️ Автопост:"
	PrefixResearch = "💡 Черновик (Perplexity):"
	FallbackNotice = "⚠️ Использована резервная модель"
)

var draftPrefixes = []string{PrefixIdea, PrefixNews, PrefixAuto, PrefixResearch}

// FormatDraft builds the admin-facing draft message: an optional fallback notice, the header, then the text.
func FormatDraft(prefix, text, fallbackModel string) string {
	var b strings.Builder
	if fallbackModel != "" {
		b.WriteString(FallbackNotice + " " + fallbackModel + ".\n")
	}
	b.WriteString(prefix)
	b.WriteString("\n")
	b.WriteString(text)
	return b.String()
}

// StripDraftPrefix returns the publishable part of a draft message.
func StripDraftPrefix(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, FallbackNotice) {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = strings.TrimSpace(text[i+1:])
		} else {
			return ""
		}
	}
	for _, prefix := range draftPrefixes {
		if strings.HasPrefix(text, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(text, prefix))
		}
	}
	return text
}

// TruncateCaption cuts text to the photo caption limit.
func TruncateCaption(text string) string {
	return utils.TruncateRunes(text, CaptionLimit)
}
