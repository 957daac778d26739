package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// markdownV2Replacer escapes every character Telegram reserves in MarkdownV2.
var markdownV2Replacer = strings.NewReplacer(
	"\\", "\\\\",
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// EscapeMarkdownV2 escapes text so it can be embedded into a MarkdownV2 message verbatim.
func EscapeMarkdownV2(text string) string {
	return markdownV2Replacer.Replace(text)
}

// Bold wraps already escaped MarkdownV2 text in bold markers.
func Bold(escaped string) string {
	return "*" + escaped + "*"
}

// Italic wraps already escaped MarkdownV2 text in italic markers.
func Italic(escaped string) string {
	return "_" + escaped + "_"
}

// TruncateRunes cuts s to at most limit runes. Multi-byte characters are never split.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// Preview flattens newlines and cuts the text to limit runes for one-line summaries.
func Preview(s string, limit int) string {
	flat := strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	return TruncateRunes(flat, limit)
}

// ParseClock parses a "HH:MM" time of day.
func ParseClock(value string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time of day %q: expected HH:MM", value)
	}
	if _, err := fmt.Sscanf(parts[0], "%d", &hour); err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q: %w", value, err)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q: %w", value, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time of day %q out of range", value)
	}
	return hour, minute, nil
}

// FormatClock renders a time of day as "HH:MM".
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
