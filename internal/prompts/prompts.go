// Package prompts renders the LLM prompts used for drafts and auto-posts.
package prompts

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"aichannel-bot/internal/postlog"
	"aichannel-bot/pkg/utils"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

const (
	// NoPostsIdea replaces the post context of /idea when the log is empty.
	NoPostsIdea = "(Пока нет данных о прошлых постах)"
	// NoPostsAuto replaces the post context of the auto-post job when the log is empty.
	NoPostsAuto = "(Нет данных о прошлых постах)"
	// ResearchSystem is the system message sent with research queries.
	ResearchSystem = "You are an AI assistant writing concise and engaging Telegram posts."
	// DefaultResearchQuery is used when /research comes without arguments.
	DefaultResearchQuery = "последние тренды в области искусственного интеллекта"

	postContextRunes = 500
)

// Idea renders the prompt for a draft based on the best posts so far.
func Idea(top []postlog.Record) (string, error) {
	return render("idea.tmpl", map[string]string{"Posts": FormatPosts(top, NoPostsIdea)})
}

// AutoPost renders the prompt of the scheduled daily post.
func AutoPost(top []postlog.Record) (string, error) {
	return render("auto.tmpl", map[string]string{"Posts": FormatPosts(top, NoPostsAuto)})
}

// News renders the prompt for a post about the given news digest.
func News(digest string) (string, error) {
	return render("news.tmpl", map[string]string{"News": digest})
}

// Research renders the Perplexity prompt for query.
func Research(query string) (string, error) {
	return render("research.tmpl", map[string]string{"Query": query})
}

// FormatPosts lists post texts with their reactions, or returns empty when there are none.
func FormatPosts(posts []postlog.Record, empty string) string {
	if len(posts) == 0 {
		return empty
	}
	var b strings.Builder
	for i, p := range posts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Пост %d (реакций: %d):\n%s", i+1, p.Reactions, utils.TruncateRunes(strings.TrimSpace(p.Text), postContextRunes))
	}
	return b.String()
}

func render(name string, data any) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}
