// Package news fetches the RSS digest that /news drafts are written from.
package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"aichannel-bot/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/mmcdole/gofeed"
)

const (
	// UserAgent is sent with feed requests; some feeds reject default Go clients.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	fetchTimeout = 45 * time.Second
	summaryRunes = 150
	untitled     = "Без заголовка"
)

// ErrNoEntries is returned when a feed parses but has nothing usable.
var ErrNoEntries = errors.New("feed has no entries")

// Item is one news entry prepared for a prompt.
type Item struct {
	Title   string
	Link    string
	Summary string
}

// Fetcher downloads and parses feeds.
type Fetcher struct {
	parser *gofeed.Parser
}

// NewFetcher creates a fetcher. A nil client gets one with the default fetch timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	p := gofeed.NewParser()
	p.UserAgent = UserAgent
	p.Client = client
	return &Fetcher{parser: p}
}

// Fetch returns up to limit entries of the feed at url, in feed order.
func (f *Fetcher) Fetch(ctx context.Context, url string, limit int) ([]Item, error) {
	log.Infof("[News] Fetching RSS feed %s", url)
	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", url, err)
	}
	items := FromFeed(feed, limit)
	if len(items) == 0 {
		return nil, ErrNoEntries
	}
	log.Infof("[News] Feed %q loaded: %d entries, using %d", feed.Title, len(feed.Items), len(items))
	return items, nil
}

// FromFeed converts the first limit entries of a parsed feed.
func FromFeed(feed *gofeed.Feed, limit int) []Item {
	if feed == nil {
		return nil
	}
	var items []Item
	for _, entry := range feed.Items {
		if limit > 0 && len(items) >= limit {
			break
		}
		if entry == nil {
			continue
		}
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			title = untitled
		}
		raw := entry.Description
		if strings.TrimSpace(raw) == "" {
			raw = entry.Content
		}
		items = append(items, Item{
			Title:   title,
			Link:    entry.Link,
			Summary: utils.TruncateRunes(StripHTML(raw), summaryRunes),
		})
	}
	return items
}

// StripHTML returns the visible text of an HTML fragment with whitespace collapsed.
func StripHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		log.Debugf("[News] Could not parse summary HTML, using raw text: %v", err)
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("br, p, div, li, td, h1, h2, h3, h4, h5, h6").AfterHtml(" ")
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// FormatForPrompt renders items as "- title: summary..." lines.
func FormatForPrompt(items []Item) string {
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "- %s: %s...\n", it.Title, it.Summary)
	}
	return b.String()
}
