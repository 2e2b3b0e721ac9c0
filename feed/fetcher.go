// Package feed turns RSS/Atom feeds into content drafts for the data
// service.
package feed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/robertmeta/portal-cli/model"
)

// Source describes the feed an import came from.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Entry is one feed item ready to be posted as content.
type Entry struct {
	GUID  string             `json:"guid"`
	Link  string             `json:"link,omitempty"`
	Draft model.ContentDraft `json:"draft"`
}

// Options shapes the drafts produced from feed items.
type Options struct {
	Category string
	Status   string
	Featured bool
	// Now stamps items that carry no date. Defaults to time.Now.
	Now func() time.Time
}

// Fetcher handles fetching and parsing RSS/Atom feeds.
type Fetcher struct {
	parser *gofeed.Parser
	opts   Options
}

// NewFetcher creates a new Fetcher.
func NewFetcher(opts Options) *Fetcher {
	if opts.Status == "" {
		opts.Status = model.StatusDraft
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Fetcher{
		parser: gofeed.NewParser(),
		opts:   opts,
	}
}

// Fetch retrieves and parses a feed from a URL.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Source, []Entry, error) {
	parsed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch feed from %s: %w", url, err)
	}

	src, entries := f.convert(parsed, url)
	return src, entries, nil
}

// Parse parses feed content from a string.
func (f *Fetcher) Parse(content string) (*Source, []Entry, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil, fmt.Errorf("feed content is empty")
	}

	parsed, err := f.parser.ParseString(content)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	src, entries := f.convert(parsed, "")
	return src, entries, nil
}

func (f *Fetcher) convert(gf *gofeed.Feed, url string) (*Source, []Entry) {
	src := &Source{Title: gf.Title, URL: url}
	if src.URL == "" {
		src.URL = gf.FeedLink
	}
	if src.URL == "" {
		src.URL = gf.Link
	}

	entries := make([]Entry, 0, len(gf.Items))
	for _, item := range gf.Items {
		entries = append(entries, f.convertItem(item))
	}
	return src, entries
}

func (f *Fetcher) convertItem(item *gofeed.Item) Entry {
	e := Entry{
		GUID: item.GUID,
		Link: item.Link,
	}
	if e.GUID == "" {
		e.GUID = item.Link
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}
	if body == "" {
		body = item.Link
	}

	published := f.opts.Now()
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	tags := make([]string, 0, len(item.Categories))
	for _, c := range item.Categories {
		if c = strings.TrimSpace(c); c != "" {
			tags = append(tags, c)
		}
	}
	if len(tags) == 0 {
		tags = InferTags(item.Title + " " + body)
	}

	e.Draft = model.ContentDraft{
		Title:     strings.TrimSpace(item.Title),
		Content:   body,
		CreatedAt: published.UTC().Format(time.RFC3339),
		Category:  f.opts.Category,
		Tags:      tags,
		Status:    f.opts.Status,
		Featured:  f.opts.Featured,
	}
	if e.Draft.Title == "" {
		e.Draft.Title = e.GUID
	}
	return e
}

var keywords = map[string]string{
	"golang":     "golang",
	"go ":        "golang",
	"rust":       "rust",
	"python":     "python",
	"javascript": "javascript",
	"typescript": "typescript",
}

// InferTags guesses tags from well known keywords in text. The result is
// sorted.
func InferTags(text string) []string {
	text = strings.ToLower(text)

	seen := make(map[string]bool)
	tags := []string{}
	for keyword, tag := range keywords {
		if strings.Contains(text, keyword) && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}
