// Package opml reads feed subscription lists and writes the content
// library as an OPML outline.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/robertmeta/portal-cli/model"
)

// OPML represents the root OPML structure.
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    Head     `xml:"head"`
	Body    Body     `xml:"body"`
}

// Head contains metadata about the OPML document.
type Head struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

// Body contains the outline elements.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline is a feed, a content link or a grouping node.
type Outline struct {
	Text     string    `xml:"text,attr,omitempty"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLUrl   string    `xml:"xmlUrl,attr,omitempty"`
	URL      string    `xml:"url,attr,omitempty"`
	Created  string    `xml:"created,attr,omitempty"`
	Category string    `xml:"category,attr,omitempty"`
	Outlines []Outline `xml:"outline,omitempty"`
}

// Subscription is a feed listed in an OPML document.
type Subscription struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Category string `json:"category,omitempty"`
}

// Parse reads an OPML document and returns its feed subscriptions.
func Parse(r io.Reader) ([]Subscription, error) {
	var doc OPML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse OPML: %w", err)
	}
	return extractSubscriptions(doc.Body.Outlines, ""), nil
}

// Unique drops repeated feed URLs, keeping the first listing of each.
func Unique(subs []Subscription) []Subscription {
	seen := make(map[string]bool, len(subs))
	out := make([]Subscription, 0, len(subs))
	for _, sub := range subs {
		if seen[sub.URL] {
			continue
		}
		seen[sub.URL] = true
		out = append(out, sub)
	}
	return out
}

// extractSubscriptions walks nested outlines. A grouping outline's text
// becomes the category of children that name none.
func extractSubscriptions(outlines []Outline, parentCategory string) []Subscription {
	var subs []Subscription

	for _, o := range outlines {
		if o.XMLUrl != "" {
			sub := Subscription{URL: o.XMLUrl, Title: o.Title, Category: o.Category}
			if sub.Category == "" {
				sub.Category = parentCategory
			}
			if sub.Title == "" {
				sub.Title = o.Text
			}
			subs = append(subs, sub)
		}

		if len(o.Outlines) > 0 {
			category := o.Text
			if category == "" {
				category = parentCategory
			}
			subs = append(subs, extractSubscriptions(o.Outlines, category)...)
		}
	}

	return subs
}

// Export controls Generate.
type Export struct {
	Title string
	// LinkBase prefixes "/content/{id}" to form each item's url.
	LinkBase string
	Now      time.Time
}

// Generate writes items as an OPML outline grouped by category.
// Categories are sorted; uncategorized items follow at the top level.
func Generate(w io.Writer, items []model.ContentItem, opts Export) error {
	categories := make(map[string][]model.ContentItem)
	var uncategorized []model.ContentItem

	for _, item := range items {
		if item.Category == "" {
			uncategorized = append(uncategorized, item)
		} else {
			categories[item.Category] = append(categories[item.Category], item)
		}
	}

	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	title := opts.Title
	if title == "" {
		title = "portal-cli Content"
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	doc := OPML{
		Version: "2.0",
		Head: Head{
			Title:       title,
			DateCreated: now.UTC().Format(time.RFC1123),
		},
		Body: Body{Outlines: []Outline{}},
	}

	for _, name := range names {
		group := Outline{Text: name, Title: name, Outlines: []Outline{}}
		for _, item := range categories[name] {
			group.Outlines = append(group.Outlines, itemOutline(item, opts.LinkBase))
		}
		doc.Body.Outlines = append(doc.Body.Outlines, group)
	}
	for _, item := range uncategorized {
		doc.Body.Outlines = append(doc.Body.Outlines, itemOutline(item, opts.LinkBase))
	}

	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}

	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode OPML: %w", err)
	}

	if _, err := w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write final newline: %w", err)
	}

	return nil
}

func itemOutline(item model.ContentItem, linkBase string) Outline {
	o := Outline{
		Type:     "link",
		Text:     item.Title,
		Title:    item.Title,
		Category: strings.Join(item.Tags, ","),
	}
	if linkBase != "" {
		o.URL = strings.TrimSuffix(linkBase, "/") + "/content/" + item.ID
	}
	if t, err := item.Created(); err == nil {
		o.Created = t.UTC().Format(time.RFC1123)
	}
	return o
}
