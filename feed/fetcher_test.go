package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/robertmeta/portal-cli/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func TestFetcher_ParseRSS2(t *testing.T) {
	fetcher := NewFetcher(Options{Category: "blog", Now: fixedNow})
	src, entries, err := fetcher.Parse(readFixture(t, "rss2.xml"))
	require.NoError(t, err)

	assert.Equal(t, "Portal Engineering Blog", src.Title)
	assert.Equal(t, "https://blog.example.com/", src.URL)
	require.Len(t, entries, 3)

	first := entries[0]
	assert.Equal(t, "post-1", first.GUID)
	assert.Equal(t, "https://blog.example.com/posts/migrating", first.Link)
	assert.Equal(t, "Migrating the data service", first.Draft.Title)
	assert.Contains(t, first.Draft.Content, "new cluster")
	assert.Equal(t, "2025-01-06T10:00:00Z", first.Draft.CreatedAt)
	assert.Equal(t, []string{"ops", "migration"}, first.Draft.Tags)
	assert.Equal(t, "blog", first.Draft.Category)
	assert.Equal(t, model.StatusDraft, first.Draft.Status)

	assert.Equal(t, []string{"golang", "python"}, entries[1].Draft.Tags, "tags inferred when the item has none")

	last := entries[2]
	assert.Equal(t, "https://blog.example.com/posts/link", last.GUID, "link stands in for a missing guid")
	assert.Equal(t, last.Link, last.Draft.Content)
	assert.Equal(t, "2025-03-01T00:00:00Z", last.Draft.CreatedAt)
	assert.Empty(t, last.Draft.Tags)
}

func TestFetcher_ParseAtom(t *testing.T) {
	fetcher := NewFetcher(Options{Status: model.StatusPublished, Featured: true})
	src, entries, err := fetcher.Parse(readFixture(t, "atom.xml"))
	require.NoError(t, err)

	assert.Equal(t, "Release Announcements", src.Title)
	assert.Equal(t, "https://releases.example.com/atom.xml", src.URL)
	require.Len(t, entries, 2)

	assert.Equal(t, "release-2.0", entries[0].GUID)
	assert.Equal(t, "Version 2.0", entries[0].Draft.Title)
	assert.Contains(t, entries[0].Draft.Content, "HTML content")
	assert.Equal(t, "2025-02-01T12:00:00Z", entries[0].Draft.CreatedAt)
	assert.Equal(t, model.StatusPublished, entries[0].Draft.Status)
	assert.True(t, entries[0].Draft.Featured)

	assert.Equal(t, "Bug fixes.", entries[1].Draft.Content)
}

func TestFetcher_ParseInvalidFeed(t *testing.T) {
	fetcher := NewFetcher(Options{})

	tests := []struct {
		name    string
		content string
	}{
		{"broken xml", "<invalid>xml</broken>"},
		{"empty", ""},
		{"whitespace", "  \n"},
		{"not a feed", "<?xml version='1.0'?><root><item>not a feed</item></root>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := fetcher.Parse(tt.content)
			assert.Error(t, err)
		})
	}
}

func TestFetcher_Fetch(t *testing.T) {
	body := readFixture(t, "rss2.xml")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rss" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	fetcher := NewFetcher(Options{})
	src, entries, err := fetcher.Fetch(context.Background(), srv.URL+"/rss")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/rss", src.URL)
	assert.Len(t, entries, 3)

	_, _, err = fetcher.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestInferTags(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"Nothing to see", []string{}},
		{"Rust and TypeScript", []string{"rust", "typescript"}},
		{"go is fun, golang too", []string{"golang"}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, InferTags(tt.text))
		})
	}
}
