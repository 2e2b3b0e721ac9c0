package opml

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/robertmeta/portal-cli/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_File(t *testing.T) {
	file, err := os.Open("testdata/subscriptions.opml")
	require.NoError(t, err)
	defer file.Close()

	subs, err := Parse(file)
	require.NoError(t, err)

	assert.Equal(t, []Subscription{
		{Title: "The Go Blog", URL: "https://go.dev/blog/feed.atom", Category: "engineering"},
		{Title: "Rust Blog", URL: "https://blog.rust-lang.org/feed.xml", Category: "rust"},
		{Title: "Hacker News", URL: "https://news.ycombinator.com/rss", Category: "news"},
		{Title: "Release Notes", URL: "https://releases.example.com/atom.xml"},
	}, subs)
}

func TestParse_Edges(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{
			name:    "invalid xml",
			content: `<invalid>xml</broken>`,
			wantErr: true,
		},
		{
			name: "empty body",
			content: `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0"><head><title>Empty</title></head><body></body></opml>`,
			want: 0,
		},
		{
			name: "outline without xmlUrl skipped",
			content: `<opml version="2.0"><body>
  <outline type="rss" text="Valid Feed" xmlUrl="https://example.com/feed"/>
  <outline type="rss" text="Invalid Feed"/>
</body></opml>`,
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs, err := Parse(strings.NewReader(tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, subs, tt.want)
		})
	}
}

func sampleItems() []model.ContentItem {
	return []model.ContentItem{
		{ID: "1", Title: "Getting Started Guide", Category: "guides", Tags: []string{"intro", "basics"}, CreatedAt: "2025-01-01T00:00:00"},
		{ID: "3", Title: "Troubleshooting", Category: "support", Tags: []string{"help"}, CreatedAt: "2025-01-03T00:00:00"},
		{ID: "2", Title: "Advanced Techniques", Category: "guides", CreatedAt: "2025-01-02T00:00:00Z"},
		{ID: "5", Title: "Notes & <Drafts>", CreatedAt: "not a date"},
	}
}

func TestGenerate(t *testing.T) {
	var buf strings.Builder
	err := Generate(&buf, sampleItems(), Export{
		Title:    "Library",
		LinkBase: "http://localhost:8001/",
		Now:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, out, `<opml version="2.0">`)
	assert.Contains(t, out, `<title>Library</title>`)
	assert.Contains(t, out, `<dateCreated>Sat, 01 Mar 2025 00:00:00 UTC</dateCreated>`)
	assert.Contains(t, out, `url="http://localhost:8001/content/1"`)
	assert.Contains(t, out, `category="intro,basics"`)
	assert.Contains(t, out, `created="Wed, 01 Jan 2025 00:00:00 UTC"`)
	assert.Contains(t, out, "Notes &amp; &lt;Drafts&gt;")

	guides := strings.Index(out, `text="guides"`)
	support := strings.Index(out, `text="support"`)
	loose := strings.Index(out, `text="Notes`)
	require.True(t, guides >= 0 && support >= 0 && loose >= 0)
	assert.Less(t, guides, support, "categories are sorted")
	assert.Less(t, support, loose, "uncategorized items come last")
}

func TestGenerate_Empty(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, Generate(&buf, nil, Export{}))

	out := buf.String()
	assert.Contains(t, out, `<title>portal-cli Content</title>`)
	assert.Contains(t, out, `<body></body>`)
}

func TestGenerate_ParsesBack(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, Generate(&buf, sampleItems(), Export{}))

	subs, err := Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Empty(t, subs, "content links are not feed subscriptions")
}

func TestUnique(t *testing.T) {
	doc := `<?xml version="1.0"?>
<opml version="2.0">
  <body>
    <outline text="Tech">
      <outline text="Go Blog" xmlUrl="https://go.dev/blog/feed.atom"/>
    </outline>
    <outline text="Languages">
      <outline text="Go Blog again" xmlUrl="https://go.dev/blog/feed.atom"/>
      <outline text="Rust" xmlUrl="https://blog.rust-lang.org/feed.xml"/>
    </outline>
  </body>
</opml>`

	subs, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, subs, 3)

	unique := Unique(subs)
	require.Len(t, unique, 2)
	assert.Equal(t, "https://go.dev/blog/feed.atom", unique[0].URL)
	assert.Equal(t, "Tech", unique[0].Category)
	assert.Equal(t, "Go Blog", unique[0].Title)
	assert.Equal(t, "https://blog.rust-lang.org/feed.xml", unique[1].URL)

	assert.Empty(t, Unique(nil))
}
