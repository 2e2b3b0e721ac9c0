package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/robertmeta/portal-cli/model"
	"github.com/rs/zerolog"
)

// Ledger remembers which feed items were already posted.
type Ledger interface {
	IsImported(feedURL, guid string) (bool, error)
	MarkImported(feedURL, guid, contentID string) error
}

// Publisher creates content on the data service.
type Publisher interface {
	CreateContent(ctx context.Context, draft model.ContentDraft) (*model.ContentItem, error)
}

// ImportResult summarizes one feed import.
type ImportResult struct {
	Feed     Source              `json:"feed"`
	Created  []model.ContentItem `json:"created"`
	Skipped  int                 `json:"skipped"`
	Failures []string            `json:"failures,omitempty"`
}

// Importer posts unseen feed entries as content authored by one user.
// Imports of the same feed URL run one at a time; different feeds may
// import concurrently.
type Importer struct {
	ledger    Ledger
	publisher Publisher
	log       zerolog.Logger

	mu    sync.Mutex
	feeds map[string]*sync.Mutex
}

// NewImporter creates an Importer.
func NewImporter(ledger Ledger, publisher Publisher, logger zerolog.Logger) *Importer {
	return &Importer{
		ledger:    ledger,
		publisher: publisher,
		log:       logger,
		feeds:     make(map[string]*sync.Mutex),
	}
}

func (im *Importer) lockFeed(url string) func() {
	im.mu.Lock()
	l, ok := im.feeds[url]
	if !ok {
		l = &sync.Mutex{}
		im.feeds[url] = l
	}
	im.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Import posts every entry of src not yet in the ledger. A failed post
// is recorded and the import moves on; a ledger error aborts.
func (im *Importer) Import(ctx context.Context, src Source, entries []Entry, authorID string) (*ImportResult, error) {
	res := &ImportResult{Feed: src, Created: []model.ContentItem{}}

	unlock := im.lockFeed(src.URL)
	defer unlock()

	for _, e := range entries {
		done, err := im.ledger.IsImported(src.URL, e.GUID)
		if err != nil {
			return res, fmt.Errorf("failed to check import ledger: %w", err)
		}
		if done {
			res.Skipped++
			continue
		}

		draft := e.Draft
		draft.AuthorID = authorID
		if err := draft.Validate(); err != nil {
			res.Failures = append(res.Failures, fmt.Sprintf("%s: %v", e.GUID, err))
			continue
		}

		item, err := im.publisher.CreateContent(ctx, draft)
		if err != nil {
			im.log.Warn().Err(err).Str("guid", e.GUID).Msg("failed to post feed entry")
			res.Failures = append(res.Failures, fmt.Sprintf("%s: %v", e.GUID, err))
			continue
		}

		if err := im.ledger.MarkImported(src.URL, e.GUID, item.ID); err != nil {
			return res, fmt.Errorf("failed to record imported entry: %w", err)
		}
		res.Created = append(res.Created, *item)
	}

	im.log.Info().
		Str("feed", src.URL).
		Int("created", len(res.Created)).
		Int("skipped", res.Skipped).
		Int("failed", len(res.Failures)).
		Msg("feed import finished")
	return res, nil
}
