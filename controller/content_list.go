package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robertmeta/portal-cli/gateway"
	"github.com/robertmeta/portal-cli/model"
)

// ContentList drives the content library screen: filtered listing plus
// create, update, delete and like.
type ContentList struct {
	base
	data ContentGateway
	now  func() time.Time

	filters    model.ContentFilters
	items      []model.ContentItem
	categories []string
	tags       []string
	editing    *model.ContentItem
}

// NewContentList creates the content list controller.
func NewContentList(d Deps) *ContentList {
	c := &ContentList{data: d.Data, now: time.Now}
	c.init(d, "content_list")
	return c
}

// Activate loads the list for filters, along with the category and tag
// choices offered by the filter form.
func (c *ContentList) Activate(ctx context.Context, filters model.ContentFilters) Outcome {
	gen, out, ok := c.activate()
	if !ok {
		return out
	}

	c.mu.Lock()
	c.filters = filters
	c.editing = nil
	c.mu.Unlock()

	return c.load(ctx, gen, filters)
}

func (c *ContentList) load(ctx context.Context, gen uint64, filters model.ContentFilters) Outcome {
	items, err := c.data.ListContent(ctx, filters)
	if err != nil {
		return c.fail(gen, err, "Failed to load content", "")
	}

	categories, err := c.data.ListCategories(ctx)
	if err != nil {
		return c.fail(gen, err, "Failed to load categories", "")
	}

	tags, err := c.data.ListTags(ctx)
	if err != nil {
		return c.fail(gen, err, "Failed to load tags", "")
	}

	if !c.commit(gen, Ready, func() {
		c.items = items
		c.categories = categories
		c.tags = tags
	}) {
		return c.stale()
	}
	return Outcome{State: Ready}
}

// Filter re-runs the listing with new filters inside the same activation.
func (c *ContentList) Filter(ctx context.Context, filters model.ContentFilters) Outcome {
	if out, ok := c.requireSession(); !ok {
		return out
	}
	gen, active := c.current()
	if !active {
		return c.stale()
	}

	c.mu.Lock()
	c.filters = filters
	c.mu.Unlock()

	items, err := c.data.ListContent(ctx, filters)
	if err != nil {
		return c.fail(gen, err, "Failed to load content", "")
	}
	if !c.commit(gen, Ready, func() { c.items = items }) {
		return c.stale()
	}
	return Outcome{State: Ready}
}

// Edit selects the item the next Submit updates.
func (c *ContentList) Edit(item model.ContentItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = &item
}

// CancelEdit clears the edit target so the next Submit creates.
func (c *ContentList) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = nil
}

// Editing returns the current edit target, if any.
func (c *ContentList) Editing() *model.ContentItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editing == nil {
		return nil
	}
	item := *c.editing
	return &item
}

// Submit saves the form. With an edit target it updates that item,
// otherwise it creates a new one authored by the current user. Either
// way the whole list is reloaded from the server afterwards.
func (c *ContentList) Submit(ctx context.Context, form model.ContentDraft) Outcome {
	if out, ok := c.requireSession(); !ok {
		return out
	}
	gen, active := c.current()
	if !active {
		return c.stale()
	}

	if err := form.Validate(); err != nil {
		n := c.notice(LevelError, err.Error())
		return Outcome{State: c.State(), Notices: []Notice{n}, Err: err}
	}

	editing := c.Editing()
	var (
		err     error
		message string
	)
	if editing != nil {
		item := *editing
		item.Apply(form)
		_, err = c.data.UpdateContent(ctx, item)
		message = "Content updated successfully"
	} else {
		var author *model.User
		author, err = c.author(ctx)
		if err == nil {
			draft := form
			draft.AuthorID = author.ID
			draft.CreatedAt = c.now().UTC().Format(time.RFC3339)
			_, err = c.data.CreateContent(ctx, draft)
		}
		message = "Content created successfully"
	}
	if err != nil {
		return c.mutationFailed(gen, err, "Failed to save content")
	}

	c.mu.Lock()
	c.editing = nil
	c.mu.Unlock()

	return c.afterMutation(ctx, gen, message)
}

// Delete removes an item once confirm approves. Without approval no
// request is sent.
func (c *ContentList) Delete(ctx context.Context, id string, confirm Confirm) Outcome {
	if out, ok := c.requireSession(); !ok {
		return out
	}
	gen, active := c.current()
	if !active {
		return c.stale()
	}

	if confirm == nil || !confirm(fmt.Sprintf("Delete content %s? This cannot be undone.", id)) {
		return Outcome{State: c.State()}
	}

	if err := c.data.DeleteContent(ctx, id); err != nil {
		return c.mutationFailed(gen, err, "Failed to delete content")
	}

	c.mu.Lock()
	if c.editing != nil && c.editing.ID == id {
		c.editing = nil
	}
	c.mu.Unlock()

	return c.afterMutation(ctx, gen, "Content deleted successfully")
}

// Like increments an item's like counter.
func (c *ContentList) Like(ctx context.Context, id string) Outcome {
	if out, ok := c.requireSession(); !ok {
		return out
	}
	gen, active := c.current()
	if !active {
		return c.stale()
	}

	if _, err := c.data.LikeContent(ctx, id); err != nil {
		return c.mutationFailed(gen, err, "Failed to like content")
	}
	return c.afterMutation(ctx, gen, "Content liked")
}

// Items returns the loaded content.
func (c *ContentList) Items() []model.ContentItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ContentItem(nil), c.items...)
}

// Categories returns the category choices.
func (c *ContentList) Categories() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.categories...)
}

// Tags returns the tag choices.
func (c *ContentList) Tags() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.tags...)
}

// Filters returns the filters of the current listing.
func (c *ContentList) Filters() model.ContentFilters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

func (c *ContentList) author(ctx context.Context) (*model.User, error) {
	if u := c.sess.CurrentUser(); u != nil {
		return u, nil
	}
	return c.sess.RefreshUser(ctx)
}

func (c *ContentList) afterMutation(ctx context.Context, gen uint64, message string) Outcome {
	n, _, ok := c.report(gen, LevelSuccess, message)
	if !ok {
		return c.stale()
	}
	out := c.load(ctx, gen, c.Filters())
	if out.State == Stale {
		return out
	}
	out.Notices = append([]Notice{n}, out.Notices...)
	return out
}

// mutationFailed keeps the current listing on screen and reports err.
func (c *ContentList) mutationFailed(gen uint64, err error, fallback string) Outcome {
	if errors.Is(err, gateway.ErrUnauthorized) {
		return c.fail(gen, err, fallback, "")
	}
	n, state, ok := c.report(gen, LevelError, remoteMessage(err, fallback))
	if !ok {
		return c.stale()
	}
	c.log.Warn().Err(err).Msg(fallback)
	return Outcome{State: state, Notices: []Notice{n}, Err: err}
}
