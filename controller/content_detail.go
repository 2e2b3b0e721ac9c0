package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/robertmeta/portal-cli/gateway"
	"github.com/robertmeta/portal-cli/model"
)

// ContentDetail drives the single-item screen.
type ContentDetail struct {
	base
	data  ContentGateway
	users UserGateway

	item   *model.ContentItem
	author *model.User
}

// NewContentDetail creates the content detail controller.
func NewContentDetail(d Deps) *ContentDetail {
	c := &ContentDetail{data: d.Data, users: d.Users}
	c.init(d, "content_detail")
	return c
}

// Activate loads item id and its author. Any failure to load the item,
// including a missing id, sends the user back to the content list with
// a single error notice.
func (c *ContentDetail) Activate(ctx context.Context, id string) Outcome {
	gen, out, ok := c.activate()
	if !ok {
		return out
	}

	c.mu.Lock()
	c.item, c.author = nil, nil
	c.mu.Unlock()

	return c.load(ctx, gen, id)
}

func (c *ContentDetail) load(ctx context.Context, gen uint64, id string) Outcome {
	item, err := c.data.GetContent(ctx, id)
	if err != nil {
		msg := "Failed to load content details"
		if errors.Is(err, gateway.ErrNotFound) {
			msg = "Content not found"
		}
		return c.fail(gen, err, msg, PathContent)
	}

	author := c.lookupAuthor(ctx, item.AuthorID)

	if !c.commit(gen, Ready, func() {
		c.item = item
		c.author = author
	}) {
		return c.stale()
	}
	return Outcome{State: Ready}
}

// lookupAuthor asks the user service for the author and falls back to
// a placeholder so the item still renders.
func (c *ContentDetail) lookupAuthor(ctx context.Context, authorID string) *model.User {
	if c.users != nil {
		u, err := c.users.GetUser(ctx, authorID)
		if err == nil {
			return u
		}
		c.log.Debug().Err(err).Str("author_id", authorID).Msg("author lookup failed")
	}
	return &model.User{
		ID:       authorID,
		Username: "user" + authorID,
		Name:     "User " + authorID,
	}
}

// Like increments the like counter and re-fetches the item.
func (c *ContentDetail) Like(ctx context.Context) Outcome {
	if out, ok := c.requireSession(); !ok {
		return out
	}
	gen, active := c.current()
	item := c.Item()
	if !active || item == nil {
		return c.stale()
	}

	if _, err := c.data.LikeContent(ctx, item.ID); err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) || errors.Is(err, gateway.ErrNotFound) {
			return c.fail(gen, err, "Failed to like content", PathContent)
		}
		return c.mutationFailed(gen, err, "Failed to like content")
	}

	n, _, ok := c.report(gen, LevelSuccess, "Content liked")
	if !ok {
		return c.stale()
	}
	out := c.load(ctx, gen, item.ID)
	if out.State == Stale {
		return out
	}
	out.Notices = append([]Notice{n}, out.Notices...)
	return out
}

// Delete removes the item after confirmation and returns to the list.
func (c *ContentDetail) Delete(ctx context.Context, confirm Confirm) Outcome {
	if out, ok := c.requireSession(); !ok {
		return out
	}
	gen, active := c.current()
	item := c.Item()
	if !active || item == nil {
		return c.stale()
	}

	if confirm == nil || !confirm(fmt.Sprintf("Delete %q? This cannot be undone.", item.Title)) {
		return Outcome{State: c.State()}
	}

	if err := c.data.DeleteContent(ctx, item.ID); err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			return c.fail(gen, err, "Failed to delete content", "")
		}
		return c.mutationFailed(gen, err, "Failed to delete content")
	}

	if !c.commit(gen, Redirected, func() { c.item, c.author = nil, nil }) {
		return c.stale()
	}
	n := c.notice(LevelSuccess, "Content deleted successfully")
	return Outcome{State: Redirected, Redirect: PathContent, Notices: []Notice{n}}
}

// mutationFailed keeps the item on screen and reports err.
func (c *ContentDetail) mutationFailed(gen uint64, err error, fallback string) Outcome {
	n, state, ok := c.report(gen, LevelError, remoteMessage(err, fallback))
	if !ok {
		return c.stale()
	}
	c.log.Warn().Err(err).Msg(fallback)
	return Outcome{State: state, Notices: []Notice{n}, Err: err}
}

// Item returns the loaded item.
func (c *ContentDetail) Item() *model.ContentItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.item == nil {
		return nil
	}
	item := *c.item
	return &item
}

// Author returns the loaded author, possibly a placeholder.
func (c *ContentDetail) Author() *model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.author == nil {
		return nil
	}
	a := *c.author
	return &a
}
