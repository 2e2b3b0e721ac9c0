package controller

import (
	"context"

	"github.com/robertmeta/portal-cli/model"
)

// Profile shows the logged in user and their content.
type Profile struct {
	base
	data ContentGateway

	user    *model.User
	content []model.ContentItem
}

// NewProfile creates the profile controller.
func NewProfile(d Deps) *Profile {
	c := &Profile{data: d.Data}
	c.init(d, "profile")
	return c
}

// Activate resolves the user, asking the user service when the session
// only holds a token, then loads the user's content.
func (c *Profile) Activate(ctx context.Context) Outcome {
	gen, out, ok := c.activate()
	if !ok {
		return out
	}

	user := c.sess.CurrentUser()
	if user == nil {
		u, err := c.sess.RefreshUser(ctx)
		if err != nil {
			return c.fail(gen, err, "Failed to load profile", "")
		}
		user = u
	}

	content, err := c.data.GetContentByAuthor(ctx, user.ID)
	if err != nil {
		return c.fail(gen, err, "Failed to load your content", "")
	}

	if !c.commit(gen, Ready, func() {
		c.user = user
		c.content = content
	}) {
		return c.stale()
	}
	return Outcome{State: Ready}
}

// Logout ends the session locally and sends the user to log in.
func (c *Profile) Logout() Outcome {
	if err := c.sess.Logout(); err != nil {
		c.log.Warn().Err(err).Msg("logout failed")
		n := c.notice(LevelError, "Failed to log out")
		return Outcome{State: c.State(), Notices: []Notice{n}, Err: err}
	}

	c.mu.Lock()
	c.gen++
	c.active = false
	c.state = Redirected
	c.user, c.content = nil, nil
	c.mu.Unlock()

	n := c.notice(LevelSuccess, "Logged out successfully")
	return Outcome{State: Redirected, Redirect: PathLogin, Notices: []Notice{n}}
}

// User returns the profile user.
func (c *Profile) User() *model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Content returns the user's own content.
func (c *Profile) Content() []model.ContentItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ContentItem(nil), c.content...)
}
