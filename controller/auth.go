package controller

import (
	"context"
	"errors"
	"strings"

	"github.com/robertmeta/portal-cli/model"
)

// Login drives the sign-in screen.
type Login struct {
	base
}

// NewLogin creates the login controller.
func NewLogin(d Deps) *Login {
	c := &Login{}
	c.init(d, "login")
	return c
}

// Activate shows the form, or skips it when already signed in.
func (c *Login) Activate(ctx context.Context) Outcome {
	c.activatePublic()
	if c.sess.IsAuthenticated() {
		c.mu.Lock()
		c.state = Redirected
		c.mu.Unlock()
		return Outcome{State: Redirected, Redirect: PathDashboard}
	}
	return Outcome{State: Ready}
}

// Submit signs in and heads to the dashboard.
func (c *Login) Submit(ctx context.Context, username, password string) Outcome {
	gen := c.activatePublic()

	if strings.TrimSpace(username) == "" || password == "" {
		err := errors.New("username and password are required")
		c.commit(gen, Failed, nil)
		n := c.notice(LevelError, "Please enter username and password")
		return Outcome{State: Failed, Notices: []Notice{n}, Err: err}
	}

	if _, err := c.sess.Login(ctx, username, password); err != nil {
		if !c.commit(gen, Failed, nil) {
			return c.stale()
		}
		c.log.Warn().Err(err).Str("user", username).Msg("login failed")
		n := c.notice(LevelError, remoteMessage(err, "Login failed"))
		return Outcome{State: Failed, Notices: []Notice{n}, Err: err}
	}

	if !c.commit(gen, Redirected, nil) {
		return c.stale()
	}
	n := c.notice(LevelSuccess, "Login successful")
	return Outcome{State: Redirected, Redirect: PathDashboard, Notices: []Notice{n}}
}

// Register drives the account creation screen.
type Register struct {
	base
	users UserGateway

	created *model.User
}

// NewRegister creates the registration controller.
func NewRegister(d Deps) *Register {
	c := &Register{users: d.Users}
	c.init(d, "register")
	return c
}

// Activate shows the form.
func (c *Register) Activate(ctx context.Context) Outcome {
	c.activatePublic()
	return Outcome{State: Ready}
}

// Submit creates the account and sends the user to log in.
func (c *Register) Submit(ctx context.Context, draft model.UserDraft) Outcome {
	gen := c.activatePublic()

	if err := draft.Validate(); err != nil {
		c.commit(gen, Failed, nil)
		n := c.notice(LevelError, err.Error())
		return Outcome{State: Failed, Notices: []Notice{n}, Err: err}
	}

	user, err := c.users.CreateUser(ctx, draft)
	if err != nil {
		if !c.commit(gen, Failed, nil) {
			return c.stale()
		}
		c.log.Warn().Err(err).Str("user", draft.Username).Msg("registration failed")
		n := c.notice(LevelError, remoteMessage(err, "Failed to create account"))
		return Outcome{State: Failed, Notices: []Notice{n}, Err: err}
	}

	if !c.commit(gen, Redirected, func() { c.created = user }) {
		return c.stale()
	}
	n := c.notice(LevelSuccess, "Account created, please log in")
	return Outcome{State: Redirected, Redirect: PathLogin, Notices: []Notice{n}}
}

// Created returns the account made by the last successful Submit.
func (c *Register) Created() *model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}
