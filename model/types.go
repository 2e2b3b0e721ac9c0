// Package model defines the core data structures for portal-cli.
package model

import (
	"errors"
	"time"
)

// DefaultTokenType is assumed when the user service omits token_type.
const DefaultTokenType = "bearer"

// Content statuses understood by the data service.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// ContentItem is a piece of content owned by the data service.
// The client only ever holds a possibly-stale copy.
type ContentItem struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	AuthorID  string   `json:"author_id"`
	CreatedAt string   `json:"created_at"`
	Category  string   `json:"category,omitempty"`
	Tags      []string `json:"tags"`
	Status    string   `json:"status,omitempty"`
	Featured  bool     `json:"featured"`
	Views     int      `json:"views"`
	Likes     int      `json:"likes"`
}

// HasTag checks if the item carries the specified tag.
func (c *ContentItem) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Created parses CreatedAt. The data service emits RFC3339 or a bare
// ISO timestamp without zone.
func (c *ContentItem) Created() (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, c.CreatedAt); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", c.CreatedAt)
}

// Draft returns the client-editable fields of the item.
func (c *ContentItem) Draft() ContentDraft {
	return ContentDraft{
		Title:     c.Title,
		Content:   c.Content,
		AuthorID:  c.AuthorID,
		CreatedAt: c.CreatedAt,
		Category:  c.Category,
		Tags:      c.Tags,
		Status:    c.Status,
		Featured:  c.Featured,
	}
}

// Apply copies editable fields from d onto the item. ID, Views and
// Likes are server-owned and left alone.
func (c *ContentItem) Apply(d ContentDraft) {
	c.Title = d.Title
	c.Content = d.Content
	c.Category = d.Category
	c.Tags = d.Tags
	c.Status = d.Status
	c.Featured = d.Featured
	if d.AuthorID != "" {
		c.AuthorID = d.AuthorID
	}
}

// ContentDraft is the payload a client submits to create content.
type ContentDraft struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	AuthorID  string   `json:"author_id"`
	CreatedAt string   `json:"created_at"`
	Category  string   `json:"category,omitempty"`
	Tags      []string `json:"tags"`
	Status    string   `json:"status,omitempty"`
	Featured  bool     `json:"featured"`
}

// Validate checks if the draft has required fields.
func (d *ContentDraft) Validate() error {
	if d.Title == "" {
		return errors.New("content title is required")
	}
	if d.Content == "" {
		return errors.New("content body is required")
	}
	return nil
}

// User is an account record owned by the user service.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// UserDraft is the registration payload.
type UserDraft struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Validate checks if the draft has required fields.
func (d *UserDraft) Validate() error {
	switch {
	case d.Username == "":
		return errors.New("username is required")
	case d.Email == "":
		return errors.New("email is required")
	case d.Password == "":
		return errors.New("password is required")
	}
	return nil
}

// Token is the login response of the user service.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Type returns TokenType, falling back to DefaultTokenType.
func (t Token) Type() string {
	if t.TokenType == "" {
		return DefaultTokenType
	}
	return t.TokenType
}

// Session is the locally held authentication state.
type Session struct {
	Token       string `json:"token"`
	TokenType   string `json:"token_type"`
	CurrentUser *User  `json:"current_user,omitempty"`
}

// IsAuthenticated returns true if the session holds a token.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Token != ""
}
