package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentDraft_Validation(t *testing.T) {
	tests := []struct {
		name    string
		draft   ContentDraft
		wantErr bool
	}{
		{
			name:    "valid draft",
			draft:   ContentDraft{Title: "Hello", Content: "World"},
			wantErr: false,
		},
		{
			name:    "missing title",
			draft:   ContentDraft{Content: "World"},
			wantErr: true,
		},
		{
			name:    "missing content",
			draft:   ContentDraft{Title: "Hello"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUserDraft_Validation(t *testing.T) {
	valid := UserDraft{Username: "ann", Email: "ann@example.com", Name: "Ann", Password: "pw"}
	assert.NoError(t, valid.Validate())

	noUser := valid
	noUser.Username = ""
	assert.Error(t, noUser.Validate())

	noEmail := valid
	noEmail.Email = ""
	assert.Error(t, noEmail.Validate())

	noPassword := valid
	noPassword.Password = ""
	assert.Error(t, noPassword.Validate())
}

func TestContentItem_HasTag(t *testing.T) {
	item := ContentItem{Tags: []string{"go", "cli", "go"}}

	tests := []struct {
		tag    string
		expect bool
	}{
		{"go", true},
		{"cli", true},
		{"rust", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.expect, item.HasTag(tt.tag))
		})
	}
}

func TestContentItem_Created(t *testing.T) {
	item := ContentItem{CreatedAt: "2025-01-01T00:00:00"}
	got, err := item.Created()
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year())

	item.CreatedAt = "2025-03-04T05:06:07Z"
	got, err = item.Created()
	require.NoError(t, err)
	assert.Equal(t, time.March, got.Month())

	item.CreatedAt = "yesterday"
	_, err = item.Created()
	assert.Error(t, err)
}

func TestContentItem_ApplyKeepsServerFields(t *testing.T) {
	item := ContentItem{ID: "7", Title: "Old", Content: "x", AuthorID: "1", CreatedAt: "2025-01-01T00:00:00", Views: 10, Likes: 3}

	item.Apply(ContentDraft{Title: "New", Content: "y", Tags: []string{"a"}, Featured: true})

	assert.Equal(t, "7", item.ID)
	assert.Equal(t, "New", item.Title)
	assert.Equal(t, "y", item.Content)
	assert.Equal(t, "1", item.AuthorID)
	assert.Equal(t, "2025-01-01T00:00:00", item.CreatedAt)
	assert.Equal(t, 10, item.Views)
	assert.Equal(t, 3, item.Likes)
	assert.True(t, item.Featured)
}

func TestToken_Type(t *testing.T) {
	assert.Equal(t, "bearer", Token{AccessToken: "abc"}.Type())
	assert.Equal(t, "mac", Token{AccessToken: "abc", TokenType: "mac"}.Type())
}

func TestSession_IsAuthenticated(t *testing.T) {
	var nilSession *Session
	assert.False(t, nilSession.IsAuthenticated())
	assert.False(t, (&Session{}).IsAuthenticated())
	assert.True(t, (&Session{Token: "t"}).IsAuthenticated())
}

func TestAnalytics_Summarize(t *testing.T) {
	a := Analytics{
		DailyVisits:    []DailyVisits{{Date: "2025-01-01", Count: 100}, {Date: "2025-01-02", Count: 250}},
		UserActivity:   []UserActivity{{UserID: "1", Actions: 4}, {UserID: "2", Actions: 9}, {UserID: "3", Actions: 1}},
		PopularContent: []PopularContent{{ID: "1", Title: "a", Views: 40}, {ID: "2", Title: "b", Views: 60}},
	}

	s := a.Summarize()
	assert.Equal(t, 350, s.TotalVisits)
	assert.Equal(t, 3, s.ActiveUsers)
	assert.Equal(t, 2, s.PopularCount)
	assert.Equal(t, 100, s.TotalViews)

	assert.Equal(t, AnalyticsSummary{}, (&Analytics{}).Summarize())
}
