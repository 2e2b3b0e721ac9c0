package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/robertmeta/portal-cli/model"
)

// DataService is the client for the content and analytics service.
type DataService struct {
	client
}

// NewDataService creates a DataService for baseURL.
func NewDataService(baseURL string, opts Options) *DataService {
	return &DataService{client: newClient(baseURL, opts)}
}

// ListContent returns the content matching filters. Ordering is the
// service's default unless filters.SortBy says otherwise.
func (d *DataService) ListContent(ctx context.Context, filters model.ContentFilters) ([]model.ContentItem, error) {
	var items []model.ContentItem
	if err := d.do(ctx, http.MethodGet, "/content", filters.Encode(), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetContent returns one content item.
func (d *DataService) GetContent(ctx context.Context, id string) (*model.ContentItem, error) {
	var item model.ContentItem
	if err := d.do(ctx, http.MethodGet, "/content/"+url.PathEscape(id), "", nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetContentByAuthor returns all content written by authorID.
func (d *DataService) GetContentByAuthor(ctx context.Context, authorID string) ([]model.ContentItem, error) {
	var items []model.ContentItem
	if err := d.do(ctx, http.MethodGet, "/content/author/"+url.PathEscape(authorID), "", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateContent submits a draft. The returned item carries the
// server-assigned id.
func (d *DataService) CreateContent(ctx context.Context, draft model.ContentDraft) (*model.ContentItem, error) {
	var item model.ContentItem
	if err := d.do(ctx, http.MethodPost, "/content", "", draft, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateContent replaces the editable fields of item.ID.
func (d *DataService) UpdateContent(ctx context.Context, item model.ContentItem) (*model.ContentItem, error) {
	var updated model.ContentItem
	if err := d.do(ctx, http.MethodPut, "/content/"+url.PathEscape(item.ID), "", item, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteContent removes a content item.
func (d *DataService) DeleteContent(ctx context.Context, id string) error {
	return d.do(ctx, http.MethodDelete, "/content/"+url.PathEscape(id), "", nil, nil)
}

type likeResponse struct {
	Likes int `json:"likes"`
}

// LikeContent increments the like counter and returns the new value.
func (d *DataService) LikeContent(ctx context.Context, id string) (int, error) {
	var resp likeResponse
	if err := d.do(ctx, http.MethodPost, "/content/"+url.PathEscape(id)+"/like", "", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Likes, nil
}

// ListCategories returns the known content categories.
func (d *DataService) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := d.do(ctx, http.MethodGet, "/content/categories", "", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ListTags returns the known content tags.
func (d *DataService) ListTags(ctx context.Context) ([]string, error) {
	var tags []string
	if err := d.do(ctx, http.MethodGet, "/content/tags", "", nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// GetAnalytics returns the aggregate analytics.
func (d *DataService) GetAnalytics(ctx context.Context) (*model.Analytics, error) {
	var a model.Analytics
	if err := d.do(ctx, http.MethodGet, "/analytics", "", nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
