package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// List is a user-curated collection of items.
type List struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	ItemCount   int        `json:"item_count"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ListItem is one entry of a list.
type ListItem struct {
	ID           string     `json:"id"`
	PhotoID      int64      `json:"photo_id"`
	Filename     string     `json:"filename,omitempty"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	AddedAt      *time.Time `json:"added_at,omitempty"`
}

// ListUpdate holds the editable list fields. Nil fields are left unchanged.
type ListUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// KeywordCategory groups the keywords available for tagging.
type KeywordCategory struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// ListLists returns the caller's lists.
func (c *Client) ListLists(ctx context.Context) ([]List, error) {
	var out []List
	if err := c.do(ctx, http.MethodGet, "/lists", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	return out, nil
}

// CreateList creates a list with the given title.
func (c *Client) CreateList(ctx context.Context, title string) (List, error) {
	if title == "" {
		return List{}, fmt.Errorf("create list: title is required")
	}
	var out List
	body := map[string]string{"title": title}
	if err := c.do(ctx, http.MethodPost, "/lists", nil, body, &out); err != nil {
		return List{}, fmt.Errorf("create list: %w", err)
	}
	return out, nil
}

// UpdateList edits a list's metadata.
func (c *Client) UpdateList(ctx context.Context, listID string, upd ListUpdate) (List, error) {
	var out List
	if err := c.do(ctx, http.MethodPatch, "/lists/"+url.PathEscape(listID), nil, upd, &out); err != nil {
		return List{}, fmt.Errorf("update list %s: %w", listID, err)
	}
	return out, nil
}

// GetListItems returns the entries of a list.
func (c *Client) GetListItems(ctx context.Context, listID string) ([]ListItem, error) {
	var out []ListItem
	if err := c.do(ctx, http.MethodGet, "/lists/"+url.PathEscape(listID)+"/items", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get list items %s: %w", listID, err)
	}
	return out, nil
}

// AddToList appends one item to a list.
func (c *Client) AddToList(ctx context.Context, listID string, photoID int64) (ListItem, error) {
	var out ListItem
	body := map[string]int64{"photo_id": photoID}
	if err := c.do(ctx, http.MethodPost, "/lists/"+url.PathEscape(listID)+"/items", nil, body, &out); err != nil {
		return ListItem{}, fmt.Errorf("add %d to list %s: %w", photoID, listID, err)
	}
	return out, nil
}

// RemoveFromList deletes one entry from a list.
func (c *Client) RemoveFromList(ctx context.Context, listID, itemID string) error {
	path := "/lists/" + url.PathEscape(listID) + "/items/" + url.PathEscape(itemID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("remove %s from list %s: %w", itemID, listID, err)
	}
	return nil
}

// GetKeywordCategories returns the tenant's keyword vocabulary.
func (c *Client) GetKeywordCategories(ctx context.Context) ([]KeywordCategory, error) {
	var out []KeywordCategory
	if err := c.do(ctx, http.MethodGet, "/keywords/categories", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get keyword categories: %w", err)
	}
	return out, nil
}

// ActivityEvent is one entry of the audit log.
type ActivityEvent struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	ImageID   *int64    `json:"image_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityQuery filters the audit log.
type ActivityQuery struct {
	Limit  int
	Offset int
	Actor  string
	Action string
}

func (q ActivityQuery) values() url.Values {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	v.Set("offset", strconv.Itoa(max(q.Offset, 0)))
	if q.Actor != "" {
		v.Set("actor", q.Actor)
	}
	if q.Action != "" {
		v.Set("action", q.Action)
	}
	return v
}

// ActivityPage is one page of audit events.
type ActivityPage struct {
	Events []ActivityEvent `json:"events"`
	Total  int             `json:"total"`
}

// ListActivity returns audit events matching q.
func (c *Client) ListActivity(ctx context.Context, q ActivityQuery) (ActivityPage, error) {
	var out ActivityPage
	if err := c.do(ctx, http.MethodGet, "/activity", q.values(), nil, &out); err != nil {
		return ActivityPage{}, fmt.Errorf("list activity: %w", err)
	}
	return out, nil
}
