package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/media"
)

// ListImages fetches one page of images. params is the filter container's
// BuildRequestParams output, passed through unchanged.
func (c *Client) ListImages(ctx context.Context, tenant string, params url.Values) (media.Page, error) {
	if tenant == "" {
		tenant = c.tenant
	}
	resp, err := c.request(ctx, tenant, http.MethodGet, "/images", params, nil)
	if err != nil {
		return media.Page{}, fmt.Errorf("list images: %w", err)
	}
	var page media.Page
	if err := decode(resp, &page); err != nil {
		return media.Page{}, fmt.Errorf("list images: %w", err)
	}
	log.Debug().Int("count", len(page.Items)).Int("total", page.Total).Msg("Images listed")
	return page, nil
}

// GetImage fetches the detail record for one item.
func (c *Client) GetImage(ctx context.Context, id int64) (media.Item, error) {
	var it media.Item
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/images/%d", id), nil, nil, &it); err != nil {
		return media.Item{}, fmt.Errorf("get image %d: %w", id, err)
	}
	return it, nil
}

// GetFullImage downloads full-resolution content. Cancelling ctx aborts the
// transfer; the editor does this when the displayed item changes.
func (c *Client) GetFullImage(ctx context.Context, id int64) ([]byte, string, error) {
	path := fmt.Sprintf("/images/%d/full", id)
	resp, err := c.request(ctx, c.tenant, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, "", fmt.Errorf("get full image %d: %w", id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFullImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("get full image %d: read: %w", id, err)
	}
	if len(data) > maxFullImageBytes {
		return nil, "", fmt.Errorf("get full image %d: exceeds %d bytes", id, maxFullImageBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// GetPlaybackURL returns a streamable URL for a video item.
func (c *Client) GetPlaybackURL(ctx context.Context, id int64) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/images/%d/playback", id), nil, nil, &out); err != nil {
		return "", fmt.Errorf("get playback url %d: %w", id, err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("get playback url %d: empty url", id)
	}
	return out.URL, nil
}

// AddPermatag records an active tag on an item.
func (c *Client) AddPermatag(ctx context.Context, id int64, category, keyword string) error {
	return c.postPermatag(ctx, id, media.Permatag{Category: category, Keyword: keyword, Signum: media.SignumActive})
}

// RemovePermatag records a negative marker for the tag. The backend keeps the
// log, so removal is an append, not a delete.
func (c *Client) RemovePermatag(ctx context.Context, id int64, category, keyword string) error {
	return c.postPermatag(ctx, id, media.Permatag{Category: category, Keyword: keyword, Signum: media.SignumRemoved})
}

func (c *Client) postPermatag(ctx context.Context, id int64, tag media.Permatag) error {
	if tag.Category == "" || tag.Keyword == "" {
		return fmt.Errorf("permatag on %d: category and keyword are required", id)
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/images/%d/permatags", id), nil, tag, nil); err != nil {
		return fmt.Errorf("permatag on %d: %w", id, err)
	}
	return nil
}

// SetRating sets or clears (nil) the rating of an item.
func (c *Client) SetRating(ctx context.Context, id int64, rating *int) error {
	if rating != nil && !media.ValidRating(*rating) {
		return fmt.Errorf("set rating %d: rating %d out of range", id, *rating)
	}
	body := struct {
		Rating *int `json:"rating"`
	}{rating}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/images/%d/rating", id), nil, body, nil); err != nil {
		return fmt.Errorf("set rating %d: %w", id, err)
	}
	return nil
}
