package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/timeline/internal/domain/model"
)

// postPayload mirrors the remote post record.
type postPayload struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	UserID      int64  `json:"user_id"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
	Likes       int    `json:"likes"`
}

// storyPayload mirrors the remote story record.
type storyPayload struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	ImageURL string `json:"image_url"`
}

// ListPosts fetches every post in the feed.
func (c *Client) ListPosts(ctx context.Context, credential string) ([]model.Post, error) {
	var payload []postPayload
	if err := c.getJSON(ctx, postsPath, credential, &payload); err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	posts := make([]model.Post, 0, len(payload))
	for _, p := range payload {
		posts = append(posts, model.Post{
			ID:          p.ID,
			Username:    p.Username,
			UserID:      p.UserID,
			ImageURL:    p.ImageURL,
			Description: p.Description,
			Likes:       p.Likes,
		})
	}
	return posts, nil
}

// ListStories fetches every story in the feed.
func (c *Client) ListStories(ctx context.Context, credential string) ([]model.Story, error) {
	var payload []storyPayload
	if err := c.getJSON(ctx, storiesPath, credential, &payload); err != nil {
		return nil, fmt.Errorf("listing stories: %w", err)
	}

	stories := make([]model.Story, 0, len(payload))
	for _, s := range payload {
		stories = append(stories, model.Story{
			ID:       s.ID,
			Username: s.Username,
			ImageURL: s.ImageURL,
		})
	}
	return stories, nil
}

// getJSON performs a cached GET and decodes the body into v. Transport errors
// and 5xx responses are retried with exponential backoff until retryLimit
// elapses; other failures are returned immediately.
func (c *Client) getJSON(ctx context.Context, path, credential string, v any) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = c.retryLimit

	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			return c.getJSONOnce(ctx, path, credential, v)
		},
		backoff.WithContext(b, ctx),
		func(err error, next time.Duration) {
			c.logger.Warn("feed request failed, retrying",
				"path", path,
				"attempt", attempt,
				"next", next,
				"error", err,
			)
		},
	)
}

func (c *Client) getJSONOnce(ctx context.Context, path, credential string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.cached.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return backoff.Permanent(fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(v); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}

	if resp.Header.Get(httpcache.XFromCache) != "" {
		c.logger.Debug("feed response served from cache", "path", path)
	}
	return nil
}
