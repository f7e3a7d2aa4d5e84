package application

import (
	"context"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/timeline/internal/domain/model"
	"github.com/ericfisherdev/timeline/internal/domain/port/driven"
)

// Timeline is everything the protected feed view renders. A failure to load
// one collection leaves the other intact; the error is kept for the view.
type Timeline struct {
	Viewer     string
	Posts      []model.Post
	Stories    []model.Story
	PostsErr   error
	StoriesErr error
}

// FeedService loads the feed collections for a granted session.
type FeedService struct {
	client driven.FeedClient
	logger *slog.Logger
}

// NewFeedService creates a FeedService.
func NewFeedService(client driven.FeedClient, logger *slog.Logger) *FeedService {
	return &FeedService{
		client: client,
		logger: logger,
	}
}

// Load fetches posts and stories concurrently.
func (s *FeedService) Load(ctx context.Context, credential string) Timeline {
	tl := Timeline{Viewer: ViewerName(credential)}

	var g errgroup.Group
	g.Go(func() error {
		posts, err := s.client.ListPosts(ctx, credential)
		if err != nil {
			s.logger.Error("failed to load posts", "error", err)
			tl.PostsErr = err
			return nil
		}
		tl.Posts = posts
		return nil
	})
	g.Go(func() error {
		stories, err := s.client.ListStories(ctx, credential)
		if err != nil {
			s.logger.Error("failed to load stories", "error", err)
			tl.StoriesErr = err
			return nil
		}
		tl.Stories = stories
		return nil
	})
	_ = g.Wait()

	return tl
}

// ViewerName returns the subject claim of a JWT credential for display, or ""
// when the credential is not a JWT or carries no subject. The signature is not
// checked; nothing may be decided on the result.
func ViewerName(credential string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}
