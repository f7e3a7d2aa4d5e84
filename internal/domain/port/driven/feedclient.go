package driven

import (
	"context"

	"github.com/ericfisherdev/timeline/internal/domain/model"
)

// FeedClient defines the driven port for reading the remote feed collections.
// The credential is forwarded as a bearer token.
type FeedClient interface {
	ListPosts(ctx context.Context, credential string) ([]model.Post, error)
	ListStories(ctx context.Context, credential string) ([]model.Story, error)
}
