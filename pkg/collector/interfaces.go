package collector

import (
	"context"

	"skytally/pkg/bluesky"
)

// BlueskyClient defines the API operations the collector needs
type BlueskyClient interface {
	SearchPostsPage(ctx context.Context, query, cursor string, limit int) (bluesky.Page[bluesky.PostView], error)
	LikesPage(ctx context.Context, uri, cursor string, limit int) (bluesky.Page[bluesky.Like], error)
	AuthorFeedPage(ctx context.Context, actor, cursor string, limit int) (bluesky.Page[bluesky.FeedViewPost], error)
	PostURLToURI(ctx context.Context, postURL string) (string, error)
}
