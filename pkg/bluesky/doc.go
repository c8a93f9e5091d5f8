// Package bluesky provides a client for the public Bluesky AppView XRPC API.
//
// This package includes:
//   - A paced HTTP client that classifies responses into throttling, hard
//     API, network and parsing errors (see skytally/pkg/errors)
//   - Ordered endpoint fallback, each endpoint with its own retry budget
//   - Page normalisation across methods (items field, cursor or nextCursor)
//   - Models for posts, feed entries, likes and profiles
//   - Helpers for handles, hashtags and post links
//
// Example usage:
//
//	client := bluesky.NewClient(cfg, logger.GetLogger())
//
//	page, err := client.SearchPostsPage(ctx, bluesky.NormalizeHashtag("golang"), "", 100)
//	if err != nil {
//	    switch errors.KindOf(err) {
//	    case errors.KindThrottled:
//	        // every endpoint kept rate limiting
//	    case errors.KindConnectivity:
//	        // every endpoint failed
//	    }
//	}
//
//	uri, err := client.PostURLToURI(ctx, "https://bsky.app/profile/alice.bsky.social/post/3kabc")
package bluesky
