package collector

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"skytally/pkg/bluesky"
	"skytally/pkg/config"
	errs "skytally/pkg/errors"
	"skytally/pkg/logger"
)

const (
	// DefaultMaxPages guards against a service that returns a cursor forever
	DefaultMaxPages = 100
)

// StopReason records why a collection ended
type StopReason string

const (
	StopEndOfResults StopReason = "end_of_results"
	StopLimit        StopReason = "limit_reached"
	StopMaxPages     StopReason = "page_ceiling"
	StopEmptyPage    StopReason = "empty_page"
	StopPartial      StopReason = "partial_failure"
)

// PageFunc fetches one page starting at cursor with at most limit items
type PageFunc[T any] func(ctx context.Context, cursor string, limit int) (bluesky.Page[T], error)

// Options bounds a single collection run
type Options struct {
	PageSize int
	MaxPages int
	Logger   logger.Logger
}

// Result is the outcome of a collection run
type Result[T any] struct {
	Items []T
	Pages int
	Stop  StopReason
	// Err is the failure that cut a partial collection short
	Err error
}

// Partial reports whether the run ended on an error after some pages succeeded
func (r *Result[T]) Partial() bool {
	return r.Stop == StopPartial
}

// Collect follows cursors, accumulating at most limit items. A failure on
// the first page is returned; a later failure ends the run and keeps what
// was collected.
func Collect[T any](ctx context.Context, fetch PageFunc[T], limit int, opts Options) (*Result[T], error) {
	if limit <= 0 {
		return nil, errs.Validation("limit must be positive, got %d", limit)
	}
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > bluesky.MaxPageSize {
		pageSize = bluesky.MaxPageSize
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	result := &Result[T]{Items: make([]T, 0, min(limit, pageSize))}
	cursor := ""

	for {
		remaining := limit - len(result.Items)
		if remaining <= 0 {
			result.Stop = StopLimit
			break
		}
		if result.Pages >= maxPages {
			log.WarnWithFields("page ceiling reached", map[string]interface{}{
				"max_pages": maxPages,
				"items":     len(result.Items),
			})
			result.Stop = StopMaxPages
			break
		}

		page, err := fetch(ctx, cursor, min(pageSize, remaining))
		if err != nil {
			if result.Pages == 0 {
				return nil, err
			}
			log.WarnWithFields("collection stopped early, keeping partial results", map[string]interface{}{
				"pages": result.Pages,
				"items": len(result.Items),
				"error": err.Error(),
			})
			result.Stop = StopPartial
			result.Err = err
			break
		}
		result.Pages++

		if len(page.Items) == 0 && page.Dropped == 0 {
			result.Stop = StopEmptyPage
			break
		}

		items := page.Items
		if len(items) > remaining {
			items = items[:remaining]
		}
		result.Items = append(result.Items, items...)
		logger.LogPage(log, result.Pages, len(items), len(result.Items), page.Cursor)

		if page.Cursor == "" {
			result.Stop = StopEndOfResults
			break
		}
		cursor = page.Cursor
	}

	return result, nil
}

// Collector runs the supported queries against a Bluesky client
type Collector struct {
	client   BlueskyClient
	pageSize int
	maxPages int
	logger   logger.Logger
}

// New creates a collector using the pagination settings of cfg
func New(client BlueskyClient, cfg *config.Config, log logger.Logger) *Collector {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Collector{
		client:   client,
		pageSize: cfg.Pagination.PageSize,
		maxPages: cfg.Pagination.MaxPages,
		logger:   log,
	}
}

// options tags the run with a fresh run id
func (c *Collector) options(query string, fields map[string]interface{}) Options {
	runFields := map[string]interface{}{
		"run_id": uuid.NewString(),
		"query":  query,
	}
	for k, v := range fields {
		runFields[k] = v
	}
	return Options{
		PageSize: c.pageSize,
		MaxPages: c.maxPages,
		Logger:   c.logger.WithFields(runFields),
	}
}

func finish[T any](log logger.Logger, result *Result[T]) {
	log.InfoWithFields("collection finished", map[string]interface{}{
		"items": len(result.Items),
		"pages": result.Pages,
		"stop":  string(result.Stop),
	})
}

// SearchHashtag collects posts tagged with tag, newest first
func (c *Collector) SearchHashtag(ctx context.Context, tag string, limit int) (*Result[bluesky.PostView], error) {
	query := bluesky.NormalizeHashtag(tag)
	if query == "" {
		return nil, errs.Validation("hashtag is empty")
	}

	opts := c.options("hashtag", map[string]interface{}{"tag": query})
	opts.Logger.InfoWithFields("collecting hashtag posts", map[string]interface{}{"limit": limit})

	result, err := Collect(ctx, func(ctx context.Context, cursor string, n int) (bluesky.Page[bluesky.PostView], error) {
		return c.client.SearchPostsPage(ctx, query, cursor, n)
	}, limit, opts)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", query, err)
	}

	finish(opts.Logger, result)
	return result, nil
}

// PostLikes collects the likes of the post behind a bsky.app link
func (c *Collector) PostLikes(ctx context.Context, postURL string, limit int) (*Result[bluesky.Like], error) {
	if _, _, err := bluesky.ParsePostURL(postURL); err != nil {
		return nil, err
	}

	uri, err := c.client.PostURLToURI(ctx, postURL)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", postURL, err)
	}

	opts := c.options("likes", map[string]interface{}{"uri": uri})
	opts.Logger.InfoWithFields("collecting post likes", map[string]interface{}{"limit": limit})

	result, err := Collect(ctx, func(ctx context.Context, cursor string, n int) (bluesky.Page[bluesky.Like], error) {
		return c.client.LikesPage(ctx, uri, cursor, n)
	}, limit, opts)
	if err != nil {
		return nil, fmt.Errorf("likes of %s: %w", uri, err)
	}

	finish(opts.Logger, result)
	return result, nil
}

// AuthorFeed collects the feed of an account by handle or DID
func (c *Collector) AuthorFeed(ctx context.Context, handle string, limit int) (*Result[bluesky.FeedViewPost], error) {
	actor := bluesky.SanitizeHandle(handle)
	if actor == "" {
		return nil, errs.Validation("handle is empty")
	}
	if !bluesky.IsDID(actor) && !bluesky.IsValidHandle(actor) {
		return nil, errs.Validation("invalid handle %q", handle)
	}

	opts := c.options("author_feed", map[string]interface{}{"actor": actor})
	opts.Logger.InfoWithFields("collecting author feed", map[string]interface{}{"limit": limit})

	result, err := Collect(ctx, func(ctx context.Context, cursor string, n int) (bluesky.Page[bluesky.FeedViewPost], error) {
		return c.client.AuthorFeedPage(ctx, actor, cursor, n)
	}, limit, opts)
	if err != nil {
		return nil, fmt.Errorf("feed of %s: %w", actor, err)
	}

	finish(opts.Logger, result)
	return result, nil
}
