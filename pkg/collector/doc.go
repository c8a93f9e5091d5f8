// Package collector follows pagination cursors to gather posts, likes and
// feed entries from the Bluesky API.
//
// The core is the generic Collect loop. It requests min(page size,
// remaining) items per page and stops when:
//   - the service returns no cursor
//   - the item limit is reached
//   - a page comes back empty
//   - the page ceiling is hit (default 100 pages)
//
// A failure after at least one page keeps the partial result and marks it;
// a failure on the first page is returned to the caller.
//
// Example usage:
//
//	c := collector.New(client, cfg, logger.GetLogger())
//	result, err := c.SearchHashtag(ctx, "golang", cfg.Pagination.Limit)
//	if err != nil {
//	    return err
//	}
//	if result.Partial() {
//	    // result.Err explains why collection stopped early
//	}
package collector
