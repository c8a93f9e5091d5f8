// Package ratelimit paces outgoing API requests on the client side.
//
// The public API throttles aggressive clients with 429 or 403 responses.
// Spacing requests out keeps a long paginated collection under that
// threshold, so backoff only has to handle the occasional throttle.
//
// Usage:
//
//	limiter := ratelimit.NewPerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	// issue request
package ratelimit
