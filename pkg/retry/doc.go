// Package retry provides bounded retries with exponential backoff for calls
// to the Bluesky API.
//
// Only throttling (429/403) and network failures are retried. Hard API
// errors and undecodable responses return immediately so that permanent
// problems are not hidden behind a series of sleeps.
//
// When an error carries a server-suggested wait (Retry-After or
// RateLimit-Reset) that wait is used instead of the computed backoff, still
// bounded by the backoff cap.
//
// Basic usage:
//
//	cfg := retry.FromConfig(appCfg.Retry, logger.GetLogger())
//	err := retry.Do(ctx, func() error {
//	    return client.getJSON(ctx, url, &out)
//	}, cfg)
//
// Tests substitute Config.Sleep to observe delays without waiting.
package retry
