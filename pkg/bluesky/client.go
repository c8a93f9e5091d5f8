package bluesky

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"skytally/pkg/config"
	errs "skytally/pkg/errors"
	"skytally/pkg/logger"
	"skytally/pkg/ratelimit"
	"skytally/pkg/retry"
)

const bodyPreviewLimit = 200

// Client talks to the public Bluesky AppView over XRPC, falling back
// through an ordered list of endpoints
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	endpoints  []string
	embedURL   string
	limiter    ratelimit.Limiter
	retry      config.RetryConfig
	sleep      retry.Sleeper
	logger     logger.Logger
	now        func() time.Time
}

// NewClient creates a client from the API, retry and rate limit settings
func NewClient(cfg *config.Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	endpoints := cfg.API.Endpoints
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints()
	}
	embedURL := cfg.API.EmbedURL
	if embedURL == "" {
		embedURL = EmbedURL
	}

	limiter := ratelimit.NewPerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)
	log.DebugWithFields("client configured", map[string]interface{}{
		"endpoints":    len(endpoints),
		"timeout":      cfg.API.Timeout.String(),
		"max_attempts": cfg.Retry.MaxAttempts,
		"pacing":       limiter.Interval().String(),
	})

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.API.Timeout,
		},
		headers: map[string]string{
			"User-Agent": cfg.API.UserAgent,
			"Accept":     "application/json",
		},
		endpoints: append([]string(nil), endpoints...),
		embedURL:  embedURL,
		limiter:   limiter,
		retry:     cfg.Retry,
		sleep:     retry.Wait,
		logger:    log,
		now:       time.Now,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHTTPClient replaces the underlying HTTP client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// SetSleeper replaces the backoff sleeper
func (c *Client) SetSleeper(s retry.Sleeper) {
	c.sleep = s
}

// SetLimiter replaces the request pacing limiter
func (c *Client) SetLimiter(l ratelimit.Limiter) {
	c.limiter = l
}

// Endpoints returns the ordered endpoint list
func (c *Client) Endpoints() []string {
	return append([]string(nil), c.endpoints...)
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errs.Error{
			Kind:     errs.KindNetwork,
			Message:  "request failed",
			Endpoint: req.URL.Host,
			Err:      err,
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// getJSON performs one paced GET and decodes the JSON response into target
func (c *Client) getJSON(ctx context.Context, rawURL string, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// the limiter refuses waits that would outlive the deadline
		return fmt.Errorf("request pacing: %v: %w", err, context.DeadlineExceeded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errs.Validation("failed to create request for %q: %v", rawURL, err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.Error{
			Kind:     errs.KindNetwork,
			Message:  "failed to read response body",
			Code:     resp.StatusCode,
			Endpoint: req.URL.Host,
			Err:      err,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview(body),
		})
		return &errs.Error{
			Kind:     errs.KindParsing,
			Message:  "failed to parse JSON",
			Code:     resp.StatusCode,
			Endpoint: req.URL.Host,
			Err:      err,
		}
	}

	return nil
}

// xrpcError is the error body returned by XRPC services
type xrpcError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// checkResponseStatus classifies non-2xx responses
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	host := ""
	if resp.Request != nil && resp.Request.URL != nil {
		host = resp.Request.URL.Host
	}

	if errs.IsThrottleStatus(resp.StatusCode) {
		return &errs.Error{
			Kind:       errs.KindThrottled,
			Message:    "rate limit exceeded",
			Code:       resp.StatusCode,
			Endpoint:   host,
			RetryAfter: parseRetryAfter(resp.Header, c.now()),
		}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := fmt.Sprintf("unexpected status code %d", resp.StatusCode)

	var xe xrpcError
	if json.Unmarshal(body, &xe) == nil && (xe.Error != "" || xe.Message != "") {
		message = fmt.Sprintf("%s: %s", xe.Error, xe.Message)
	} else if len(body) > 0 {
		message = fmt.Sprintf("%s: %s", message, preview(body))
	}

	c.logger.WarnWithFields("API error", map[string]interface{}{
		"status":   resp.StatusCode,
		"endpoint": host,
		"message":  message,
	})

	return &errs.Error{
		Kind:     errs.KindAPI,
		Message:  message,
		Code:     resp.StatusCode,
		Endpoint: host,
	}
}

// parseRetryAfter reads the wait suggested by the server. Retry-After may be
// seconds or an HTTP date; RateLimit-Reset is a unix timestamp.
func parseRetryAfter(h http.Header, now time.Time) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if t, err := http.ParseTime(v); err == nil {
			if d := t.Sub(now); d > 0 {
				return d
			}
		}
	}

	if v := h.Get("RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d := time.Unix(epoch, 0).Sub(now); d > 0 {
				return d
			}
		}
	}

	return 0
}

// preview shortens body for logs and error messages without splitting a
// multi-byte character
func preview(body []byte) string {
	s := string(body)
	if len(s) <= bodyPreviewLimit {
		return s
	}
	n := bodyPreviewLimit
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// retryConfig builds the per-endpoint retry policy
func (c *Client) retryConfig(endpoint string) *retry.Config {
	cfg := retry.FromConfig(c.retry, c.logger.WithField("endpoint", endpoint))
	cfg.Sleep = c.sleep
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		var apiErr *errs.Error
		if stderrors.As(err, &apiErr) && apiErr.Kind == errs.KindThrottled {
			logger.LogThrottle(c.logger, endpoint, attempt, delay, apiErr.RetryAfter > 0)
			return
		}
		c.logger.WarnWithFields("request failed, retrying", map[string]interface{}{
			"endpoint": endpoint,
			"attempt":  attempt,
			"delay":    delay,
			"error":    err.Error(),
		})
	}
	return cfg
}

// call issues one XRPC method against the endpoint list. Each endpoint gets
// the full retry budget; the next endpoint is tried after exhaustion or a
// hard failure.
func (c *Client) call(ctx context.Context, method string, params url.Values, target interface{}) error {
	var failures []error
	allThrottled := true

	for i, endpoint := range c.endpoints {
		rawURL := MethodURL(endpoint, method, params)

		err := retry.Do(ctx, func() error {
			return c.getJSON(ctx, rawURL, target)
		}, c.retryConfig(endpoint))
		if err == nil {
			if i > 0 {
				c.logger.InfoWithFields("fallback endpoint succeeded", map[string]interface{}{
					"endpoint": endpoint,
					"method":   method,
				})
			}
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if errs.KindOf(err) != errs.KindThrottled {
			allThrottled = false
		}
		failures = append(failures, fmt.Errorf("%s: %w", endpoint, err))

		c.logger.WarnWithFields("endpoint failed", map[string]interface{}{
			"endpoint":  endpoint,
			"method":    method,
			"error":     err.Error(),
			"remaining": len(c.endpoints) - i - 1,
		})
	}

	kind := errs.KindConnectivity
	message := fmt.Sprintf("all %d endpoints failed for %s", len(c.endpoints), method)
	if allThrottled && len(failures) > 0 {
		kind = errs.KindThrottled
		message = fmt.Sprintf("all %d endpoints are rate limiting %s", len(c.endpoints), method)
	}

	return &errs.Error{
		Kind:      kind,
		Message:   message,
		Attempts:  len(c.endpoints),
		Exhausted: true,
		Err:       stderrors.Join(failures...),
	}
}

// PageRequest is the logical query for one page
type PageRequest struct {
	Method     string
	Params     url.Values
	ItemsField string
	Cursor     string
	Limit      int
}

// RawPage holds the undecoded items of one page and its continuation cursor
type RawPage struct {
	Items  []json.RawMessage
	Cursor string
}

// FetchPage fetches one page through the endpoint fallback chain and
// normalises the cursor field
func (c *Client) FetchPage(ctx context.Context, req PageRequest) (*RawPage, error) {
	params := url.Values{}
	for key, values := range req.Params {
		params[key] = append([]string(nil), values...)
	}
	if req.Limit > 0 {
		limit := req.Limit
		if limit > MaxPageSize {
			limit = MaxPageSize
		}
		params.Set("limit", strconv.Itoa(limit))
	}
	if req.Cursor != "" {
		params.Set("cursor", req.Cursor)
	}

	var body map[string]json.RawMessage
	if err := c.call(ctx, req.Method, params, &body); err != nil {
		return nil, err
	}

	return normalizePage(body, req.ItemsField)
}

func normalizePage(body map[string]json.RawMessage, itemsField string) (*RawPage, error) {
	page := &RawPage{}

	if raw, ok := body[itemsField]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &page.Items); err != nil {
			return nil, &errs.Error{
				Kind:    errs.KindParsing,
				Message: fmt.Sprintf("field %q is not an array", itemsField),
				Err:     err,
			}
		}
	}

	for _, key := range []string{"cursor", "nextCursor"} {
		raw, ok := body[key]
		if !ok {
			continue
		}
		var cursor string
		if json.Unmarshal(raw, &cursor) == nil && cursor != "" {
			page.Cursor = cursor
			break
		}
	}

	return page, nil
}

// decodeItems decodes each raw item, dropping the ones that do not fit T
func decodeItems[T any](raw *RawPage, log logger.Logger, method string) Page[T] {
	page := Page[T]{
		Items:  make([]T, 0, len(raw.Items)),
		Cursor: raw.Cursor,
	}
	for i, item := range raw.Items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			log.WarnWithFields("dropping malformed item", map[string]interface{}{
				"method": method,
				"index":  i,
				"error":  err.Error(),
			})
			page.Dropped++
			continue
		}
		page.Items = append(page.Items, v)
	}
	return page
}

// SearchPostsPage fetches one page of app.bsky.feed.searchPosts
func (c *Client) SearchPostsPage(ctx context.Context, query, cursor string, limit int) (Page[PostView], error) {
	raw, err := c.FetchPage(ctx, PageRequest{
		Method:     MethodSearchPosts,
		Params:     url.Values{"q": {query}},
		ItemsField: FieldPosts,
		Cursor:     cursor,
		Limit:      limit,
	})
	if err != nil {
		return Page[PostView]{}, err
	}
	return decodeItems[PostView](raw, c.logger, MethodSearchPosts), nil
}

// LikesPage fetches one page of app.bsky.feed.getLikes for a post URI
func (c *Client) LikesPage(ctx context.Context, uri, cursor string, limit int) (Page[Like], error) {
	raw, err := c.FetchPage(ctx, PageRequest{
		Method:     MethodGetLikes,
		Params:     url.Values{"uri": {uri}},
		ItemsField: FieldLikes,
		Cursor:     cursor,
		Limit:      limit,
	})
	if err != nil {
		return Page[Like]{}, err
	}
	return decodeItems[Like](raw, c.logger, MethodGetLikes), nil
}

// AuthorFeedPage fetches one page of app.bsky.feed.getAuthorFeed
func (c *Client) AuthorFeedPage(ctx context.Context, actor, cursor string, limit int) (Page[FeedViewPost], error) {
	raw, err := c.FetchPage(ctx, PageRequest{
		Method:     MethodGetAuthorFeed,
		Params:     url.Values{"actor": {actor}},
		ItemsField: FieldFeed,
		Cursor:     cursor,
		Limit:      limit,
	})
	if err != nil {
		return Page[FeedViewPost]{}, err
	}
	return decodeItems[FeedViewPost](raw, c.logger, MethodGetAuthorFeed), nil
}

// ResolveHandle resolves a handle to its DID. DIDs are returned unchanged.
func (c *Client) ResolveHandle(ctx context.Context, handle string) (string, error) {
	handle = SanitizeHandle(handle)
	if handle == "" {
		return "", errs.Validation("handle is empty")
	}
	if IsDID(handle) {
		return handle, nil
	}

	c.logger.DebugWithFields("resolving handle", map[string]interface{}{
		"handle": handle,
	})

	var response ResolveHandleResponse
	if err := c.call(ctx, MethodResolveHandle, url.Values{"handle": {handle}}, &response); err != nil {
		return "", err
	}
	if response.DID == "" {
		return "", &errs.Error{
			Kind:    errs.KindParsing,
			Message: fmt.Sprintf("no DID returned for handle %q", handle),
		}
	}

	return response.DID, nil
}

// PostURLToURI converts a bsky.app post link into the at:// URI of the post
func (c *Client) PostURLToURI(ctx context.Context, postURL string) (string, error) {
	actor, rkey, err := ParsePostURL(postURL)
	if err != nil {
		return "", err
	}

	did, err := c.ResolveHandle(ctx, actor)
	if err != nil {
		return "", err
	}

	return PostURI(did, rkey), nil
}

// Embed fetches the oEmbed HTML snippet for a post link
func (c *Client) Embed(ctx context.Context, postURL string) (*EmbedResponse, error) {
	if _, _, err := ParsePostURL(postURL); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("url", postURL)
	rawURL := c.embedURL + "?" + params.Encode()

	var response EmbedResponse
	err := retry.Do(ctx, func() error {
		return c.getJSON(ctx, rawURL, &response)
	}, c.retryConfig(c.embedURL))
	if err != nil {
		return nil, err
	}

	return &response, nil
}
