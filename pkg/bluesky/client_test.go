package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"skytally/pkg/config"
	errs "skytally/pkg/errors"
	"skytally/pkg/logger"
	"skytally/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newResponse(req *http.Request, statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
		Request:    req,
	}
}

// fakeSleeper records backoff delays instead of waiting
type fakeSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (f *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays = append(f.delays, d)
	return ctx.Err()
}

func newTestClient(t *testing.T, endpoints ...string) (*Client, *fakeSleeper, *logger.TestLogger) {
	t.Helper()

	cfg := config.DefaultConfig()
	if len(endpoints) > 0 {
		cfg.API.Endpoints = endpoints
	}
	cfg.API.Timeout = 5 * time.Second

	log := logger.NewTestLogger()
	sleeper := &fakeSleeper{}

	client := NewClient(cfg, log)
	client.SetSleeper(sleeper.Sleep)
	client.SetLimiter(ratelimit.Unlimited())
	return client, sleeper, log
}

// sequenceServer replies with the given status/body pairs in order, then
// repeats the last one
type step struct {
	status int
	body   string
	header map[string]string
}

func sequenceServer(t *testing.T, steps ...step) (*httptest.Server, *[]*http.Request) {
	t.Helper()

	var mu sync.Mutex
	var requests []*http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		idx := len(requests)
		requests = append(requests, r.Clone(context.Background()))
		mu.Unlock()

		if idx >= len(steps) {
			idx = len(steps) - 1
		}
		s := steps[idx]
		for k, v := range s.header {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.status)
		_, _ = io.WriteString(w, s.body)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestNewClient(t *testing.T) {
	log := logger.NewTestLogger()
	client := NewClient(config.DefaultConfig(), log)

	assert.NotNil(t, client.httpClient)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
	assert.Equal(t, []string{PublicAppView, AppView}, client.Endpoints())
	assert.Equal(t, "application/json", client.headers["Accept"])
	assert.Contains(t, client.headers["User-Agent"], "skytally")
	assert.Equal(t, EmbedURL, client.embedURL)

	msgs := log.GetMessagesByLevel("DEBUG")
	require.Len(t, msgs, 1)
	assert.Equal(t, "client configured", msgs[0].Message)
	assert.Equal(t, "200ms", msgs[0].Fields["pacing"])
}

func TestNewClientDefaultsEmptyEndpoints(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.API.Endpoints = nil

	client := NewClient(cfg, nil)
	assert.Equal(t, DefaultEndpoints(), client.Endpoints())
}

func TestGetJSONClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		header    map[string]string
		transport error
		wantKind  errs.Kind
		wantAfter time.Duration
		wantInMsg string
	}{
		{name: "ok", status: 200, body: `{"did":"did:plc:abc"}`},
		{name: "throttled 429", status: 429, header: map[string]string{"Retry-After": "12"}, wantKind: errs.KindThrottled, wantAfter: 12 * time.Second},
		{name: "throttled 403", status: 403, wantKind: errs.KindThrottled},
		{name: "xrpc error body", status: 400, body: `{"error":"InvalidRequest","message":"Unable to resolve handle"}`, wantKind: errs.KindAPI, wantInMsg: "Unable to resolve handle"},
		{name: "server error", status: 502, body: "bad gateway", wantKind: errs.KindAPI, wantInMsg: "bad gateway"},
		{name: "bad json", status: 200, body: `{"did":`, wantKind: errs.KindParsing},
		{name: "transport", transport: errors.New("connection reset by peer"), wantKind: errs.KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, _ := newTestClient(t)
			client.SetHTTPClient(&http.Client{Transport: &mockRoundTripper{
				handler: func(req *http.Request) (*http.Response, error) {
					if tt.transport != nil {
						return nil, tt.transport
					}
					resp := newResponse(req, tt.status, tt.body)
					for k, v := range tt.header {
						resp.Header.Set(k, v)
					}
					return resp, nil
				},
			}})

			var out ResolveHandleResponse
			err := client.getJSON(context.Background(), "https://example.test/xrpc/"+MethodResolveHandle, &out)

			if tt.wantKind == "" {
				require.NoError(t, err)
				assert.Equal(t, "did:plc:abc", out.DID)
				return
			}

			require.Error(t, err)
			var apiErr *errs.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, tt.wantAfter, apiErr.RetryAfter)
			if tt.wantInMsg != "" {
				assert.Contains(t, apiErr.Message, tt.wantInMsg)
			}
		})
	}
}

func TestGetJSONSendsHeaders(t *testing.T) {
	client, _, _ := newTestClient(t)
	client.SetHeader("X-Test", "yes")

	var got http.Header
	client.SetHTTPClient(&http.Client{Transport: &mockRoundTripper{
		handler: func(req *http.Request) (*http.Response, error) {
			got = req.Header.Clone()
			return newResponse(req, 200, `{}`), nil
		},
	}})

	var out map[string]interface{}
	require.NoError(t, client.getJSON(context.Background(), "https://example.test/x", &out))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "yes", got.Get("X-Test"))
	assert.NotEmpty(t, got.Get("User-Agent"))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		header map[string]string
		want   time.Duration
	}{
		{"none", nil, 0},
		{"seconds", map[string]string{"Retry-After": "30"}, 30 * time.Second},
		{"http date", map[string]string{"Retry-After": now.Add(90 * time.Second).Format(http.TimeFormat)}, 90 * time.Second},
		{"date in the past", map[string]string{"Retry-After": now.Add(-time.Minute).Format(http.TimeFormat)}, 0},
		{"ratelimit reset", map[string]string{"RateLimit-Reset": "1714564845"}, 45 * time.Second},
		{"garbage", map[string]string{"Retry-After": "soon"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := make(http.Header)
			for k, v := range tt.header {
				h.Set(k, v)
			}
			assert.Equal(t, tt.want, parseRetryAfter(h, now))
		})
	}
}

func TestFetchPageRetriesThrottling(t *testing.T) {
	server, requests := sequenceServer(t,
		step{status: 429},
		step{status: 429},
		step{status: 200, body: `{"posts":[{"uri":"at://a"}],"cursor":"next"}`},
	)
	client, sleeper, log := newTestClient(t, server.URL+"/xrpc")

	page, err := client.FetchPage(context.Background(), PageRequest{
		Method:     MethodSearchPosts,
		Params:     url.Values{"q": {"#go"}},
		ItemsField: FieldPosts,
		Limit:      100,
	})

	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, "next", page.Cursor)
	assert.Len(t, *requests, 3)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, sleeper.delays)
	assert.Equal(t, 2, log.Count("request throttled, backing off"))
}

func TestFetchPageHonoursRetryAfter(t *testing.T) {
	server, _ := sequenceServer(t,
		step{status: 429, header: map[string]string{"Retry-After": "5"}},
		step{status: 200, body: `{"likes":[]}`},
	)
	client, sleeper, _ := newTestClient(t, server.URL+"/xrpc")

	_, err := client.FetchPage(context.Background(), PageRequest{Method: MethodGetLikes, ItemsField: FieldLikes})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second}, sleeper.delays)
}

func TestFetchPageForwardsParameters(t *testing.T) {
	server, requests := sequenceServer(t, step{status: 200, body: `{"feed":[]}`})
	client, _, _ := newTestClient(t, server.URL+"/xrpc/")

	_, err := client.FetchPage(context.Background(), PageRequest{
		Method:     MethodGetAuthorFeed,
		Params:     url.Values{"actor": {"alice.bsky.social"}},
		ItemsField: FieldFeed,
		Cursor:     "abc",
		Limit:      250,
	})
	require.NoError(t, err)
	require.Len(t, *requests, 1)

	req := (*requests)[0]
	assert.Equal(t, "/xrpc/"+MethodGetAuthorFeed, req.URL.Path)
	assert.Equal(t, "alice.bsky.social", req.URL.Query().Get("actor"))
	assert.Equal(t, "abc", req.URL.Query().Get("cursor"))
	assert.Equal(t, "100", req.URL.Query().Get("limit"), "limit is clamped to the page maximum")
}

func TestFetchPageFallsBackToNextEndpoint(t *testing.T) {
	primary, primaryRequests := sequenceServer(t, step{status: 500, body: "down"})
	secondary, secondaryRequests := sequenceServer(t, step{status: 200, body: `{"likes":[{"actor":{"handle":"bob.test"}}],"cursor":"c2"}`})

	client, sleeper, _ := newTestClient(t, primary.URL+"/xrpc", secondary.URL+"/xrpc")

	page, err := client.FetchPage(context.Background(), PageRequest{
		Method:     MethodGetLikes,
		Params:     url.Values{"uri": {"at://did:plc:x/app.bsky.feed.post/1"}},
		ItemsField: FieldLikes,
		Cursor:     "c1",
		Limit:      50,
	})

	require.NoError(t, err)
	assert.Equal(t, "c2", page.Cursor)
	assert.Len(t, *primaryRequests, 1, "hard errors are not retried on the same endpoint")
	assert.Empty(t, sleeper.delays)
	require.Len(t, *secondaryRequests, 1)
	assert.Equal(t, "c1", (*secondaryRequests)[0].URL.Query().Get("cursor"), "fallback keeps the cursor")
}

func TestFetchPageFallsBackAfterThrottleBudget(t *testing.T) {
	primary, primaryRequests := sequenceServer(t, step{status: 429})
	secondary, _ := sequenceServer(t, step{status: 200, body: `{"posts":[]}`})

	client, sleeper, _ := newTestClient(t, primary.URL+"/xrpc", secondary.URL+"/xrpc")

	_, err := client.FetchPage(context.Background(), PageRequest{Method: MethodSearchPosts, ItemsField: FieldPosts})

	require.NoError(t, err)
	assert.Len(t, *primaryRequests, 3)
	assert.Len(t, sleeper.delays, 2)
}

func TestFetchPageAllEndpointsFail(t *testing.T) {
	primary, _ := sequenceServer(t, step{status: 500})
	secondary, _ := sequenceServer(t, step{status: 429})

	client, _, _ := newTestClient(t, primary.URL+"/xrpc", secondary.URL+"/xrpc")

	_, err := client.FetchPage(context.Background(), PageRequest{Method: MethodSearchPosts, ItemsField: FieldPosts})

	require.Error(t, err)
	var apiErr *errs.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errs.KindConnectivity, apiErr.Kind)
	assert.Equal(t, 2, apiErr.Attempts)
	assert.True(t, errs.Contains(err, errs.KindAPI))
	assert.True(t, errs.Contains(err, errs.KindThrottled))
}

func TestFetchPageAllEndpointsThrottled(t *testing.T) {
	primary, _ := sequenceServer(t, step{status: 429})
	secondary, _ := sequenceServer(t, step{status: 403})

	client, sleeper, _ := newTestClient(t, primary.URL+"/xrpc", secondary.URL+"/xrpc")

	_, err := client.FetchPage(context.Background(), PageRequest{Method: MethodSearchPosts, ItemsField: FieldPosts})

	require.Error(t, err)
	assert.Equal(t, errs.KindThrottled, errs.KindOf(err))
	assert.Len(t, sleeper.delays, 4)
}

func TestFetchPageStopsOnCancelledContext(t *testing.T) {
	server, requests := sequenceServer(t, step{status: 200, body: `{"posts":[]}`})
	client, _, _ := newTestClient(t, server.URL+"/xrpc")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchPage(ctx, PageRequest{Method: MethodSearchPosts, ItemsField: FieldPosts})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *requests)
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		field      string
		wantItems  int
		wantCursor string
		wantErr    bool
	}{
		{"cursor", `{"posts":[{},{}],"cursor":"a"}`, FieldPosts, 2, "a", false},
		{"nextCursor", `{"posts":[{}],"nextCursor":"b"}`, FieldPosts, 1, "b", false},
		{"empty cursor falls through", `{"feed":[],"cursor":"","nextCursor":"c"}`, FieldFeed, 0, "c", false},
		{"missing items", `{"cursor":"d"}`, FieldLikes, 0, "d", false},
		{"null items", `{"likes":null}`, FieldLikes, 0, "", false},
		{"items not array", `{"likes":{"a":1}}`, FieldLikes, 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]json.RawMessage
			require.NoError(t, json.Unmarshal([]byte(tt.body), &body))

			page, err := normalizePage(body, tt.field)
			if tt.wantErr {
				assert.True(t, errs.Is(err, errs.KindParsing))
				return
			}
			require.NoError(t, err)
			assert.Len(t, page.Items, tt.wantItems)
			assert.Equal(t, tt.wantCursor, page.Cursor)
		})
	}
}

func TestSearchPostsPageDropsMalformedItems(t *testing.T) {
	body := `{"posts":[
		{"uri":"at://did:plc:a/app.bsky.feed.post/1","author":{"handle":"alice.test"},"record":{"text":"hi #Go","createdAt":"2024-05-01T10:00:00Z","facets":[{"features":[{"$type":"app.bsky.richtext.facet#tag","tag":"Go"}]}]},"repostCount":3,"likeCount":7},
		"oops",
		{"uri":5}
	],"cursor":"next"}`
	server, requests := sequenceServer(t, step{status: 200, body: body})
	client, _, log := newTestClient(t, server.URL+"/xrpc")

	page, err := client.SearchPostsPage(context.Background(), "#go", "", 100)

	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "next", page.Cursor)
	assert.Equal(t, "alice.test", page.Items[0].Author.Handle)
	assert.Equal(t, 3, page.Items[0].RepostCount)
	assert.Equal(t, []string{"go"}, page.Items[0].Tags())
	assert.Equal(t, 2, page.Dropped)
	assert.Equal(t, 2, log.Count("dropping malformed item"))
	assert.Equal(t, "#go", (*requests)[0].URL.Query().Get("q"))
}

func TestDecodeItemsCountsDropped(t *testing.T) {
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`{"posts":[{"uri":1},{"uri":2}],"cursor":"next"}`), &body))
	raw, err := normalizePage(body, FieldPosts)
	require.NoError(t, err)

	page := decodeItems[PostView](raw, logger.NewNopLogger(), MethodSearchPosts)

	assert.Empty(t, page.Items)
	assert.Equal(t, 2, page.Dropped)
	assert.Equal(t, "next", page.Cursor)
}

func TestPreviewKeepsRunesWhole(t *testing.T) {
	body := []byte(strings.Repeat("a", bodyPreviewLimit-1) + "日本語")

	got := preview(body)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", bodyPreviewLimit-1)+"...", got)
	assert.Equal(t, "short 日本", preview([]byte("short 日本")))
}

func TestResolveHandle(t *testing.T) {
	server, requests := sequenceServer(t, step{status: 200, body: `{"did":"did:plc:alice"}`})
	client, _, _ := newTestClient(t, server.URL+"/xrpc")

	did, err := client.ResolveHandle(context.Background(), "@Alice.bsky.social")
	require.NoError(t, err)
	assert.Equal(t, "did:plc:alice", did)
	assert.Equal(t, "alice.bsky.social", (*requests)[0].URL.Query().Get("handle"))

	did, err = client.ResolveHandle(context.Background(), "did:plc:bob")
	require.NoError(t, err)
	assert.Equal(t, "did:plc:bob", did)
	assert.Len(t, *requests, 1, "DIDs are not resolved")

	_, err = client.ResolveHandle(context.Background(), "  ")
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestResolveHandleEmptyDID(t *testing.T) {
	server, _ := sequenceServer(t, step{status: 200, body: `{}`})
	client, _, _ := newTestClient(t, server.URL+"/xrpc")

	_, err := client.ResolveHandle(context.Background(), "alice.bsky.social")
	assert.True(t, errs.Is(err, errs.KindParsing))
}

func TestPostURLToURI(t *testing.T) {
	server, _ := sequenceServer(t, step{status: 200, body: `{"did":"did:plc:alice"}`})
	client, _, _ := newTestClient(t, server.URL+"/xrpc")

	uri, err := client.PostURLToURI(context.Background(), "https://bsky.app/profile/alice.bsky.social/post/3kabc")
	require.NoError(t, err)
	assert.Equal(t, "at://did:plc:alice/app.bsky.feed.post/3kabc", uri)

	_, err = client.PostURLToURI(context.Background(), "https://bsky.app/profile/alice.bsky.social")
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestEmbed(t *testing.T) {
	server, requests := sequenceServer(t, step{status: 200, body: `{"type":"rich","html":"<blockquote>hi</blockquote>","author_name":"Alice"}`})
	client, _, _ := newTestClient(t)
	client.embedURL = server.URL + "/oembed"

	postURL := "https://bsky.app/profile/alice.bsky.social/post/3kabc"
	embed, err := client.Embed(context.Background(), postURL)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(embed.HTML, "<blockquote"))
	assert.Equal(t, "Alice", embed.AuthorName)
	assert.Equal(t, postURL, (*requests)[0].URL.Query().Get("url"))
}
