package bluesky

import (
	"net/url"
	"testing"

	errs "skytally/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		params   url.Values
		expected string
	}{
		{
			name:     "no params",
			endpoint: PublicAppView,
			expected: "https://public.api.bsky.app/xrpc/app.bsky.feed.searchPosts",
		},
		{
			name:     "trailing slash",
			endpoint: AppView + "/",
			params:   url.Values{"q": {"#go"}, "limit": {"100"}},
			expected: "https://api.bsky.app/xrpc/app.bsky.feed.searchPosts?limit=100&q=%23go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MethodURL(tt.endpoint, MethodSearchPosts, tt.params))
		})
	}
}

func TestPostURI(t *testing.T) {
	assert.Equal(t, "at://did:plc:abc/app.bsky.feed.post/3k2", PostURI("did:plc:abc", "3k2"))
}

func TestWebURLs(t *testing.T) {
	assert.Equal(t, "https://bsky.app/profile/alice.test/post/3k2", GetPostURL("alice.test", "3k2"))
	assert.Empty(t, GetPostURL("", "3k2"))
	assert.Equal(t, "https://bsky.app/profile/alice.test", GetProfileURL("alice.test"))
	assert.Empty(t, GetProfileURL(""))
}

func TestParsePostURL(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantActor string
		wantRkey  string
		wantErr   bool
	}{
		{"handle", "https://bsky.app/profile/alice.bsky.social/post/3kabc", "alice.bsky.social", "3kabc", false},
		{"did", "https://bsky.app/profile/did:plc:xyz/post/3kabc", "did:plc:xyz", "3kabc", false},
		{"trailing slash and query", "https://bsky.app/profile/alice.test/post/3kabc/?ref=x", "alice.test", "3kabc", false},
		{"surrounding spaces", "  https://bsky.app/profile/alice.test/post/1  ", "alice.test", "1", false},
		{"empty", "", "", "", true},
		{"profile only", "https://bsky.app/profile/alice.test", "", "", true},
		{"wrong section", "https://bsky.app/profile/alice.test/lists/1", "", "", true},
		{"missing rkey", "https://bsky.app/profile/alice.test/post/", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor, rkey, err := ParsePostURL(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errs.Is(err, errs.KindValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantActor, actor)
			assert.Equal(t, tt.wantRkey, rkey)
		})
	}
}

func TestIsValidHandle(t *testing.T) {
	tests := []struct {
		handle string
		valid  bool
	}{
		{"alice.bsky.social", true},
		{"a-b.example.com", true},
		{"xn--ls8h.test", true},
		{"", false},
		{"alice", false},
		{"alice..social", false},
		{"-alice.social", false},
		{"alice-.social", false},
		{"ali ce.social", false},
		{"alice_b.social", false},
	}

	for _, tt := range tests {
		t.Run(tt.handle, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidHandle(tt.handle))
		})
	}
}

func TestSanitizeHandle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"alice.bsky.social", "alice.bsky.social"},
		{"@alice.bsky.social", "alice.bsky.social"},
		{"Alice.Bsky.Social/", "alice.bsky.social"},
		{"  @alice.test / ", "alice.test"},
		{"https://bsky.app/profile/alice.test", "alice.test"},
		{"https://bsky.app/profile/alice.test/post/3k", "alice.test"},
		{"did:plc:AbC", "did:plc:AbC"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeHandle(tt.input))
		})
	}
}

func TestNormalizeHashtag(t *testing.T) {
	assert.Equal(t, "#golang", NormalizeHashtag("golang"))
	assert.Equal(t, "#golang", NormalizeHashtag("#golang"))
	assert.Equal(t, "#golang", NormalizeHashtag("  ##golang "))
	assert.Equal(t, "", NormalizeHashtag("#"))
	assert.Equal(t, "", NormalizeHashtag(""))
}
