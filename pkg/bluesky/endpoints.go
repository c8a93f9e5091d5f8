package bluesky

import (
	"fmt"
	"net/url"
	"strings"

	errs "skytally/pkg/errors"
)

const (
	// PublicAppView is the unauthenticated AppView, tried first
	PublicAppView = "https://public.api.bsky.app/xrpc"

	// AppView is the fallback AppView
	AppView = "https://api.bsky.app/xrpc"

	// EmbedURL is the oEmbed endpoint for posts
	EmbedURL = "https://embed.bsky.app/oembed"

	// WebURL is the web client used to build shareable links
	WebURL = "https://bsky.app"

	// MaxPageSize is the largest page the AppView serves
	MaxPageSize = 100
)

// XRPC methods used by the collector
const (
	MethodResolveHandle = "com.atproto.identity.resolveHandle"
	MethodSearchPosts   = "app.bsky.feed.searchPosts"
	MethodGetLikes      = "app.bsky.feed.getLikes"
	MethodGetAuthorFeed = "app.bsky.feed.getAuthorFeed"
)

// Items field of each paginated method's output
const (
	FieldPosts = "posts"
	FieldLikes = "likes"
	FieldFeed  = "feed"
)

// DefaultEndpoints returns the ordered fallback list
func DefaultEndpoints() []string {
	return []string{PublicAppView, AppView}
}

// MethodURL constructs the URL for an XRPC call on one endpoint
func MethodURL(endpoint, method string, params url.Values) string {
	u := strings.TrimRight(endpoint, "/") + "/" + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// PostURI builds the at:// URI of a post record
func PostURI(did, rkey string) string {
	return fmt.Sprintf("at://%s/%s/%s", did, TypePost, rkey)
}

// GetPostURL constructs the web URL for a post
func GetPostURL(handle, rkey string) string {
	if handle == "" || rkey == "" {
		return ""
	}
	return fmt.Sprintf("%s/profile/%s/post/%s", WebURL, handle, rkey)
}

// GetProfileURL constructs the web URL for an account
func GetProfileURL(handle string) string {
	if handle == "" {
		return ""
	}
	return fmt.Sprintf("%s/profile/%s", WebURL, handle)
}

// ParsePostURL splits a bsky.app post link into the author (handle or DID)
// and the record key
func ParsePostURL(postURL string) (actor, rkey string, err error) {
	postURL = strings.TrimSpace(postURL)
	if postURL == "" {
		return "", "", errs.Validation("post URL is empty")
	}

	u, err := url.Parse(postURL)
	if err != nil {
		return "", "", errs.Validation("invalid post URL %q: %v", postURL, err)
	}

	// /profile/{actor}/post/{rkey}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[0] != "profile" || parts[2] != "post" || parts[1] == "" || parts[3] == "" {
		return "", "", errs.Validation("not a post URL: %q (expected %s/profile/<handle>/post/<id>)", postURL, WebURL)
	}

	return parts[1], parts[3], nil
}

// IsDID reports whether s is a decentralized identifier rather than a handle
func IsDID(s string) bool {
	return strings.HasPrefix(s, "did:")
}

// IsValidHandle checks the handle syntax: dot-separated labels of letters,
// digits and hyphens, at least two labels
func IsValidHandle(handle string) bool {
	if handle == "" || len(handle) > 253 {
		return false
	}

	labels := strings.Split(handle, ".")
	if len(labels) < 2 {
		return false
	}

	for _, label := range labels {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, char := range label {
			if !((char >= 'a' && char <= 'z') ||
				(char >= 'A' && char <= 'Z') ||
				(char >= '0' && char <= '9') ||
				char == '-') {
				return false
			}
		}
	}

	return true
}

// SanitizeHandle normalises user input into a bare handle. It accepts
// "@alice.bsky.social", "alice.bsky.social/" and profile links.
func SanitizeHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return ""
	}

	if strings.HasPrefix(handle, "http://") || strings.HasPrefix(handle, "https://") {
		if u, err := url.Parse(handle); err == nil {
			parts := strings.Split(strings.Trim(u.Path, "/"), "/")
			if len(parts) >= 2 && parts[0] == "profile" {
				handle = parts[1]
			}
		}
	}

	handle = strings.TrimPrefix(handle, "@")

	// Remove any trailing slashes or spaces
	handle = strings.TrimRight(handle, "/ ")

	if !IsDID(handle) {
		handle = strings.ToLower(handle)
	}
	return handle
}

// NormalizeHashtag returns the search query for a hashtag, always
// prefixed with '#'
func NormalizeHashtag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimLeft(tag, "#")
	if tag == "" {
		return ""
	}
	return "#" + tag
}
