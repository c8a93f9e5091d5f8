package bluesky

import (
	"encoding/json"
	"strings"
)

// Record and embed type identifiers
const (
	TypePost        = "app.bsky.feed.post"
	TypeEmbedRecord = "app.bsky.embed.record"
	TypeTagFeature  = "app.bsky.richtext.facet#tag"
)

// ProfileView is the basic view of an account
type ProfileView struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// FacetFeature is one rich-text annotation (tag, link or mention)
type FacetFeature struct {
	Type string `json:"$type,omitempty"`
	Tag  string `json:"tag,omitempty"`
	URI  string `json:"uri,omitempty"`
	DID  string `json:"did,omitempty"`
}

// Facet annotates a byte range of post text
type Facet struct {
	Features []FacetFeature `json:"features"`
}

// StrongRef points at a specific version of a record
type StrongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// RecordEmbedRef is the embed as written in the post record
type RecordEmbedRef struct {
	Type   string     `json:"$type"`
	Record *StrongRef `json:"record,omitempty"`
}

// ReplyRef links a reply record to its thread
type ReplyRef struct {
	Root   StrongRef `json:"root"`
	Parent StrongRef `json:"parent"`
}

// PostRecord is the app.bsky.feed.post record body
type PostRecord struct {
	Type      string          `json:"$type,omitempty"`
	Text      string          `json:"text"`
	CreatedAt string          `json:"createdAt"`
	Facets    []Facet         `json:"facets,omitempty"`
	Embed     *RecordEmbedRef `json:"embed,omitempty"`
	Reply     *ReplyRef       `json:"reply,omitempty"`
	Langs     []string        `json:"langs,omitempty"`
}

// EmbeddedRecord is the hydrated view of a quoted record
type EmbeddedRecord struct {
	Type   string       `json:"$type,omitempty"`
	URI    string       `json:"uri,omitempty"`
	CID    string       `json:"cid,omitempty"`
	Author *ProfileView `json:"author,omitempty"`
}

// EmbedView is the hydrated embed attached to a post view
type EmbedView struct {
	Type   string          `json:"$type"`
	Record *EmbeddedRecord `json:"record,omitempty"`
}

// PostView is a post as returned by search, feeds and threads
type PostView struct {
	URI         string      `json:"uri"`
	CID         string      `json:"cid"`
	Author      ProfileView `json:"author"`
	Record      PostRecord  `json:"record"`
	Embed       *EmbedView  `json:"embed,omitempty"`
	ReplyCount  int         `json:"replyCount"`
	RepostCount int         `json:"repostCount"`
	LikeCount   int         `json:"likeCount"`
	QuoteCount  int         `json:"quoteCount"`
	IndexedAt   string      `json:"indexedAt,omitempty"`
}

// UnmarshalJSON also accepts the snake_case counters found in exported datasets
func (p *PostView) UnmarshalJSON(data []byte) error {
	type plain PostView
	var aux struct {
		plain
		ReplyCountAlt  int `json:"reply_count"`
		RepostCountAlt int `json:"repost_count"`
		LikeCountAlt   int `json:"like_count"`
		QuoteCountAlt  int `json:"quote_count"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*p = PostView(aux.plain)
	p.ReplyCount = preferNonZero(p.ReplyCount, aux.ReplyCountAlt)
	p.RepostCount = preferNonZero(p.RepostCount, aux.RepostCountAlt)
	p.LikeCount = preferNonZero(p.LikeCount, aux.LikeCountAlt)
	p.QuoteCount = preferNonZero(p.QuoteCount, aux.QuoteCountAlt)
	return nil
}

func preferNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

// IsReply reports whether the post record answers another post
func (p *PostView) IsReply() bool {
	return p.Record.Reply != nil
}

// Tags returns every non-empty facet tag, lower-cased, in document order
func (p *PostView) Tags() []string {
	var tags []string
	for _, facet := range p.Record.Facets {
		for _, feature := range facet.Features {
			if feature.Tag != "" {
				tags = append(tags, strings.ToLower(feature.Tag))
			}
		}
	}
	return tags
}

// ReplyContext holds the hydrated thread neighbours of a feed entry
type ReplyContext struct {
	Root   *PostView `json:"root,omitempty"`
	Parent *PostView `json:"parent,omitempty"`
}

// Reason explains why an entry is in a feed (for example a repost)
type Reason struct {
	Type      string       `json:"$type"`
	By        *ProfileView `json:"by,omitempty"`
	IndexedAt string       `json:"indexedAt,omitempty"`
}

// FeedViewPost is one entry of an author feed
type FeedViewPost struct {
	Post   PostView      `json:"post"`
	Reply  *ReplyContext `json:"reply,omitempty"`
	Reason *Reason       `json:"reason,omitempty"`
}

// Like is one entry of app.bsky.feed.getLikes
type Like struct {
	Actor     ProfileView `json:"actor"`
	CreatedAt string      `json:"createdAt"`
	IndexedAt string      `json:"indexedAt,omitempty"`
}

// ResolveHandleResponse is the com.atproto.identity.resolveHandle output
type ResolveHandleResponse struct {
	DID string `json:"did"`
}

// EmbedResponse is the oEmbed document for a post
type EmbedResponse struct {
	Type         string `json:"type"`
	Version      string `json:"version"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ProviderName string `json:"provider_name"`
	HTML         string `json:"html"`
	Width        int    `json:"width"`
}

// Page is one normalised page of items. Dropped counts the items the
// server returned that could not be decoded.
type Page[T any] struct {
	Items   []T
	Cursor  string
	Dropped int
}
