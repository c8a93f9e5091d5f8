package aggregate

import (
	"fmt"
	"strconv"
	"time"

	"skytally/pkg/bluesky"
	"skytally/pkg/flags"
)

// DateRange is an inclusive window of calendar days; a zero bound is open
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether day falls inside the window
func (r DateRange) Contains(day time.Time) bool {
	if !r.Start.IsZero() && day.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && day.After(r.End) {
		return false
	}
	return true
}

// Hashtags counts every facet tag across posts, lower-cased
func Hashtags(posts []bluesky.PostView, opts Options) (Table, Diagnostics) {
	var diag Diagnostics
	counter := NewCounter()

	for i := range posts {
		if len(posts[i].Record.Facets) == 0 {
			diag.skip(i, "no facets")
			continue
		}
		for _, tag := range posts[i].Tags() {
			counter.Add(tag)
		}
		diag.Processed++
	}

	return Finalize(counter, opts), diag
}

// RepostHistogram maps a repost count to the number of posts having it
func RepostHistogram(posts []bluesky.PostView, opts Options) (Table, Diagnostics) {
	var diag Diagnostics
	counter := NewCounter()

	for i := range posts {
		if posts[i].RepostCount < 0 {
			diag.skip(i, fmt.Sprintf("negative repost count %d", posts[i].RepostCount))
			continue
		}
		counter.Add(strconv.Itoa(posts[i].RepostCount))
		diag.Processed++
	}

	return Finalize(counter, opts), diag
}

// LikesByDate sums like counts per creation day (YYYY-MM-DD) within rng.
// The result is in ascending date order; TopN does not apply.
func LikesByDate(posts []bluesky.PostView, rng DateRange, opts Options) (Table, Diagnostics) {
	var diag Diagnostics
	counter := NewCounter()

	for i := range posts {
		created := posts[i].Record.CreatedAt
		if len(created) < len(time.DateOnly) {
			diag.skip(i, "missing createdAt")
			continue
		}
		day, err := time.Parse(time.DateOnly, created[:len(time.DateOnly)])
		if err != nil {
			diag.skip(i, fmt.Sprintf("invalid createdAt %q", created))
			continue
		}
		if !rng.Contains(day) {
			continue
		}
		counter.AddN(day.Format(time.DateOnly), posts[i].LikeCount)
		diag.Processed++
	}

	t := opts.Filter(counter.Table())
	SortByKey(t)
	return t, diag
}

// MostReposted counts the authors of quoted posts
func MostReposted(feed []bluesky.FeedViewPost, opts Options) (Table, Diagnostics) {
	var diag Diagnostics
	counter := NewCounter()

	for i := range feed {
		if !quotesRecord(&feed[i].Post) {
			continue
		}
		handle := quotedAuthor(&feed[i].Post)
		if handle == "" {
			diag.skip(i, "quoted record has no author")
			continue
		}
		counter.Add(handle)
		diag.Processed++
	}

	return Finalize(counter, opts), diag
}

// MostRepliedTo counts the authors of the posts replied to
func MostRepliedTo(feed []bluesky.FeedViewPost, opts Options) (Table, Diagnostics) {
	var diag Diagnostics
	counter := NewCounter()

	for i := range feed {
		if feed[i].Reply == nil {
			continue
		}
		parent := feed[i].Reply.Parent
		if parent == nil || parent.Author.Handle == "" {
			diag.skip(i, "reply parent unavailable")
			continue
		}
		counter.Add(parent.Author.Handle)
		diag.Processed++
	}

	return Finalize(counter, opts), diag
}

// TopUsers counts the authors appearing in a feed: the author of every
// entry that is not a reply, plus the author of every quoted post
func TopUsers(feed []bluesky.FeedViewPost, opts Options) (Table, Diagnostics) {
	var diag Diagnostics
	counter := NewCounter()

	for i := range feed {
		post := &feed[i].Post
		counted := false

		if feed[i].Reply == nil {
			if post.Author.Handle == "" {
				diag.skip(i, "post has no author handle")
			} else {
				counter.Add(userKey(post.Author))
				counted = true
			}
		}

		if quotesRecord(post) && quotedAuthor(post) != "" {
			counter.Add(userKey(*post.Embed.Record.Author))
			counted = true
		}

		if counted {
			diag.Processed++
		}
	}

	return Finalize(counter, opts), diag
}

// Flags counts flag emoji in the display names of likers
func Flags(likes []bluesky.Like, opts Options) (Table, Diagnostics) {
	var diag Diagnostics
	counter := NewCounter()

	for i := range likes {
		found := flags.Extract(likes[i].Actor.DisplayName)
		for _, flag := range found {
			counter.Add(flag)
		}
		if len(found) > 0 {
			diag.Processed++
		}
	}

	return Finalize(counter, opts), diag
}

// LikerFlags is a liker together with the flags in their display name
type LikerFlags struct {
	Handle      string   `json:"handle"`
	DisplayName string   `json:"display_name"`
	Avatar      string   `json:"avatar,omitempty"`
	CreatedAt   string   `json:"created_at"`
	Flags       []string `json:"flags"`
}

// FlaggedLikers returns the likers whose display name carries a flag
func FlaggedLikers(likes []bluesky.Like) []LikerFlags {
	var out []LikerFlags
	for _, like := range likes {
		if !flags.Contains(like.Actor.DisplayName) {
			continue
		}
		out = append(out, LikerFlags{
			Handle:      like.Actor.Handle,
			DisplayName: like.Actor.DisplayName,
			Avatar:      like.Actor.Avatar,
			CreatedAt:   like.CreatedAt,
			Flags:       flags.Extract(like.Actor.DisplayName),
		})
	}
	return out
}

func quotesRecord(post *bluesky.PostView) bool {
	return post.Record.Embed != nil && post.Record.Embed.Type == bluesky.TypeEmbedRecord
}

func quotedAuthor(post *bluesky.PostView) string {
	if post.Embed == nil || post.Embed.Record == nil || post.Embed.Record.Author == nil {
		return ""
	}
	return post.Embed.Record.Author.Handle
}

func userKey(p bluesky.ProfileView) string {
	if p.DisplayName == "" {
		return p.Handle
	}
	return fmt.Sprintf("%s (%s)", p.Handle, p.DisplayName)
}
