package analysis

import (
	"sort"
	"strings"

	"skytally/pkg/aggregate"
	"skytally/pkg/bluesky"
	errs "skytally/pkg/errors"
	"skytally/pkg/logger"
	"skytally/pkg/storage"
)

// Input is the kind of records an analysis consumes
type Input string

const (
	// InputHashtag is search results for a hashtag
	InputHashtag Input = "hashtag"
	// InputPost is the likes of a single post
	InputPost Input = "post"
	// InputUser is an author feed
	InputUser Input = "user"
)

// Dataset carries the records of one collection run. Only the slice that
// matches the analysis input is read.
type Dataset struct {
	Posts []bluesky.PostView
	Feed  []bluesky.FeedViewPost
	Likes []bluesky.Like
}

// Len returns the number of records for input
func (d Dataset) Len(input Input) int {
	switch input {
	case InputHashtag:
		return len(d.Posts)
	case InputPost:
		return len(d.Likes)
	case InputUser:
		return len(d.Feed)
	}
	return 0
}

// Params holds the post-processing applied to every table
type Params struct {
	Options aggregate.Options
	Range   aggregate.DateRange
}

// Result is the output of one analysis
type Result struct {
	Analysis    string                 `json:"analysis"`
	Title       string                 `json:"title"`
	KeyHeader   string                 `json:"-"`
	CountHeader string                 `json:"-"`
	Records     int                    `json:"records"`
	Table       aggregate.Table        `json:"table,omitempty"`
	Timeline    *aggregate.Timeline    `json:"timeline,omitempty"`
	Likers      []aggregate.LikerFlags `json:"likers,omitempty"`
	Diagnostics aggregate.Diagnostics  `json:"diagnostics"`
}

// Analysis is a named aggregation over one kind of input
type Analysis struct {
	Name        string
	Input       Input
	Title       string
	KeyHeader   string
	CountHeader string
	run         func(Dataset, Params, *Result)
}

var registry = map[string]Analysis{
	"hashtags": {
		Name: "hashtags", Input: InputHashtag,
		Title: "Most used hashtags", KeyHeader: "Hashtag", CountHeader: "Posts",
		run: func(d Dataset, p Params, r *Result) {
			r.Table, r.Diagnostics = aggregate.Hashtags(d.Posts, p.Options)
		},
	},
	"reposts": {
		Name: "reposts", Input: InputHashtag,
		Title: "Repost distribution", KeyHeader: "Reposts", CountHeader: "Posts",
		run: func(d Dataset, p Params, r *Result) {
			r.Table, r.Diagnostics = aggregate.RepostHistogram(d.Posts, p.Options)
		},
	},
	"likes-by-date": {
		Name: "likes-by-date", Input: InputHashtag,
		Title: "Likes by date", KeyHeader: "Date", CountHeader: "Likes",
		run: func(d Dataset, p Params, r *Result) {
			r.Table, r.Diagnostics = aggregate.LikesByDate(d.Posts, p.Range, p.Options)
		},
	},
	"flags": {
		Name: "flags", Input: InputPost,
		Title: "Flags of likers", KeyHeader: "Flag", CountHeader: "Likers",
		run: func(d Dataset, p Params, r *Result) {
			r.Table, r.Diagnostics = aggregate.Flags(d.Likes, p.Options)
			r.Likers = aggregate.FlaggedLikers(d.Likes)
		},
	},
	"likes-over-time": {
		Name: "likes-over-time", Input: InputPost,
		Title: "Likes over time", KeyHeader: "Time (UTC)", CountHeader: "Likes",
		run: func(d Dataset, p Params, r *Result) {
			tl, diag := aggregate.LikesOverTime(d.Likes)
			r.Timeline, r.Diagnostics = &tl, diag
		},
	},
	"reposted": {
		Name: "reposted", Input: InputUser,
		Title: "Most reposted users", KeyHeader: "User", CountHeader: "Reposts",
		run: func(d Dataset, p Params, r *Result) {
			r.Table, r.Diagnostics = aggregate.MostReposted(d.Feed, p.Options)
		},
	},
	"replied": {
		Name: "replied", Input: InputUser,
		Title: "Most replied-to users", KeyHeader: "User", CountHeader: "Replies",
		run: func(d Dataset, p Params, r *Result) {
			r.Table, r.Diagnostics = aggregate.MostRepliedTo(d.Feed, p.Options)
		},
	},
	"top-users": {
		Name: "top-users", Input: InputUser,
		Title: "Users with most posts", KeyHeader: "User", CountHeader: "Posts",
		run: func(d Dataset, p Params, r *Result) {
			r.Table, r.Diagnostics = aggregate.TopUsers(d.Feed, p.Options)
		},
	},
}

var defaults = map[Input]string{
	InputHashtag: "hashtags",
	InputPost:    "flags",
	InputUser:    "top-users",
}

// Lookup returns the analysis registered under name
func Lookup(name string) (Analysis, error) {
	a, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Analysis{}, errs.Validation("unknown analysis %q (available: %s)",
			name, strings.Join(Names(""), ", "))
	}
	return a, nil
}

// LookupFor returns the analysis name for input, or its default when name is
// empty. An analysis registered for another input is rejected.
func LookupFor(input Input, name string) (Analysis, error) {
	if strings.TrimSpace(name) == "" {
		name = defaults[input]
	}
	a, err := Lookup(name)
	if err != nil {
		return Analysis{}, err
	}
	if a.Input != input {
		return Analysis{}, errs.Validation("analysis %q needs %s input (available for %s: %s)",
			a.Name, a.Input, input, strings.Join(Names(input), ", "))
	}
	return a, nil
}

// Names lists the registered analyses for input, or all of them when input
// is empty, sorted by name
func Names(input Input) []string {
	var names []string
	for name, a := range registry {
		if input == "" || a.Input == input {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Run executes the analysis over data and logs every skipped record
func (a Analysis) Run(data Dataset, params Params, log logger.Logger) *Result {
	result := &Result{
		Analysis:    a.Name,
		Title:       a.Title,
		KeyHeader:   a.KeyHeader,
		CountHeader: a.CountHeader,
		Records:     data.Len(a.Input),
	}
	a.run(data, params, result)

	for _, s := range result.Diagnostics.Skipped {
		logger.LogSkipped(log, a.Name, s.Index, s.Reason)
	}
	log.InfoWithFields("analysis complete", map[string]interface{}{
		"analysis":  a.Name,
		"records":   result.Records,
		"processed": result.Diagnostics.Processed,
		"skipped":   len(result.Diagnostics.Skipped),
	})

	return result
}

// LoadFile reads a local dataset holding the records a needs
func (a Analysis) LoadFile(path string, log logger.Logger) (Dataset, error) {
	var (
		data      Dataset
		malformed []int
	)

	switch a.Input {
	case InputHashtag:
		ds, err := storage.LoadPosts(path)
		if err != nil {
			return data, err
		}
		data.Posts, malformed = ds.Items, ds.Malformed
	case InputPost:
		ds, err := storage.LoadLikes(path)
		if err != nil {
			return data, err
		}
		data.Likes, malformed = ds.Items, ds.Malformed
	case InputUser:
		ds, err := storage.LoadFeed(path)
		if err != nil {
			return data, err
		}
		data.Feed, malformed = ds.Items, ds.Malformed
	}

	if len(malformed) > 0 {
		log.WarnWithFields("skipped malformed dataset entries", map[string]interface{}{
			"path":    path,
			"count":   len(malformed),
			"indexes": malformed,
		})
	}
	return data, nil
}
