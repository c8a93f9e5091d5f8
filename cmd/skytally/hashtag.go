package main

import (
	"github.com/spf13/cobra"

	"skytally/pkg/analysis"
	"skytally/pkg/bluesky"
)

var hashtagFlags queryFlags

// hashtagCmd represents the hashtag command
var hashtagCmd = &cobra.Command{
	Use:   "hashtag <tag>",
	Short: "Search posts for a hashtag and tally them",
	Long: `Search recent posts that use a hashtag and print a frequency table.

Analyses:
  hashtags       hashtags used alongside the searched one (default)
  reposts        how many posts reached each repost count
  likes-by-date  likes received per day of posting`,
	Example: `  # Hashtags used together with #golang
  skytally hashtag golang

  # Repost distribution over the last 500 posts, as JSON
  skytally hashtag '#bluesky' --analysis reposts --limit 500 --json

  # Likes per day for the first week of May
  skytally hashtag art -a likes-by-date --from 2024-05-01 --to 2024-05-07`,
	Args: cobra.ExactArgs(1),
	RunE: runHashtag,
}

func init() {
	rootCmd.AddCommand(hashtagCmd)
	hashtagFlags.register(hashtagCmd, analysis.InputHashtag, true)
}

func runHashtag(cmd *cobra.Command, args []string) error {
	a, err := analysis.LookupFor(analysis.InputHashtag, hashtagFlags.analysis)
	if err != nil {
		return err
	}
	s, err := newSession(cmd, &hashtagFlags)
	if err != nil {
		return err
	}
	params, err := s.params()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	c, _ := s.collector()
	tag := bluesky.NormalizeHashtag(args[0])
	s.log.WithField("analysis", a.Name).Info("Searching hashtag " + tag)

	res, err := c.SearchHashtag(ctx, tag, s.cfg.Pagination.Limit)
	if err != nil {
		return err
	}

	result := a.Run(analysis.Dataset{Posts: res.Items}, params, s.log)
	return s.output(&hashtagFlags, tag, "search", collected(res), result)
}
