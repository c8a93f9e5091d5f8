package main

import (
	"github.com/spf13/cobra"

	"skytally/pkg/analysis"
)

var userFlags queryFlags

// userCmd represents the user command
var userCmd = &cobra.Command{
	Use:   "user <handle>",
	Short: "Tally the accounts an author interacts with",
	Long: `Fetch the feed of an account and rank the accounts appearing in it.

The handle may be given as alice.bsky.social, @alice.bsky.social, a DID or a
profile URL.

Analyses:
  top-users  authors of the posts in the feed, including quoted ones (default)
  reposted   authors the account quotes most
  replied    authors the account replies to most`,
	Example: `  # Who shows up most in this feed?
  skytally user alice.bsky.social

  # Ten accounts alice replies to most
  skytally user @alice.bsky.social -a replied --top 10`,
	Args: cobra.ExactArgs(1),
	RunE: runUser,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userFlags.register(userCmd, analysis.InputUser, true)
}

func runUser(cmd *cobra.Command, args []string) error {
	a, err := analysis.LookupFor(analysis.InputUser, userFlags.analysis)
	if err != nil {
		return err
	}
	s, err := newSession(cmd, &userFlags)
	if err != nil {
		return err
	}
	params, err := s.params()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	c, client := s.collector()

	did, err := client.ResolveHandle(ctx, args[0])
	if err != nil {
		return err
	}
	s.log.WithFields(map[string]interface{}{"handle": args[0], "did": did}).Debug("handle resolved")

	res, err := c.AuthorFeed(ctx, did, s.cfg.Pagination.Limit)
	if err != nil {
		return err
	}

	result := a.Run(analysis.Dataset{Feed: res.Items}, params, s.log)
	return s.output(&userFlags, args[0], "author_feed", collected(res), result)
}
