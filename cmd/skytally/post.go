package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skytally/pkg/analysis"
	"skytally/pkg/bluesky"
	"skytally/pkg/ui"
)

var (
	postFlags queryFlags
	showEmbed bool
)

// postCmd represents the post command
var postCmd = &cobra.Command{
	Use:   "post <url>",
	Short: "Tally the likes of a post",
	Long: `Fetch the likes of a post given its bsky.app link and print a table.

Analyses:
  flags            flag emoji found in the display names of likers (default)
  likes-over-time  likes bucketed per minute, hour or day depending on the span`,
	Example: `  # Where do the likers come from?
  skytally post https://bsky.app/profile/alice.bsky.social/post/3kq2x7abcd

  # When did the likes arrive?
  skytally post https://bsky.app/profile/alice.bsky.social/post/3kq2x7abcd -a likes-over-time

  # Print the embeddable HTML snippet of the post
  skytally post https://bsky.app/profile/alice.bsky.social/post/3kq2x7abcd --embed`,
	Args: cobra.ExactArgs(1),
	RunE: runPost,
}

func init() {
	rootCmd.AddCommand(postCmd)
	postFlags.register(postCmd, analysis.InputPost, true)
	postCmd.Flags().BoolVar(&showEmbed, "embed", false, "print the oEmbed HTML of the post instead of tallying likes")
}

// canonicalPostURL rewrites a post link to its bsky.app form, dropping query
// strings and trailing path segments. Unparseable input is returned as is.
func canonicalPostURL(postURL string) string {
	actor, rkey, err := bluesky.ParsePostURL(postURL)
	if err != nil {
		return postURL
	}
	return bluesky.GetPostURL(actor, rkey)
}

func runPost(cmd *cobra.Command, args []string) error {
	a, err := analysis.LookupFor(analysis.InputPost, postFlags.analysis)
	if err != nil {
		return err
	}
	s, err := newSession(cmd, &postFlags)
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
	postURL := args[0]

	if showEmbed {
		embed, err := client.Embed(ctx, postURL)
		if err != nil {
			return err
		}
		if postFlags.json {
			return ui.WriteJSON(os.Stdout, embed)
		}
		ui.PrintInfo("Author", embed.AuthorName)
		_, err = fmt.Fprintln(os.Stdout, embed.HTML)
		return err
	}

	res, err := c.PostLikes(ctx, postURL, s.cfg.Pagination.Limit)
	if err != nil {
		return err
	}

	result := a.Run(analysis.Dataset{Likes: res.Items}, params, s.log)
	return s.output(&postFlags, canonicalPostURL(postURL), "likes", collected(res), result)
}
