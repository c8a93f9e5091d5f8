package main

import (
	"github.com/spf13/cobra"

	"skytally/pkg/analysis"
	"skytally/pkg/collector"
)

var fileFlags queryFlags

// fileCmd represents the file command
var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Run an analysis over a saved JSON dataset",
	Long: `Run an analysis over records saved to disk instead of fetching them.

The file may be a JSON array of records, a saved API response (with the
records under "posts", "likes" or "feed") or JSON Lines. The analysis decides
which kind of record is expected:

  posts:  hashtags, reposts, likes-by-date
  likes:  flags, likes-over-time
  feed:   top-users, reposted, replied`,
	Example: `  skytally file posts.json --analysis hashtags --min 2
  skytally file likes.jsonl -a likes-over-time --json`,
	Args: cobra.ExactArgs(1),
	RunE: runFile,
}

func init() {
	rootCmd.AddCommand(fileCmd)
	fileFlags.register(fileCmd, "", false)
	_ = fileCmd.MarkFlagRequired("analysis")
}

func runFile(cmd *cobra.Command, args []string) error {
	a, err := analysis.Lookup(fileFlags.analysis)
	if err != nil {
		return err
	}
	s, err := newSession(cmd, &fileFlags)
	if err != nil {
		return err
	}
	params, err := s.params()
	if err != nil {
		return err
	}

	data, err := a.LoadFile(args[0], s.log)
	if err != nil {
		return err
	}

	result := a.Run(data, params, s.log)
	return s.output(&fileFlags, args[0], "file", collection{stop: collector.StopEndOfResults}, result)
}
