package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"skytally/pkg/aggregate"
	"skytally/pkg/analysis"
	"skytally/pkg/bluesky"
	"skytally/pkg/collector"
	"skytally/pkg/config"
	errs "skytally/pkg/errors"
	"skytally/pkg/logger"
	"skytally/pkg/ui"
)

// queryFlags are shared by every command that prints a table
type queryFlags struct {
	analysis    string
	limit       int
	pageSize    int
	maxPages    int
	maxAttempts int
	timeout     time.Duration
	endpoints   []string
	min         int
	max         int
	top         int
	from        string
	to          string
	total       bool
	json        bool
}

func (f *queryFlags) register(cmd *cobra.Command, input analysis.Input, remote bool) {
	usage := fmt.Sprintf("analysis to run (%s)", strings.Join(analysis.Names(input), "|"))
	cmd.Flags().StringVarP(&f.analysis, "analysis", "a", "", usage)
	if remote {
		cmd.Flags().IntVarP(&f.limit, "limit", "l", 0, "maximum number of records to fetch (default from config, 2000)")
		cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "records per request, at most 100")
		cmd.Flags().IntVar(&f.maxPages, "max-pages", 0, "stop after this many pages")
		cmd.Flags().IntVar(&f.maxAttempts, "max-attempts", 0, "attempts per endpoint before falling back")
		cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "HTTP request timeout, e.g. 10s")
		cmd.Flags().StringSliceVar(&f.endpoints, "endpoint", nil, "XRPC base URL to query, repeat for fallbacks")
	}
	cmd.Flags().IntVar(&f.min, "min", 1, "drop entries counted fewer times")
	cmd.Flags().IntVar(&f.max, "max", 0, "drop entries counted more times (0 for no limit)")
	cmd.Flags().IntVar(&f.top, "top", 0, "keep only the N largest entries (0 for all)")
	cmd.Flags().StringVar(&f.from, "from", "", "first day to include, YYYY-MM-DD (likes-by-date)")
	cmd.Flags().StringVar(&f.to, "to", "", "last day to include, YYYY-MM-DD (likes-by-date)")
	cmd.Flags().BoolVar(&f.total, "total", false, "append a total row to the table")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the result as JSON")
}

// overrides returns the flags the user actually set, keyed as
// config.MergeCommandLineFlags expects
func (f *queryFlags) overrides(cmd *cobra.Command) map[string]interface{} {
	out := make(map[string]interface{})
	set := func(name string, value interface{}) {
		if cmd.Flags().Changed(name) {
			out[name] = value
		}
	}
	set("limit", f.limit)
	set("page-size", f.pageSize)
	set("max-pages", f.maxPages)
	set("max-attempts", f.maxAttempts)
	set("timeout", f.timeout)
	if cmd.Flags().Changed("endpoint") {
		out["endpoints"] = f.endpoints
	}
	set("min", f.min)
	set("max", f.max)
	set("top", f.top)
	set("from", f.from)
	set("to", f.to)
	if logLevel != "" {
		out["log-level"] = logLevel
	}
	return out
}

// session holds what a command needs once configuration is loaded
type session struct {
	cfg *config.Config
	log logger.Logger
}

func newSession(cmd *cobra.Command, f *queryFlags) (*session, error) {
	overrides := map[string]interface{}{}
	if f != nil {
		overrides = f.overrides(cmd)
	} else if logLevel != "" {
		overrides["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, overrides)
	if err != nil {
		return nil, &errs.Error{Kind: errs.KindValidation, Message: "invalid configuration", Err: err}
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log := logger.WithField("command", cmd.Name())
	log.DebugWithFields("configuration loaded", map[string]interface{}{
		"endpoints": cfg.API.Endpoints,
		"limit":     cfg.Pagination.Limit,
	})
	return &session{cfg: cfg, log: log}, nil
}

func (s *session) collector() (*collector.Collector, *bluesky.Client) {
	client := bluesky.NewClient(s.cfg, s.log)
	return collector.New(client, s.cfg, s.log), client
}

// params builds the aggregation parameters from the merged configuration
func (s *session) params() (analysis.Params, error) {
	start, err := config.ParseDate(s.cfg.Filter.StartDate)
	if err != nil {
		return analysis.Params{}, errs.Validation("invalid --from date %q", s.cfg.Filter.StartDate)
	}
	end, err := config.ParseDate(s.cfg.Filter.EndDate)
	if err != nil {
		return analysis.Params{}, errs.Validation("invalid --to date %q", s.cfg.Filter.EndDate)
	}

	return analysis.Params{
		Options: aggregate.Options{
			MinCount: s.cfg.Filter.MinCount,
			MaxCount: s.cfg.Filter.MaxCount,
			TopN:     s.cfg.Filter.TopN,
		},
		Range: aggregate.DateRange{Start: start, End: end},
	}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// report is the JSON document printed with --json
type report struct {
	Query   string           `json:"query"`
	Source  string           `json:"source"`
	Pages   int              `json:"pages,omitempty"`
	Stop    string           `json:"stop,omitempty"`
	Partial bool             `json:"partial"`
	Warning string           `json:"warning,omitempty"`
	Result  *analysis.Result `json:"result"`
}

// collection summarises a collector run for output
type collection struct {
	pages   int
	stop    collector.StopReason
	partial bool
	err     error
}

func collected[T any](r *collector.Result[T]) collection {
	return collection{pages: r.Pages, stop: r.Stop, partial: r.Partial(), err: r.Err}
}

// output prints the analysis result as a table or JSON
func (s *session) output(f *queryFlags, query, source string, c collection, result *analysis.Result) error {
	if c.partial {
		ui.PrintWarning("Collection stopped early, showing partial results", c.err)
		ui.PrintHint(errs.Guidance(c.err))
	}

	if f.json {
		rep := report{
			Query:   query,
			Source:  source,
			Pages:   c.pages,
			Stop:    string(c.stop),
			Partial: c.partial,
			Result:  result,
		}
		if c.err != nil {
			rep.Warning = c.err.Error()
		}
		return ui.WriteJSON(os.Stdout, rep)
	}

	ui.PrintInfo("Query", query)
	ui.PrintInfo("Records", strconv.Itoa(result.Records))
	if skipped := len(result.Diagnostics.Skipped); skipped > 0 {
		ui.PrintInfo("Skipped", strconv.Itoa(skipped))
	}

	if result.Timeline != nil {
		return ui.RenderTimeline(os.Stdout, *result.Timeline, result.Title)
	}

	err := ui.RenderTable(os.Stdout, result.Table, ui.TableOptions{
		Title:       result.Title,
		KeyHeader:   result.KeyHeader,
		CountHeader: result.CountHeader,
		ShowTotal:   f.total,
	})
	if err != nil {
		return err
	}
	if len(result.Likers) > 0 {
		fmt.Fprintln(os.Stdout)
		return ui.RenderLikers(os.Stdout, result.Likers, "Likers with flags")
	}
	return nil
}
