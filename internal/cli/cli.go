package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pfrederiksen/cfp-search/internal/conference"
	"github.com/pfrederiksen/cfp-search/internal/config"
	"github.com/pfrederiksen/cfp-search/internal/filter"
	"github.com/pfrederiksen/cfp-search/internal/logger"
	"github.com/pfrederiksen/cfp-search/internal/metrics"
	"github.com/pfrederiksen/cfp-search/internal/scraper"
	"github.com/pfrederiksen/cfp-search/internal/server"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// Search defaults. The HTTP tool uses its own limit default.
const (
	DefaultKeywords = "ai agent"
	DefaultLimit    = 5
)

// errSearchFailed marks a search whose envelope reported an error. The
// envelope has already been printed, so Execute only sets the exit code.
var errSearchFailed = errors.New("search failed")

// app carries state shared by the subcommands of one root command.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	log        *logger.Logger
}

type searchOptions struct {
	limit   int
	year    string
	format  string
	sort    string
	workers int
	timeout time.Duration
	verbose bool

	// client-side filtering
	where    []string
	match    []string
	deadline string
	open     bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	cmd := &cobra.Command{
		Use:   "cfp-search",
		Short: "Search WikiCFP for academic calls for papers",
		Long: `A CLI tool to search WikiCFP for conference calls for papers.
Each listing is enriched with the notification date, the conference website
and related events from its detail page.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Path to a YAML config file (default ./config.yaml if present)")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	bindFlags(a.v, flags, map[string]string{
		"log-level": "log_level",
	})

	cmd.AddCommand(a.newSearchCmd(), a.newServeCmd())
	return cmd
}

// bindFlags binds each named flag to its viper key so flags override
// environment and file settings.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if f := flags.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// load reads the configuration and installs the default logger.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Level()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = logger.LevelDebug
	}
	a.log = logger.New(level, cmd.ErrOrStderr())
	logger.SetDefault(a.log)
	return nil
}

func (a *app) newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [keywords...]",
		Short: "Search for calls for papers matching keywords",
		Long: `Search WikiCFP and print the result envelope.
Without keywords the search runs for "ai agent".`,
		Example: `  cfp-search search machine learning --limit 3
  cfp-search search "computer vision" --year all --format text --sort deadline
  cfp-search search nlp --format ics > deadlines.ics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keywords := strings.TrimSpace(strings.Join(args, " "))
			if keywords == "" {
				keywords = DefaultKeywords
			}
			return a.runSearch(cmd.Context(), cmd.OutOrStdout(), keywords, opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.limit, "limit", DefaultLimit, "Maximum number of conferences to return (0 for all)")
	flags.StringVar(&opts.year, "year", "", "Year filter: this_year, next_year or all (default from config)")
	flags.StringVar(&opts.format, "format", string(FormatJSON), "Output format: json, text or ics")
	flags.StringVar(&opts.sort, "sort", string(SortNone), "Sort order: none, deadline, when or name")
	flags.IntVar(&opts.workers, "workers", config.DefaultDetailWorkers, "Concurrent detail page fetches")
	flags.DurationVar(&opts.timeout, "timeout", config.DefaultRequestTimeout, "Timeout for each HTTP request")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging and detailed text output")
	flags.StringSliceVar(&opts.where, "where", nil, "Keep conferences whose location contains any of these values")
	flags.StringSliceVar(&opts.match, "match", nil, "Keep conferences whose name or title contains any of these values")
	flags.StringVar(&opts.deadline, "deadline", "", "Keep deadlines in a range: 'Mar 1-15', 'March 1 - April 15' or 'March'")
	flags.BoolVar(&opts.open, "open", false, "Drop conferences whose submission deadline has passed")

	bindFlags(a.v, flags, map[string]string{
		"year":    "year",
		"workers": "detail_workers",
		"timeout": "request_timeout",
	})

	return cmd
}

// runSearch runs one search and writes the envelope to w.
func (a *app) runSearch(ctx context.Context, w io.Writer, keywords string, opts searchOptions) error {
	format, err := ParseOutputFormat(opts.format)
	if err != nil {
		return err
	}
	order, err := ParseSortOrder(opts.sort)
	if err != nil {
		return err
	}
	f, err := buildFilter(opts, time.Now())
	if err != nil {
		return err
	}

	a.log.Debug("starting search", logger.Fields{
		"keywords": keywords,
		"limit":    opts.limit,
		"year":     a.cfg.Year,
		"workers":  a.cfg.DetailWorkers,
	})

	sc := scraper.New(a.cfg, scraper.WithLogger(a.log))
	result := sc.Search(ctx, keywords, opts.limit)

	if result.OK() && !f.IsEmpty() {
		warnings := result.Warnings
		result = conference.Success(f.Apply(result.Events, time.Now()))
		result.Warnings = warnings
		a.log.Debug("filtered results", logger.Fields{"filter": f.String(), "count": len(result.Events)})
	}

	sortRecords(result.Events, order)

	if err := WriteOutput(w, result, format, opts.verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if !result.OK() {
		return errSearchFailed
	}
	return nil
}

// buildFilter turns the filtering flags into a filter.Filter.
func buildFilter(opts searchOptions, now time.Time) (*filter.Filter, error) {
	f := filter.NewFilter()
	f.Locations = append(f.Locations, opts.where...)
	f.Names = append(f.Names, opts.match...)
	f.OpenOnly = opts.open

	if opts.deadline != "" {
		from, to, err := filter.ParseDateRange(opts.deadline, now)
		if err != nil {
			return nil, fmt.Errorf("invalid --deadline: %w", err)
		}
		f.DeadlineFrom, f.DeadlineTo = from, to
	}
	return f, nil
}

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the get_events tool over HTTP",
		Long: `Serve GET/POST /tools/get_events, /healthz and /metrics until
interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx)
		},
	}

	cmd.Flags().String("addr", config.DefaultListenAddr, "Address to listen on")
	bindFlags(a.v, cmd.Flags(), map[string]string{
		"addr": "listen_addr",
	})

	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	sc := scraper.New(a.cfg,
		scraper.WithLogger(a.log),
		scraper.WithMetrics(m),
	)

	srv := server.New(sc, reg, a.log)
	return srv.ListenAndServe(ctx, a.cfg.ListenAddr)
}

// Execute runs the CLI and exits with ExitError on failure.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the root command with args and returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	_ = logger.Default().Sync()
	if err == nil {
		return ExitSuccess
	}
	if !errors.Is(err, errSearchFailed) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return ExitError
}
