package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/detest/internal/report"
	"github.com/roach88/detest/internal/store"
)

// HistoryOptions holds flags for the history and show commands.
type HistoryOptions struct {
	*RootOptions
	DB    string
	Limit int
}

// RunSummary is one row of the history listing.
type RunSummary struct {
	ID        string    `json:"id"`
	Suite     string    `json:"suite"`
	StartedAt time.Time `json:"started_at"`
	Seconds   float64   `json:"seconds"`
	Pass      int       `json:"pass"`
	Fail      int       `json:"fail"`
	Error     int       `json:"error"`

	// Fingerprint identifies the failure set; equal values failed the same way.
	Fingerprint string `json:"fingerprint"`
}

// HistoryResult is the output of the history command.
type HistoryResult struct {
	Runs []RunSummary `json:"runs"`
}

// WriteText renders the runs as an aligned table.
func (r HistoryResult) WriteText(w io.Writer) error {
	if len(r.Runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSUITE\tSTARTED\tPASS\tFAIL\tERROR\tTIME\tFINGERPRINT")
	for _, run := range r.Runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%.3fs\t%s\n",
			run.ID, run.Suite, run.StartedAt.Format(time.RFC3339),
			run.Pass, run.Fail, run.Error, run.Seconds, shortFingerprint(run.Fingerprint))
	}
	return tw.Flush()
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List recorded runs, newest first.

The database defaults to the history path of the config file.

Examples:
  detest history
  detest history --limit 5 --db .detest/history.db
  detest history --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "history database (default from config)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs (0 = all)")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	s, format, err := opts.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "list runs", err)
	}

	result := HistoryResult{Runs: make([]RunSummary, len(runs))}
	for i, run := range runs {
		result.Runs[i] = summarize(run)
	}
	return opts.formatter(cmd, format).Success(result)
}

// ShowResult is the output of the show command.
type ShowResult struct {
	Run      RunSummary            `json:"run"`
	Failures []store.FailureRecord `json:"failures"`
	Trace    string                `json:"trace"`
}

// WriteText renders the run's stats, failures and trace.
func (r ShowResult) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "run %s (%s) started %s\n", r.Run.ID, r.Run.Suite, r.Run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "%d passed, %d failed, %d errors in %.3fs\n", r.Run.Pass, r.Run.Fail, r.Run.Error, r.Run.Seconds)

	if len(r.Failures) > 0 {
		fmt.Fprintln(w, "\nfailures:")
		for _, f := range r.Failures {
			fmt.Fprintf(w, "  %s: %s %s\n", f.Path, f.Kind, f.Message)
			if f.Location != "" {
				fmt.Fprintf(w, "    at %s\n", f.Location)
			}
		}
	}

	fmt.Fprintln(w, "\ntrace:")
	for _, line := range strings.Split(strings.TrimRight(r.Trace, "\n"), "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
	return nil
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run",
		Long: `Show the stats, failures and trace of one recorded run.

Examples:
  detest show 01890a5d-ac96-774b-bcce-b302099a8057
  detest show 01890a5d-ac96-774b-bcce-b302099a8057 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "history database (default from config)")

	return cmd
}

func runShow(cmd *cobra.Command, opts *HistoryOptions, id string) error {
	s, format, err := opts.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := s.GetRun(cmd.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", id))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "read run", err)
	}

	return opts.formatter(cmd, format).Success(ShowResult{
		Run:      summarize(run),
		Failures: run.Failures,
		Trace:    run.Trace,
	})
}

// openStore resolves the database path and output format and opens the
// store. The database must already exist.
func (o *HistoryOptions) openStore() (*store.Store, string, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, "", err
	}
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return nil, "", WrapExitError(ExitCommandError, "invalid format", err)
	}

	path := o.DB
	if path == "" {
		path = cfg.History
	}
	if path == "" {
		return nil, "", NewExitError(ExitCommandError, "no history database: pass --db or set history in the config file")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, "", WrapExitError(ExitCommandError, "history database not found", err)
	}

	s, err := store.Open(path)
	if err != nil {
		return nil, "", WrapExitError(ExitCommandError, "open history", err)
	}
	return s, string(format), nil
}

func summarize(run store.Run) RunSummary {
	return RunSummary{
		ID:        run.ID,
		Suite:     run.Suite,
		StartedAt: run.StartedAt,
		Seconds:   run.Stats.Time.Seconds(),
		Pass:      run.Stats.Pass,
		Fail:      run.Stats.Fail,
		Error:     run.Stats.Error,

		Fingerprint: run.Fingerprint,
	}
}

// shortFingerprint abbreviates a fingerprint for tables.
func shortFingerprint(fp string) string {
	if fp == "" {
		return "-"
	}
	return fp[:min(len(fp), 12)]
}
