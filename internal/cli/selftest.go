package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/detest/internal/debugger"
	"github.com/roach88/detest/internal/engine"
	"github.com/roach88/detest/internal/report"
	"github.com/roach88/detest/internal/selftest"
	"github.com/roach88/detest/internal/store"
)

// SelftestOptions holds flags for the selftest command.
type SelftestOptions struct {
	*RootOptions
	Debug   bool
	Filter  string
	History string
	NoColor bool
}

// NewSelftestCommand creates the selftest command.
func NewSelftestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SelftestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run the engine's own test suite",
		Long: `Run the engine's own test suite and print its report.

Failures are printed as they happen, nested under the tests that
enclose them. The full trace is printed only when everything passed,
followed by the stats.

Exit codes:
  0     - All assertions passed
  1-255 - Number of failures plus errors, capped at 255
  2     - Command error (invalid config, unreadable history, etc.)

A run with one or two failures exits 1 or 2 as well; a command error
is told apart by its message on stderr.

Examples:
  detest selftest
  detest selftest --filter "hooks/**"
  detest selftest --history .detest/history.db
  detest selftest --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelftest(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "investigate failures interactively")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "run only tests whose path matches the glob")
	cmd.Flags().StringVar(&opts.History, "history", "", "record the run in this history database")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "disable colored summary")

	return cmd
}

func runSelftest(cmd *cobra.Command, opts *SelftestOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug = opts.Debug
	}
	if flags.Changed("filter") {
		cfg.Filter = opts.Filter
	}
	if flags.Changed("history") {
		cfg.History = opts.History
	}
	if flags.Changed("no-color") {
		cfg.Color = !opts.NoColor
	}

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid format", err)
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	printer := report.NewPrinter(out, format)

	engineOpts := []engine.Option{
		engine.WithReporter(printer),
		engine.WithLogger(opts.logger(errOut)),
		engine.WithDebug(cfg.Debug),
	}
	if cfg.Debug {
		engineOpts = append(engineOpts, engine.WithDebugger(debugger.New(errOut)))
	}
	if cfg.Filter != "" {
		if err := engine.ValidateFilter(cfg.Filter); err != nil {
			return WrapExitError(ExitCommandError, "invalid filter", err)
		}
		engineOpts = append(engineOpts, engine.WithFilter(cfg.Filter))
	}

	e := engine.New(engineOpts...)
	selftest.Register(e)

	started := time.Now()
	rep, err := e.Run()
	if err != nil {
		return WrapExitError(ExitCommandError, "selftest aborted", err)
	}
	if err := printer.Err(); err != nil {
		return WrapExitError(ExitCommandError, "print report", err)
	}

	writeSummary(errOut, rep.Stats, cfg.Color)

	if cfg.History != "" {
		id, err := recordRun(cmd.Context(), cfg.History, started, rep)
		if err != nil {
			return WrapExitError(ExitCommandError, "record run", err)
		}
		opts.formatter(cmd, string(format)).VerboseLog("recorded run %s in %s", id, cfg.History)
	}

	if code := rep.ExitCode(); code != ExitSuccess {
		return NewExitError(code, "")
	}
	return nil
}

// writeSummary prints the one-line stats summary, green when the run
// passed and red otherwise. Color also follows the terminal detection
// of fatih/color.
func writeSummary(w io.Writer, s engine.Stats, useColor bool) {
	c := color.New(color.FgGreen, color.Bold)
	if s.Failed() > 0 {
		c = color.New(color.FgRed, color.Bold)
	}
	if !useColor {
		c.DisableColor()
	}
	fmt.Fprintln(w, c.Sprint(report.Summary(s)))
}

func recordRun(ctx context.Context, path string, started time.Time, rep *engine.Report) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create history directory: %w", err)
		}
	}

	s, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer s.Close()

	run, err := store.NewRun(selftest.Name, started, rep, store.UUIDv7Generator{})
	if err != nil {
		return "", err
	}
	if err := s.WriteRun(ctx, run); err != nil {
		return "", err
	}
	return run.ID, nil
}
