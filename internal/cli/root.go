package cli

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/fcd/internal/auditor"
	"github.com/roach88/fcd/internal/config"
	"github.com/roach88/fcd/internal/logging"
	"github.com/roach88/fcd/internal/register"
	"github.com/roach88/fcd/internal/report"
	"github.com/roach88/fcd/internal/runid"
)

// RootOptions holds global flags for all commands, plus what
// PersistentPreRunE builds from them before a command runs.
type RootOptions struct {
	Verbosity  int
	ConfigFile string
	DB         string
	Format     string // "text" | "json" | "yaml"
	Color      string // "auto" | "always" | "never"
	Jobs       int
	LogFile    string

	Config  config.Config
	RunID   string
	Logger  zerolog.Logger
	Auditor *auditor.Auditor
	Writer  *report.Writer

	clock    auditor.Clock
	runIDs   runid.Source
	closeLog func() error
}

func newRootOptions(ids runid.Source, clock auditor.Clock) *RootOptions {
	return &RootOptions{
		Logger:   zerolog.Nop(),
		clock:    clock,
		runIDs:   ids,
		closeLog: func() error { return nil },
	}
}

// NewRootCommand creates the root command for the fcd CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(newRootOptions(runid.New, register.SystemClock{}))
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fcd",
		Short: "fcd - file change detector",
		Long: `Record content digests of files and later report which of them were
changed, deleted, or added.

Records live in a SQLite store (--db, default under the XDG data directory).
Settings are read from flags, FCD_* environment variables, and config.yaml
in the XDG config directory, in that order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	// Global flags. Empty values fall through to the environment, the config
	// file, and then the built-in defaults.
	flags := cmd.PersistentFlags()
	flags.CountVarP(&opts.Verbosity, "verbose", "v", "verbose output (repeat for debug logs)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default $XDG_CONFIG_HOME/fcd/config.yaml)")
	flags.StringVar(&opts.DB, "db", "", "record store location (default $XDG_DATA_HOME/fcd/fcd.db)")
	flags.StringVar(&opts.Format, "format", "", "output format (text|json|yaml) (default text)")
	flags.StringVar(&opts.Color, "color", "", "colorize text output (auto|always|never) (default auto)")
	flags.IntVarP(&opts.Jobs, "jobs", "j", 0, "files hashed concurrently (default 1)")
	flags.StringVar(&opts.LogFile, "log-file", "", "also append JSON logs to this file")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewAddFolderCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))

	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, newRootOptions(runid.New, register.SystemClock{}), args, stdout, stderr)
}

func execute(ctx context.Context, opts *RootOptions, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		opts.Logger.Debug().Err(err).Msg("command failed")
		reportError(opts.errorWriter(stdout, stderr), err)
	}
	if cerr := opts.closeLog(); cerr != nil && err == nil {
		reportError(opts.errorWriter(stdout, stderr), WrapExitError(ExitCommandError, "close log file", cerr))
		return ExitCommandError
	}
	return GetExitCode(err)
}

// setup resolves the configuration and builds the logger, the report writer,
// and the auditor shared by every command.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags(), o.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "load configuration", err)
	}
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return WrapExitError(ExitCommandError, "load configuration", err)
	}
	o.Config = cfg

	logger, closeLog, err := logging.Setup(logging.Options{
		Verbosity: o.Verbosity,
		Console:   cmd.ErrOrStderr(),
		NoColor:   !report.ColorEnabled(cfg.Color, cmd.ErrOrStderr()),
		File:      cfg.LogFile,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "open log file", err)
	}
	o.closeLog = closeLog

	o.RunID = o.runIDs()
	o.Logger = runid.Attach(logger, o.RunID)

	o.Writer = &report.Writer{
		Format:  format,
		Out:     cmd.OutOrStdout(),
		ErrOut:  cmd.ErrOrStderr(),
		Color:   report.ColorEnabled(cfg.Color, cmd.OutOrStdout()),
		Verbose: o.Verbosity > 0,
		RunID:   o.RunID,
	}
	o.Auditor = auditor.New(
		auditor.WithClock(o.clock),
		auditor.WithJobs(cfg.Jobs),
		auditor.WithLogger(logging.Component(o.Logger, "auditor")),
	)

	o.Logger.Debug().
		Str("command", cmd.Name()).
		Str("db", cfg.DB).
		Str("config_file", cfg.File).
		Int("jobs", cfg.Jobs).
		Msg("configuration loaded")
	return nil
}

// dispatch runs op against the configured store.
func (o *RootOptions) dispatch(cmd *cobra.Command, op auditor.Operation) (auditor.Outcome, error) {
	out, err := o.Auditor.Dispatch(cmd.Context(), op)
	if err != nil {
		return out, WrapExitError(ExitCommandError, cmd.Name()+" failed", err)
	}
	return out, nil
}

// prepare readies the store location for operations that may create it.
func (o *RootOptions) prepare() error {
	if err := config.PrepareDB(o.Config.DB); err != nil {
		return WrapExitError(ExitCommandError, "prepare store location", err)
	}
	return nil
}

// errorWriter returns the configured writer, or one built from the raw flags
// when setup never completed.
func (o *RootOptions) errorWriter(stdout, stderr io.Writer) *report.Writer {
	if o.Writer != nil {
		return o.Writer
	}
	format, err := report.ParseFormat(o.Format)
	if err != nil {
		format = report.Text
	}
	return &report.Writer{
		Format:  format,
		Out:     stdout,
		ErrOut:  stderr,
		Verbose: o.Verbosity > 0,
		RunID:   o.RunID,
	}
}
