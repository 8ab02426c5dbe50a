package cli

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/fcd/internal/auditor"
	"github.com/roach88/fcd/internal/fcderr"
)

// stdio names standard output or input in place of a file.
const stdio = "-"

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export -o <file>",
		Short: "Write every record to a baseline file",
		Long: `Write every record to a zstd-compressed baseline file that import can
read on another machine or into another store. With -o - the baseline goes
to standard output and the summary to standard error.

Exit codes:
  0 - Baseline written
  2 - Command error (store not found, output not writable)

Examples:
  fcd export -o baseline.fcd
  fcd export -o - | ssh backup 'fcd import -'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "baseline file to write (- for stdout)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a baseline file into the store",
		Long: `Read a baseline written by export and store its records, replacing
records for the same paths. The baseline is validated completely before
anything is written. The store is created if it does not exist yet.

Exit codes:
  0 - Baseline imported
  2 - Command error (file not found, malformed baseline)

Examples:
  fcd import baseline.fcd
  fcd --db ./restored.db import - < baseline.fcd`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, cmd, args[0])
		},
	}
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	if opts.Output == stdio {
		out, err := opts.dispatch(cmd, auditor.Export{Location: opts.Config.DB, Out: cmd.OutOrStdout()})
		if err != nil {
			return err
		}
		w := *opts.Writer
		w.Out = cmd.ErrOrStderr()
		return finish(out, w.Exported(opts.Output, out.Transferred))
	}

	// Write next to the target and rename, so a failed export never leaves a
	// truncated baseline behind.
	tmp, err := os.CreateTemp(filepath.Dir(opts.Output), ".fcd-export-*")
	if err != nil {
		return WrapExitError(ExitCommandError, "export failed",
			fcderr.Wrap(err, fcderr.IOError, "create output file").WithDetail("file", opts.Output))
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return WrapExitError(ExitCommandError, "export failed",
			fcderr.Wrap(err, fcderr.IOError, "create output file").WithDetail("file", opts.Output))
	}

	out, err := opts.dispatch(cmd, auditor.Export{Location: opts.Config.DB, Out: tmp})
	if err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return WrapExitError(ExitCommandError, "export failed",
			fcderr.Wrap(err, fcderr.IOError, "write output file").WithDetail("file", opts.Output))
	}
	if err := os.Rename(tmp.Name(), opts.Output); err != nil {
		return WrapExitError(ExitCommandError, "export failed",
			fcderr.Wrap(err, fcderr.IOError, "write output file").WithDetail("file", opts.Output))
	}
	return finish(out, opts.Writer.Exported(opts.Output, out.Transferred))
}

func runImport(opts *RootOptions, cmd *cobra.Command, file string) error {
	if err := opts.prepare(); err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if file != stdio {
		f, err := os.Open(file)
		if errors.Is(err, fs.ErrNotExist) {
			return WrapExitError(ExitCommandError, "import failed",
				fcderr.New(fcderr.FileNotFound, "baseline file not found").WithDetail("file", file))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "import failed",
				fcderr.Wrap(err, fcderr.IOError, "open baseline file").WithDetail("file", file))
		}
		defer f.Close()
		in = f
	}

	out, err := opts.dispatch(cmd, auditor.Import{Location: opts.Config.DB, In: in})
	if err != nil {
		return err
	}
	return finish(out, opts.Writer.Imported(file, out.Transferred))
}
