package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/fcd/internal/auditor"
)

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>",
		Short: "Register one file",
		Long: `Hash a file and record its digest, replacing any earlier record for
the same path. The store is created if it does not exist yet.

Exit codes:
  0 - File registered
  2 - Command error (file not found, not a regular file, store unusable)

Examples:
  fcd add ./report.pdf
  fcd --db ./audit.db add /etc/hosts`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(rootOpts, cmd, args[0])
		},
	}
}

// NewAddFolderCommand creates the add-folder command.
func NewAddFolderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add-folder <dir>",
		Short: "Register every file below a directory",
		Long: `Walk a directory tree and register every regular file in it. Files
that cannot be read are skipped and reported; the rest are stored in one
transaction. Symlinked directories are not descended; symlinked files are
hashed as their target.

Exit codes:
  0 - All files registered
  1 - Some files were skipped
  2 - Command error (directory not found, store unusable)

Examples:
  fcd add-folder ./photos
  fcd -j 8 add-folder /srv/data`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddFolder(rootOpts, cmd, args[0])
		},
	}
}

func runAdd(opts *RootOptions, cmd *cobra.Command, path string) error {
	if err := opts.prepare(); err != nil {
		return err
	}
	out, err := opts.dispatch(cmd, auditor.Add{Location: opts.Config.DB, Path: path})
	if err != nil {
		return err
	}
	return finish(out, opts.Writer.Registrations(out.Registered))
}

func runAddFolder(opts *RootOptions, cmd *cobra.Command, root string) error {
	if err := opts.prepare(); err != nil {
		return err
	}
	out, err := opts.dispatch(cmd, auditor.AddFolder{Location: opts.Config.DB, Root: root})
	if err != nil {
		return err
	}
	return finish(out, opts.Writer.Registrations(out.Registered))
}
