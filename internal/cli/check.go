package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/fcd/internal/auditor"
	"github.com/roach88/fcd/internal/fcderr"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	All     bool
	Single  bool
	Subtree bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Compare files against their records",
		Long: `Re-hash files and compare them with their recorded digests.

Without a path every record is checked; files that were never registered
are not looked for. With a regular file only that file is checked. With a
directory the tree is walked, so files added since registration show up as
UNTRACKED and missing ones as DELETED.

Statuses:
  OK          content matches the record
  MISMATCH    content changed
  DELETED     recorded file is gone
  UNTRACKED   file present on disk but never registered
  UNREADABLE  file or directory could not be read

Exit codes:
  0 - Every file is OK
  1 - Discrepancies found
  2 - Command error (store not found, path not tracked)

Examples:
  fcd check
  fcd check ./photos
  fcd -v --format json check /srv/data/report.pdf`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, cmd, args)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "check every record (the default without a path)")
	cmd.Flags().BoolVar(&opts.Single, "single", false, "treat the path as one registered file")
	cmd.Flags().BoolVar(&opts.Subtree, "subtree", false, "treat the path as a directory tree")
	cmd.MarkFlagsMutuallyExclusive("all", "single", "subtree")

	return cmd
}

func runCheck(opts *CheckOptions, cmd *cobra.Command, args []string) error {
	op := auditor.Check{Location: opts.Config.DB, Mode: auditor.CheckAll}
	if len(args) == 1 {
		if opts.All {
			return WrapExitError(ExitCommandError, "check failed",
				fcderr.New(fcderr.InvalidInput, "--all does not take a path"))
		}
		op.Path = args[0]
		switch {
		case opts.Single:
			op.Mode = auditor.CheckSingle
		case opts.Subtree:
			op.Mode = auditor.CheckSubtree
		default:
			op.Mode = auditor.CheckAuto
		}
	} else if opts.Single || opts.Subtree {
		return WrapExitError(ExitCommandError, "check failed",
			fcderr.New(fcderr.InvalidInput, "--single and --subtree need a path"))
	}

	out, err := opts.dispatch(cmd, op)
	if err != nil {
		return err
	}
	return finish(out, opts.Writer.Check(out.Mode.String(), out.Root, out.Result))
}
