package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/fcd/internal/auditor"
)

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path>",
		Short: "Forget the record for a path",
		Long: `Delete the record for a path. The file itself is not touched and does
not need to exist. Removing a path that has no record changes nothing.

Exit codes:
  0 - Record removed, or there was none
  2 - Command error (store not found)

Examples:
  fcd remove ./old-report.pdf`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(rootOpts, cmd, args[0])
		},
	}
}

func runRemove(opts *RootOptions, cmd *cobra.Command, path string) error {
	out, err := opts.dispatch(cmd, auditor.Remove{Location: opts.Config.DB, Path: path})
	if err != nil {
		return err
	}
	return finish(out, opts.Writer.Removed(out.Path, out.Removed))
}
