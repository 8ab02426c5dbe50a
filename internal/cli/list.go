package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/fcd/internal/auditor"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [prefix]",
		Short: "Show recorded files",
		Long: `Print every record, or only those at or below a directory prefix,
ordered by path.

Exit codes:
  0 - Records listed
  2 - Command error (store not found)

Examples:
  fcd list
  fcd --format json list /srv/data`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return runList(rootOpts, cmd, prefix)
		},
	}
}

func runList(opts *RootOptions, cmd *cobra.Command, prefix string) error {
	out, err := opts.dispatch(cmd, auditor.List{Location: opts.Config.DB, Prefix: prefix})
	if err != nil {
		return err
	}
	return finish(out, opts.Writer.Records(out.Records))
}
