package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/fcd/internal/auditor"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty record store",
		Long: `Create an empty record store at the configured location.

An existing file at that location is never overwritten.

Exit codes:
  0 - Store created
  2 - Command error (store already exists, location not writable)

Examples:
  fcd init
  fcd --db /srv/audit/fcd.db init`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	if err := opts.prepare(); err != nil {
		return err
	}
	location := opts.Config.DB
	out, err := opts.dispatch(cmd, auditor.Init{Location: location})
	if err != nil {
		return err
	}
	return finish(out, opts.Writer.Initialized(location))
}
