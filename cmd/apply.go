package cmd

import (
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"dsclients/internal/formatting"
)

func newApplyCmd() *cobra.Command {
	flags := &paramFlags{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Add clients to a server class and reload the deployment server",
		Long: `Add clients to the whitelist of a server class on a Splunk deployment server.

The server class is created when it does not exist. Otherwise the clients are
appended after the entries already on the whitelist. The deployment server is
then reloaded so connected agents pick up the change.

Parameters come from --config and/or flags; flags win. The password is best
passed through $DSCLIENTS_PASSWORD.

Examples:
  dsclients apply -s 192.168.0.10 -u admin --server-class CLASS_FWRD_TEST \
    --client 127.0.0.1 --client 127.0.0.2
  dsclients apply -c params.yaml --check -o json`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := flags.load(cmd)
			if err != nil {
				return err
			}
			opts, err := flags.formatOptions()
			if err != nil {
				return err
			}

			var s *spinner.Spinner
			if !flags.quiet && opts.Format == formatting.FormatTable {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
				s.Suffix = " Reconciling server class " + params.ServerClass + "..."
				s.Start()
			}

			result := reconcile(cmd.Context(), params)

			if s != nil {
				s.Stop()
			}

			if err := formatting.Write(cmd.OutOrStdout(), opts, result); err != nil {
				return err
			}
			return result.Err()
		},
	}

	flags.register(cmd.Flags())
	return cmd
}
