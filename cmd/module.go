package cmd

import (
	"github.com/spf13/cobra"

	"dsclients/internal/config"
	"dsclients/internal/formatting"
	"dsclients/internal/reconciler"
	"dsclients/pkg/logging"
)

// newModuleCmd creates the Ansible binary module entrypoint. Ansible passes
// the path of a JSON args file and reads a JSON result from stdout.
func newModuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "module <args-file>",
		Short: "Run as an Ansible binary module",
		Long: `Run as an Ansible binary module.

Ansible calls the binary with the path of a JSON file holding the module
options (deployment_server, username, password, server_class, clients) and
reads the JSON result from stdout. Check mode is taken from
_ansible_check_mode. Logs go to stderr as JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := runModule(cmd, args[0])
			if err := formatting.Write(cmd.OutOrStdout(), formatting.Options{Format: formatting.FormatJSON, Quiet: true}, result); err != nil {
				return err
			}
			return result.Err()
		},
	}
}

func runModule(cmd *cobra.Command, argsFile string) reconciler.Result {
	params, err := config.LoadFile(argsFile)
	if err != nil {
		return reconciler.InvalidResult("", err)
	}

	level := logging.LevelWarn
	if params.AnsibleVerbosity >= 3 {
		level = logging.LevelDebug
	} else if params.AnsibleVerbosity >= 1 {
		level = logging.LevelInfo
	}
	logging.InitJSON(level, cmd.ErrOrStderr())

	params.ApplyEnv(nil)
	if err := params.Validate(); err != nil {
		return reconciler.InvalidResult(params.ServerClass, err)
	}

	return reconcile(cmd.Context(), params)
}
