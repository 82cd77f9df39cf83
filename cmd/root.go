package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dsclients/internal/config"
	"dsclients/internal/reconciler"
	"dsclients/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (request failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeInvalidParams indicates the parameters did not validate.
	ExitCodeInvalidParams = 2
	// ExitCodeAuthFailed indicates the login to the deployment server failed.
	ExitCodeAuthFailed = 3
)

var logLevel string

// rootCmd represents the base command for the dsclients application.
var rootCmd = &cobra.Command{
	Use:   "dsclients",
	Short: "Add clients to a Splunk deployment server class",
	Long: `dsclients appends client endpoints to the whitelist of a server class on a
Splunk deployment server, creating the class when it does not exist, and
reloads the deployment server so connected agents pick up the change.

It runs as a regular CLI (dsclients apply) or as an Ansible binary module
(dsclients module <args-file>).`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logging.InitForCLI(level, cmd.ErrOrStderr())
		return nil
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "dsclients version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var failed *reconciler.FailedError
	if errors.As(err, &failed) {
		if failed.Result.FailedStep == reconciler.StepAuthenticate {
			return ExitCodeAuthFailed
		}
		return ExitCodeError
	}

	var invalid config.ValidationErrors
	if errors.As(err, &invalid) {
		return ExitCodeInvalidParams
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", fmt.Sprintf("Log level written to stderr (%s)", "debug, info, warn, error"))

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newModuleCmd())
	rootCmd.AddCommand(newWatchCmd())
}
