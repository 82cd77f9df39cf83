// Package logging provides subsystem-tagged structured logging for dsclients.
//
// The package is a thin layer over log/slog. Every entry carries a
// "subsystem" attribute so log lines from the CLI, the configuration loader,
// the deployment server client and the reconciler can be told apart:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//	logging.Info("Reconciler", "Server class %s does not exist, creating it", name)
//	logging.Error("Deployment", err, "Reload of %s failed", name)
//
// Logs are always written to the writer passed at initialisation (stderr for
// the CLI) so stdout stays reserved for the machine-readable result that
// Ansible parses.
//
// Credentials must never be passed to these functions. Types that hold
// secrets implement slog.LogValuer and redact themselves.
package logging
