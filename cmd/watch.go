package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dsclients/internal/config"
	"dsclients/internal/formatting"
	"dsclients/pkg/logging"
)

func newWatchCmd() *cobra.Command {
	flags := &paramFlags{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-apply a parameter file every time it changes",
		Long: `Apply the parameter file given with --config, then apply it again each time
the file changes. Runs never overlap. A failed run is reported and the
watcher keeps going.

Every run appends the listed clients again; remove clients that were already
added from the file before saving it.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.configFile == "" {
				return errors.New("--config is required")
			}
			opts, err := flags.formatOptions()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return watchAndApply(ctx, cmd, flags, opts)
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

func watchAndApply(ctx context.Context, cmd *cobra.Command, flags *paramFlags, opts formatting.Options) error {
	changes := make(chan struct{}, 1)
	changes <- struct{}{} // initial run

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return config.NewFileWatcher(flags.configFile, config.DefaultDebounce).Watch(ctx, changes)
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
				applyOnce(ctx, cmd, flags, opts)
			}
		}
	})

	return g.Wait()
}

func applyOnce(ctx context.Context, cmd *cobra.Command, flags *paramFlags, opts formatting.Options) {
	params, err := flags.load(cmd)
	if err != nil {
		logging.Error("Watch", err, "Not applying %s", flags.configFile)
		return
	}

	result := reconcile(ctx, params)
	if err := formatting.Write(cmd.OutOrStdout(), opts, result); err != nil {
		logging.Error("Watch", err, "Writing result failed")
	}
	if result.Failed {
		logging.Warn("Watch", "Run %s failed: %s", result.InvocationID, result.Msg)
	}
}
