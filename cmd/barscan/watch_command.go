package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"barscan/internal/config"
	"barscan/internal/scanlog"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var path string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the scan log and print each recorded barcode",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ctx.configValue().Paths.ScanLog
			if path != "" {
				expanded, err := config.ExpandPath(path)
				if err != nil {
					return err
				}
				target = expanded
			}

			watchCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stdout := cmd.OutOrStdout()
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", target)
			err := scanlog.Watch(watchCtx, target, interval, func(line string) {
				entry, _ := scanlog.ParseLine(line)
				fmt.Fprintf(stdout, "Scanned: %s\n", entry.Value)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Scan log to follow (defaults to paths.scan_log)")
	cmd.Flags().DurationVar(&interval, "interval", scanlog.DefaultWatchInterval, "Polling interval")
	return cmd
}
