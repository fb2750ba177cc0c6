package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"barscan/internal/scanlog"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:     "show",
		Aliases: []string{"logs"},
		Short:   "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, "barscan.log")

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			opts := scanlog.TailOptions{Offset: -1, Limit: lines}
			if lines <= 0 {
				opts = scanlog.TailOptions{Offset: 0}
			}
			printed := false
			for {
				if follow {
					opts.Follow = true
					opts.Wait = time.Second
				}
				result, err := scanlog.Tail(runCtx, path, opts)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return fmt.Errorf("tail logs: %w", err)
				}
				for _, line := range result.Lines {
					fmt.Fprintln(cmd.OutOrStdout(), line)
					printed = true
				}
				if !follow {
					if !printed {
						fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
					}
					return nil
				}
				if runCtx.Err() != nil {
					return nil
				}
				opts = scanlog.TailOptions{Offset: result.Offset}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}
