package main

import (
	"time"

	"github.com/spf13/cobra"

	"barscan/internal/screen"
)

func newUICommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the scanning screen",
		Long: "Open a full-screen terminal view of the scanner: the scan guide, the status\n" +
			"banner, and the Scan and flash buttons (s/space to scan, f for the flash).",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			return screen.Run(cmd.Context(), client, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "refresh", 250*time.Millisecond, "Status refresh interval")
	return cmd
}
