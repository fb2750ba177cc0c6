package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"barscan/internal/api"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var timeout time.Duration
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Arm the scanner for one attempt",
		Long: "Arm the scanner so the next camera frame is read. With --wait the command\n" +
			"blocks until that attempt finishes and prints its status message.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			reqCtx := cmd.Context()
			if wait && timeout > 0 {
				var cancel context.CancelFunc
				reqCtx, cancel = context.WithTimeout(reqCtx, timeout)
				defer cancel()
			}
			resp, err := client.Scan(reqCtx, wait)
			if err != nil {
				return wrapAPIError(err, client)
			}
			if jsonOut {
				return writeJSON(cmd, resp)
			}

			stdout := cmd.OutOrStdout()
			if !wait || resp.Outcome == nil {
				fmt.Fprintln(stdout, "Scanner armed")
				return nil
			}
			fmt.Fprintln(stdout, renderOutcome(*resp.Outcome, shouldColorize(stdout)))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the attempt to finish")
	cmd.Flags().DurationVar(&timeout, "timeout", 35*time.Second, "Give up waiting after this long")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the response as JSON")
	return cmd
}

func newTorchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "torch",
		Aliases: []string{"flash"},
		Short:   "Toggle the camera flash",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			resp, err := client.Torch(cmd.Context())
			if err != nil {
				return wrapAPIError(err, client)
			}
			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Flash %s\n", onOff(resp.On))
			if resp.Error != "" {
				fmt.Fprintf(stdout, "warning: flash device did not respond: %s\n", resp.Error)
			}
			return nil
		},
	}
}

func renderOutcome(outcome api.Outcome, colorize bool) string {
	line := outcome.Message
	if outcome.Product != "" {
		line += " (" + outcome.Product + ")"
	}
	if colorize {
		if color := statusKindColor(outcomeKind(outcome.Kind)); color != "" {
			line = color + line + ansiReset
		}
	}
	if outcome.PersistError != "" {
		line += "\nwarning: scan not recorded: " + outcome.PersistError
	}
	return line
}
