package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"barscan/internal/events"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var natsURL string
	var raw bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream scan events published by the daemon over NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			url := strings.TrimSpace(natsURL)
			if url == "" {
				url = cfg.Events.NATSURL
			}
			if url == "" {
				return fmt.Errorf("no NATS server configured (set events.nats_url or pass --url)")
			}

			subscriber, err := events.NewNATSSubscriber(url)
			if err != nil {
				return fmt.Errorf("connect to NATS at %s: %w", url, err)
			}
			defer subscriber.Close()

			subject := events.Wildcard(cfg.Events.SubjectPrefix)
			messages, unsubscribe, err := subscriber.Subscribe(subject)
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", subject, err)
			}
			defer unsubscribe()

			watchCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stdout := cmd.OutOrStdout()
			fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s (Ctrl+C to stop)\n", subject)
			for {
				select {
				case <-watchCtx.Done():
					return nil
				case msg, ok := <-messages:
					if !ok {
						return nil
					}
					fmt.Fprintln(stdout, formatEvent(msg, raw))
				}
			}
		},
	}
	cmd.Flags().StringVar(&natsURL, "url", "", "NATS server URL (defaults to events.nats_url)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print event payloads unmodified")
	return cmd
}

// formatEvent prints the subject and, when present, the event's status
// message ahead of the JSON payload.
func formatEvent(msg events.Message, raw bool) string {
	if raw {
		return fmt.Sprintf("%s %s", msg.Subject, msg.Data)
	}
	var payload events.ScanCompleted
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.Message == "" {
		return fmt.Sprintf("%s %s", msg.Subject, msg.Data)
	}
	line := fmt.Sprintf("%s %s", msg.Subject, payload.Message)
	if payload.Product != "" {
		line += " (" + payload.Product + ")"
	}
	return line
}
