package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"barscan/internal/api"
	"barscan/internal/scanlog"
)

const defaultHistoryLimit = 20

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently recorded scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			resp, err := loadHistory(cmd.Context(), ctx, limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, resp)
			}

			stdout := cmd.OutOrStdout()
			if len(resp.Entries) == 0 {
				fmt.Fprintf(stdout, "No scans recorded in %s\n", resp.Path)
				return nil
			}
			rows := make([][]string, 0, len(resp.Entries))
			for i, entry := range resp.Entries {
				observed := "-"
				if at := api.ParseTime(entry.ObservedAt); !at.IsZero() {
					observed = at.Local().Format(scanlog.TimestampLayout)
				}
				product := entry.Product
				if product == "" {
					product = "-"
				}
				rows = append(rows, []string{fmt.Sprintf("%d", i+1), entry.Value, observed, product})
			}
			fmt.Fprintln(stdout, renderTable(tableSpec{
				Headers: []string{"#", "Barcode", "Scanned", "Product"},
				Rows:    rows,
				Aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			}))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Number of scans to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print entries as JSON")
	return cmd
}

// loadHistory asks the daemon first and reads the scan log directly when it
// is not running.
func loadHistory(ctx context.Context, cmdCtx *commandContext, limit int) (api.ScansResponse, error) {
	client, err := cmdCtx.apiClient()
	if err == nil {
		resp, scansErr := client.Scans(ctx, limit)
		if scansErr == nil {
			return resp, nil
		}
		if !api.IsAPIUnavailable(scansErr) {
			return api.ScansResponse{}, scansErr
		}
	}

	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return api.ScansResponse{}, err
	}
	entries, err := scanlog.Recent(cfg.Paths.ScanLog, limit)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return api.ScansResponse{}, fmt.Errorf("read scan log: %w", err)
	}

	names := map[string]string{}
	if store, openErr := cmdCtx.openCatalog(); openErr == nil {
		defer store.Close()
		values := make([]string, 0, len(entries))
		for _, entry := range entries {
			values = append(values, entry.Value)
		}
		if found, namesErr := store.Names(ctx, values); namesErr == nil {
			names = found
		}
	}
	return api.ScansResponse{Path: cfg.Paths.ScanLog, Entries: api.FromEntries(entries, names)}, nil
}
