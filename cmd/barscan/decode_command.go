package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"barscan/internal/config"
	"barscan/internal/frame"
	"barscan/internal/logging"
	"barscan/internal/recognize"
	"barscan/internal/scan"
	"barscan/internal/scanlog"
)

func newDecodeCommand(ctx *commandContext) *cobra.Command {
	var record bool
	var logPath string

	cmd := &cobra.Command{
		Use:   "decode <image>...",
		Short: "Read barcodes from image files without a camera",
		Long: "Run the recognizer and duplicate filter over image files in order, printing\n" +
			"the same status message the scanner shows. Accepted values are appended to\n" +
			"the scan log unless --record=false.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			recognizer, err := recognize.NewZXing(cfg.Scan.Symbologies, cfg.Scan.TryHarder)
			if err != nil {
				return err
			}

			handler, err := logging.NewHandler("console", "warn", cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			logger := slog.New(handler)

			var appender scan.Appender = discardAppender{}
			if record {
				target := cfg.Paths.ScanLog
				if logPath != "" {
					if target, err = config.ExpandPath(logPath); err != nil {
						return err
					}
				}
				appender = scanlog.NewWriter(target)
			}
			controller := scan.NewController(cfg.DedupWindow(), appender, logger)

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			var failed int
			for i, path := range args {
				data, readErr := os.ReadFile(path)
				if readErr != nil {
					fmt.Fprintf(stdout, "%s: %v\n", path, readErr)
					failed++
					continue
				}
				f := frame.Frame{
					Seq:        uint64(i + 1),
					Data:       data,
					Format:     strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
					CapturedAt: time.Now(),
				}
				result, recognizeErr := recognizer.Recognize(cmd.Context(), f)
				outcome := controller.Decide(cmd.Context(), result, recognizeErr, f.CapturedAt)
				if outcome.Kind == scan.KindError {
					failed++
				}
				line := fmt.Sprintf("%s: %s", path, outcome.Message)
				if colorize {
					line = statusKindColor(outcomeKind(string(outcome.Kind))) + line + ansiReset
				}
				fmt.Fprintln(stdout, line)
				if outcome.Err != nil {
					fmt.Fprintf(stdout, "  %v\n", outcome.Err)
				}
				if record && outcome.PersistErr != nil {
					fmt.Fprintf(stdout, "  warning: scan not recorded: %v\n", outcome.PersistErr)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d images could not be read", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&record, "record", true, "Append accepted values to the scan log")
	cmd.Flags().StringVar(&logPath, "log", "", "Scan log to append to (defaults to paths.scan_log)")
	return cmd
}

type discardAppender struct{}

func (discardAppender) Append(string, time.Time) error { return nil }
