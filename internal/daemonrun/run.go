package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"barscan/internal/catalog"
	"barscan/internal/config"
	"barscan/internal/daemon"
	"barscan/internal/deps"
	"barscan/internal/events"
	"barscan/internal/frame"
	"barscan/internal/logging"
	"barscan/internal/notifications"
	"barscan/internal/recognize"
	"barscan/internal/scan"
	"barscan/internal/scanlog"
	"barscan/internal/torch"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the barscan daemon and blocks until a signal arrives or the
// daemon reports an unrecoverable error.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("barscan-%s.log", runID))
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)

	notifier := notifications.NewService(cfg)
	publisher := openPublisher(logger, cfg, notifier)
	defer publisher.Close()

	store := openCatalog(logger, cfg)

	recognizer, err := recognize.NewZXing(cfg.Scan.Symbologies, cfg.Scan.TryHarder)
	if err != nil {
		logger.Error("configure recognizer", logging.Error(err))
		return err
	}

	sessionOpts := scan.Options{
		Recognizer:       recognizer,
		Log:              scanlog.NewWriter(cfg.Paths.ScanLog),
		Torch:            torch.New(cfg),
		Publisher:        publisher,
		SubjectPrefix:    cfg.Events.SubjectPrefix,
		Logger:           logger,
		DedupWindow:      cfg.DedupWindow(),
		StatusClearDelay: cfg.StatusClearDelay(),
		RecognizeTimeout: cfg.RecognizeTimeout(),
	}
	if store != nil {
		sessionOpts.Products = store
	}
	session, err := scan.NewSession(sessionOpts)
	if err != nil {
		return fmt.Errorf("create scan session: %w", err)
	}

	d, err := daemon.New(cfg, logger, daemon.Options{
		Session: session,
		Source:  NewSource(cfg, logger),
		Catalog: store,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `barscan status` or check the preflight results above"),
			logging.String(logging.FieldImpact, "no scans will be recorded"),
		)
		return err
	}

	// Shared files in log_dir are only rewritten by the instance holding the lock.
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update barscan.log link: %v\n", err)
	}
	logging.Prune(logger, RetentionTargets(cfg, logPath)...)

	select {
	case <-signalCtx.Done():
		logger.Info("barscan daemon shutting down")
		return nil
	case err := <-d.Fatal():
		logging.ErrorWithContext(logger, "barscan daemon stopping after unrecoverable error", "daemon_fatal",
			logging.Error(err),
		)
		nctx, ncancel := context.WithTimeout(context.WithoutCancel(cmdCtx), 10*time.Second)
		defer ncancel()
		if nerr := notifier.NotifyError(nctx, err, "barscan daemon"); nerr != nil {
			logger.Warn("error notification failed", logging.Error(nerr))
		}
		return err
	}
}

// spoolLeftoverAge bounds how long abandoned partial writes may sit in
// spool_dir. The spool source never reads dotfiles or upload temp files.
const spoolLeftoverAge = time.Hour

// RetentionTargets lists what a daemon prunes once it holds the lock: rotated
// logs other than current, plus stale spool leftovers when the spool source
// is configured.
func RetentionTargets(cfg *config.Config, current string) []logging.PruneTarget {
	targets := []logging.PruneTarget{{
		Label:    "log",
		Dir:      cfg.Paths.LogDir,
		Patterns: []string{"barscan-*.log"},
		Keep:     []string{current},
		MaxAge:   logging.RetentionDays(cfg.Logging.RetentionDays),
	}}
	if cfg.Camera.Source == config.SourceSpool {
		targets = append(targets, logging.PruneTarget{
			Label:    "spool",
			Dir:      cfg.Camera.SpoolDir,
			Patterns: []string{".*", "*.tmp", "*.part"},
			MaxAge:   spoolLeftoverAge,
		})
	}
	return targets
}

// NewSource builds the configured frame source.
func NewSource(cfg *config.Config, logger *slog.Logger) frame.Source {
	if cfg.Camera.Source == config.SourceSpool {
		return frame.NewSpoolSource(cfg, logger)
	}
	return frame.NewFFmpegSource(cfg, logger)
}

func openPublisher(logger *slog.Logger, cfg *config.Config, notifier notifications.Service) events.Publisher {
	var fan events.Fanout
	if nats := openNATS(logger, cfg); nats != nil {
		fan = append(fan, nats)
	}
	if notifications.Enabled(notifier) {
		push := notifications.NewPublisher(notifier, cfg.Notifications.NotifyErrors)
		push.OnError = func(err error) {
			logging.WarnWithContext(logger, "scan notification failed", "ntfy_send_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
				logging.String(logging.FieldImpact, "push notification for this scan was not delivered"),
			)
		}
		fan = append(fan, push)
		logger.Info("sending scan notifications", logging.String("ntfy_topic", cfg.Notifications.NtfyTopic))
	}
	switch len(fan) {
	case 0:
		return &events.NoopPublisher{}
	case 1:
		return fan[0]
	default:
		return fan
	}
}

func openNATS(logger *slog.Logger, cfg *config.Config) events.Publisher {
	if strings.TrimSpace(cfg.Events.NATSURL) == "" {
		return nil
	}
	publisher, err := events.NewNATSPublisher(cfg.Events.NATSURL)
	if err != nil {
		logging.WarnWithContext(logger, "event publishing disabled", "nats_connect_failed",
			logging.Error(err),
			logging.String("nats_url", cfg.Events.NATSURL),
			logging.String(logging.FieldErrorHint, "check events.nats_url and that the broker is running"),
			logging.String(logging.FieldImpact, "scan events are not published"),
		)
		return nil
	}
	logger.Info("publishing scan events",
		logging.String("nats_url", cfg.Events.NATSURL),
		logging.String("subject_prefix", cfg.Events.SubjectPrefix),
	)
	return publisher
}

func openCatalog(logger *slog.Logger, cfg *config.Config) *catalog.Store {
	if strings.TrimSpace(cfg.Paths.CatalogDB) == "" {
		return nil
	}
	store, err := catalog.Open(cfg.Paths.CatalogDB)
	if err != nil {
		attrs := []logging.Attr{
			logging.Error(err),
			logging.String("catalog_db", cfg.Paths.CatalogDB),
			logging.String(logging.FieldImpact, "scans are recorded without product names"),
		}
		if errors.Is(err, catalog.ErrSchemaMismatch) {
			attrs = append(attrs, logging.String(logging.FieldErrorHint, "move the old catalog aside or point paths.catalog_db elsewhere"))
		}
		logging.WarnWithContext(logger, "product catalog unavailable", "catalog_open_failed", attrs...)
		return nil
	}
	return store
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "barscan.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("camera_source", cfg.Camera.Source),
		logging.String("torch_mode", cfg.Torch.Mode),
		logging.Bool("events_enabled", strings.TrimSpace(cfg.Events.NATSURL) != ""),
		logging.Bool("notifications_enabled", cfg.Notifications.NtfyTopic != ""),
		logging.Bool("api_token_present", cfg.Paths.APIToken != ""),
	}
	if cfg.Camera.Source == config.SourceV4L2 {
		ffmpeg := deps.ResolveFFmpeg(cfg.Camera.FFmpegBinary)
		attrs = append(attrs,
			logging.String("camera_device", cfg.Camera.Device),
			logging.Bool("ffmpeg_available", ffmpeg.Available),
			logging.String("ffmpeg_binary", ffmpeg.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
