package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/pilebones/go-udev/netlink"

	"barscan/internal/catalog"
	"barscan/internal/config"
	"barscan/internal/deps"
	"barscan/internal/frame"
	"barscan/internal/logging"
	"barscan/internal/preflight"
	"barscan/internal/scan"
)

const statusTimeout = 2 * time.Second

// Options carries the collaborators built by the runtime.
type Options struct {
	Session *scan.Session
	Source  frame.Source
	// Catalog is optional; when nil product lookups are disabled.
	Catalog *catalog.Store
	// SkipPreflight disables the startup checks.
	SkipPreflight bool
}

// Daemon owns the scan session, the frame source supervisor, the hotplug
// monitor, and the HTTP API, and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	session *scan.Session
	source  frame.Source
	catalog *catalog.Store
	opts    Options

	lockPath string
	pidPath  string
	lock     *flock.Flock

	supervisor *supervisor
	monitor    *netlinkMonitor
	api        *apiServer

	running   atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	fatal     chan error
	startedAt time.Time

	mu        sync.Mutex
	preflight []preflight.Result
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	LockFilePath string
	ScanLog      string
	CatalogPath  string
	Session      scan.Snapshot
	Camera       CameraState
	Probe        preflight.CameraProbe
	Hotplug      bool
	Preflight    []preflight.Result
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil || opts.Session == nil || opts.Source == nil {
		return nil, errors.New("daemon requires config, scan session, and frame source")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "barscand.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		session:  opts.Session,
		source:   opts.Source,
		catalog:  opts.Catalog,
		opts:     opts,
		lockPath: lockPath,
		pidPath:  filepath.Join(cfg.Paths.LogDir, "barscan.pid"),
		lock:     flock.New(lockPath),
		fatal:    make(chan error, 1),
	}
	d.supervisor = newSupervisor(opts.Source, opts.Session.Frames(), cfg.RestartDelay(), logger, d.fail)
	d.monitor = newNetlinkMonitor(cfg, logger, d.handleHotplug)
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, records the pid, runs preflight checks, and
// launches the session, capture, hotplug monitor, and API server. The pid file
// is only touched once the lock is held.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another barscan daemon instance is already running")
	}
	if err := writePIDFile(d.pidPath); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("write pid file: %w", err)
	}

	if !d.opts.SkipPreflight {
		results := preflight.RunAll(ctx, d.cfg)
		d.mu.Lock()
		d.preflight = results
		d.mu.Unlock()
		d.logPreflight(results)
		if err := preflight.Err(results); err != nil {
			d.release()
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.release()
		return err
	}
	d.cancel = cancel
	d.startedAt = time.Now()

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		if err := d.session.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			d.fail(err)
		}
	}()
	go func() {
		defer d.wg.Done()
		d.supervisor.run(runCtx)
	}()
	if err := d.monitor.Start(runCtx); err != nil {
		d.logger.Warn("hotplug monitor start failed", logging.Error(err))
	}

	d.running.Store(true)
	d.logger.Info("barscan daemon started",
		logging.String("lock", d.lockPath),
		logging.String("source", d.source.Name()),
		logging.String("api", d.api.Addr()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.monitor.Stop()
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.release()
	d.running.Store(false)
	d.logger.Info("barscan daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"),
	)
}

// release removes the pid file and then drops the lock, so a successor never
// sees its own pid file deleted.
func (d *Daemon) release() {
	if err := os.Remove(d.pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("failed to remove pid file", logging.Error(err), logging.String("pid_file", d.pidPath))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

// PIDPath returns the pid file written while the daemon holds its lock.
func (d *Daemon) PIDPath() string {
	return d.pidPath
}

func writePIDFile(path string) error {
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// Close stops the daemon and releases the catalog.
func (d *Daemon) Close() error {
	d.Stop()
	if d.catalog != nil {
		return d.catalog.Close()
	}
	return nil
}

// Fatal delivers the first unrecoverable runtime error, such as the camera
// refusing access.
func (d *Daemon) Fatal() <-chan error {
	return d.fatal
}

// APIAddr returns the address the API server is listening on.
func (d *Daemon) APIAddr() string {
	return d.api.Addr()
}

// Session exposes the scan session.
func (d *Daemon) Session() *scan.Session {
	return d.session
}

// Catalog returns the product catalog, or nil when disabled.
func (d *Daemon) Catalog() *catalog.Store {
	return d.catalog
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    d.startedAt,
		LockFilePath: d.lockPath,
		ScanLog:      d.cfg.Paths.ScanLog,
		Camera:       d.supervisor.State(),
		Hotplug:      d.monitor.Running(),
		Dependencies: d.dependencies(),
	}
	if d.catalog != nil {
		status.CatalogPath = d.catalog.Path()
	}
	if d.cfg.Camera.Source == config.SourceV4L2 {
		status.Probe = preflight.ProbeCamera(d.cfg.Camera.Device)
	}
	d.mu.Lock()
	status.Preflight = append([]preflight.Result(nil), d.preflight...)
	d.mu.Unlock()

	if status.Running {
		snapCtx, cancel := context.WithTimeout(ctx, statusTimeout)
		defer cancel()
		if snap, err := d.session.Snapshot(snapCtx); err == nil {
			status.Session = snap
		}
	}
	return status
}

func (d *Daemon) dependencies() []deps.Status {
	if d.cfg.Camera.Source != config.SourceV4L2 {
		return nil
	}
	return []deps.Status{deps.ResolveFFmpeg(d.cfg.Camera.FFmpegBinary)}
}

func (d *Daemon) handleHotplug(_ context.Context, device string, action netlink.KObjAction) {
	switch action {
	case netlink.ADD:
		d.logger.Info("camera connected; restarting capture",
			logging.String("device", device),
			logging.String(logging.FieldEventType, "camera_connected"),
		)
		d.supervisor.Wake()
	case netlink.REMOVE:
		logging.WarnWithContext(d.logger, "camera disconnected", "camera_disconnected",
			logging.String("device", device),
			logging.String(logging.FieldErrorHint, "reconnect the camera; capture resumes automatically"),
			logging.String(logging.FieldImpact, "scans wait until the camera returns"),
		)
	}
}

func (d *Daemon) fail(err error) {
	select {
	case d.fatal <- err:
	default:
	}
}

func (d *Daemon) logPreflight(results []preflight.Result) {
	for _, result := range results {
		attrs := []logging.Attr{
			logging.String("check", result.Name),
			logging.Bool("optional", result.Optional),
			logging.String("detail", result.Detail),
		}
		if result.Passed {
			d.logger.Debug("preflight check passed", logging.Args(attrs...)...)
			continue
		}
		impact := "daemon will not start"
		if result.Optional {
			impact = "feature degraded"
		}
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			append(attrs, logging.String(logging.FieldImpact, impact))...,
		)
	}
}
