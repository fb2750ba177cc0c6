package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"barscan/internal/api"
	"barscan/internal/config"
	"barscan/internal/deps"
	"barscan/internal/preflight"
)

const pollInterval = 200 * time.Millisecond

// Prober is the subset of the API client used to observe the daemon.
type Prober interface {
	Health(ctx context.Context) (api.HealthResponse, error)
	Status(ctx context.Context) (api.DaemonStatus, error)
}

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
}

// Launch starts a detached `barscan daemon` process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForHealthy polls the health probe until the daemon reports running.
func WaitForHealthy(ctx context.Context, prober Prober, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		health, err := prober.Health(ctx)
		if err == nil && health.Running {
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("daemon reachable but not running")
		}
		if err := sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon unless its API already answers.
func EnsureStarted(ctx context.Context, prober Prober, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if health, err := prober.Health(ctx); err == nil && health.Running {
		return StartResult{State: StartStateAlreadyRunning}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	if err := WaitForHealthy(ctx, prober, waitTimeout); err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, Launched: true}, nil
}

// WaitForShutdown waits until the daemon API stops answering.
func WaitForShutdown(ctx context.Context, prober Prober, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := prober.Health(ctx); api.IsAPIUnavailable(err) {
			return nil
		}
		if err := sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("daemon did not stop within %s", timeout)
}

// ReadPID returns the pid recorded in pidPath, or 0 when the file is absent.
func ReadPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	pidStr := strings.TrimSpace(string(data))
	if pidStr == "" {
		return 0, nil
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid %q in %s", pidStr, pidPath)
	}
	return pid, nil
}

// ProcessAlive reports whether a process with pid exists.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// ForceKillProcess sends SIGKILL to the daemon and cleans its pid and lock files.
func ForceKillProcess(pidPath, lockPath string, pid int) error {
	if pid <= 0 {
		return fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return nil
}

// ErrDaemonNotRunning indicates neither the API nor a live pid was found.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// StopAndTerminate sends SIGTERM to the daemon and force-kills it if it is
// still alive after gracePeriod.
func StopAndTerminate(ctx context.Context, prober Prober, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	logDir := cfg.Paths.LogDir
	pidPath := filepath.Join(logDir, "barscan.pid")
	lockPath := filepath.Join(logDir, "barscand.lock")

	pid := 0
	if status, err := prober.Status(ctx); err == nil {
		pid = status.PID
		if status.LockFilePath != "" {
			lockPath = status.LockFilePath
			pidPath = filepath.Join(filepath.Dir(status.LockFilePath), "barscan.pid")
		}
	}
	if pid == 0 {
		filePID, err := ReadPID(pidPath)
		if err != nil {
			return StopResult{}, err
		}
		pid = filePID
	}
	if !ProcessAlive(pid) {
		return StopResult{}, ErrDaemonNotRunning
	}

	result := StopResult{PID: pid}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return result, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	if err := WaitForShutdown(ctx, prober, gracePeriod); err == nil && waitForExit(ctx, pid, gracePeriod) {
		return result, nil
	}

	if err := ForceKillProcess(pidPath, lockPath, pid); err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	result.ForcedKill = true
	return result, nil
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(ctx context.Context, prober Prober, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(ctx, prober, cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(ctx, prober, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

// BuildStatusSnapshot returns the daemon's status, or a locally computed one
// with preflight and dependency results when the daemon is unreachable.
func BuildStatusSnapshot(ctx context.Context, prober Prober, cfg *config.Config) (api.DaemonStatus, error) {
	status, err := prober.Status(ctx)
	if err == nil {
		return status, nil
	}
	if !api.IsAPIUnavailable(err) {
		return api.DaemonStatus{}, err
	}

	offline := api.DaemonStatus{
		LockFilePath: filepath.Join(cfg.Paths.LogDir, "barscand.lock"),
		ScanLog:      cfg.Paths.ScanLog,
		CatalogPath:  cfg.Paths.CatalogDB,
		Preflight:    api.FromChecks(preflight.RunAll(ctx, cfg)),
		Camera: api.CameraStatus{
			Source:  "spool:" + cfg.Camera.SpoolDir,
			Hotplug: cfg.Camera.Hotplug,
		},
	}
	if cfg.Camera.Source == config.SourceV4L2 {
		probe := preflight.ProbeCamera(cfg.Camera.Device)
		offline.Camera.Source = "v4l2:" + cfg.Camera.Device
		offline.Camera.Present = probe.Detected
		offline.Camera.Detail = probe.Detail()
		offline.Dependencies = api.FromDependencies([]deps.Status{deps.ResolveFFmpeg(cfg.Camera.FFmpegBinary)})
	}
	return offline, nil
}

func waitForExit(ctx context.Context, pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !ProcessAlive(pid) {
			return true
		}
		if sleep(ctx, pollInterval) != nil {
			return false
		}
	}
	return !ProcessAlive(pid)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
