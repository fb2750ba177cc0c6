package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sys/unix"

	"barscan/internal/config"
	"barscan/internal/deps"
	"barscan/internal/services"
	"barscan/internal/torch"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDeviceAccess verifies that path is a character device the process can
// open for reading and writing.
func CheckDeviceAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path), marker: services.ErrDevice}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.Mode()&os.ModeCharDevice == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a character device)", path), marker: services.ErrDevice}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v; add the user to the video group)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckScanLog verifies the scan log can be created or appended to.
func CheckScanLog(path string) Result {
	const name = "Scan log"

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: directory %s: %v)", path, dir, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, dir)}
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: directory not writable: %v)", path, err)}
	}
	if _, err := os.Stat(path); err == nil {
		if err := unix.Access(path, unix.W_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: file not writable: %v)", path, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (append ok)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckTorch reports whether the camera exposes a flash LED control. The
// torch toggle still works as a mirror when it does not.
func CheckTorch(device string) Result {
	const name = "Torch control"

	mode, err := torch.V4L2{Device: device}.Mode()
	if err != nil {
		detail := fmt.Sprintf("%s (no flash control: %v)", device, err)
		if errors.Is(err, unix.EINVAL) {
			detail = fmt.Sprintf("%s (camera has no flash LED control)", device)
		}
		return Result{Name: name, Detail: detail, Optional: true}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (flash mode %s)", device, mode), Optional: true}
}

// CheckNATS verifies the event broker accepts connections.
func CheckNATS(ctx context.Context, url string) Result {
	const name = "NATS"

	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	nc, err := nats.Connect(url, nats.Timeout(timeout), nats.NoReconnect())
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", url, err), Optional: true}
	}
	defer nc.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (connected)", nc.ConnectedUrl()), Optional: true}
}

// CheckSystemDeps evaluates the binaries the configured camera source needs.
// Both the daemon and the CLI status command use this.
func CheckSystemDeps(cfg *config.Config) []Result {
	statuses := []deps.Status{deps.ResolveFFmpeg(cfg.Camera.FFmpegBinary)}
	if cfg.Torch.Mode == config.TorchModeCommand {
		statuses = append(statuses, deps.CheckBinaries([]deps.Requirement{{
			Name:        "sh",
			Command:     "sh",
			Description: "Runs torch on/off commands",
		}})...)
	}

	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		result := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional, marker: services.ErrDevice}
		if status.Available {
			result.Detail = status.Command
		} else {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}
