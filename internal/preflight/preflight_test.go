package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"barscan/internal/config"
	"barscan/internal/services"
	"barscan/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDeviceAccess(t *testing.T) {
	if result := CheckDeviceAccess("Camera device", "/dev/null"); !result.Passed {
		t.Fatalf("expected /dev/null to pass as a character device: %s", result.Detail)
	}

	regular := filepath.Join(t.TempDir(), "video0")
	if err := os.WriteFile(regular, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDeviceAccess("Camera device", regular)
	if result.Passed || !strings.Contains(result.Detail, "not a character device") {
		t.Fatalf("expected regular file to fail, got %+v", result)
	}

	missing := CheckDeviceAccess("Camera device", "/dev/nonexistent_video_12345")
	if missing.Passed {
		t.Fatal("expected missing device to fail")
	}
	if err := Err([]Result{missing}); !errors.Is(err, services.ErrDevice) {
		t.Fatalf("expected device marker for missing camera, got %v", err)
	}
}

func TestCheckScanLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "barcode.txt")
	if result := CheckScanLog(path); !result.Passed || !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("expected pass for new log, got %+v", result)
	}
	if err := os.WriteFile(path, []byte("X | 2024-03-05 09:07:02\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckScanLog(path); !result.Passed || !strings.Contains(result.Detail, "append ok") {
		t.Fatalf("expected pass for existing log, got %+v", result)
	}
	if result := CheckScanLog(filepath.Join(dir, "missing", "barcode.txt")); result.Passed {
		t.Fatal("expected failure when the directory is missing")
	}
}

func TestCheckTorchWithoutFlashControl(t *testing.T) {
	result := CheckTorch("/dev/nonexistent_video_12345")
	if result.Passed || !result.Optional {
		t.Fatalf("expected optional failure, got %+v", result)
	}
}

func TestCheckNATSUnreachable(t *testing.T) {
	result := CheckNATS(context.Background(), "nats://127.0.0.1:1")
	if result.Passed || !result.Optional {
		t.Fatalf("expected optional failure, got %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_SpoolConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if got := strings.Join(names, ","); got != "Spool directory,Scan log,Catalog directory" {
		t.Fatalf("unexpected checks: %s", got)
	}
	if err := Err(results); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestRunAll_MissingSpoolIsPermissionFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(context.Background(), cfg)
	err := Err(results)
	if !errors.Is(err, services.ErrPermission) {
		t.Fatalf("expected permission error for missing spool dir, got %v", err)
	}
	if !strings.Contains(err.Error(), "Spool directory") {
		t.Fatalf("expected check name in error, got %v", err)
	}
}

func TestRunAll_V4L2IncludesFFmpeg(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCameraDevice("/dev/null"), testsupport.WithStubbedBinaries())
	cfg.Torch.Mode = config.TorchModeNone

	results := RunAll(context.Background(), cfg)
	var sawFFmpeg bool
	for _, r := range results {
		if r.Name == "FFmpeg" {
			sawFFmpeg = true
			if !r.Passed {
				t.Fatalf("expected stubbed ffmpeg to pass: %s", r.Detail)
			}
		}
	}
	if !sawFFmpeg {
		t.Fatal("expected ffmpeg check for v4l2 source")
	}
}

func TestErrIgnoresOptionalFailures(t *testing.T) {
	results := []Result{
		{Name: "Camera device", Passed: true},
		{Name: "NATS", Detail: "down", Optional: true},
	}
	if err := Err(results); err != nil {
		t.Fatalf("optional failures must not block: %v", err)
	}
}

func TestProbeCamera(t *testing.T) {
	sys := t.TempDir()
	sysClassVideo = sys
	t.Cleanup(func() { sysClassVideo = "/sys/class/video4linux" })
	if err := os.MkdirAll(filepath.Join(sys, "null"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sys, "null", "name"), []byte("HD Webcam\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	probe := ProbeCamera("/dev/null")
	if !probe.Detected || probe.Name != "HD Webcam" {
		t.Fatalf("unexpected probe: %+v", probe)
	}
	if probe.Detail() != "HD Webcam on /dev/null" {
		t.Fatalf("unexpected detail %q", probe.Detail())
	}

	missing := ProbeCamera("/dev/nonexistent_video_12345")
	if missing.Detected || !strings.HasPrefix(missing.Detail(), "No camera") {
		t.Fatalf("unexpected probe for missing device: %+v", missing)
	}
}
