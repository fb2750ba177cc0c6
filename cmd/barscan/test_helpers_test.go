package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"barscan/internal/catalog"
	"barscan/internal/config"
	"barscan/internal/daemon"
	"barscan/internal/frame"
	"barscan/internal/recognize"
	"barscan/internal/scan"
	"barscan/internal/scanlog"
	"barscan/internal/testsupport"
	"barscan/internal/torch"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *catalog.Store
	daemon     *daemon.Daemon
	configPath string
}

// setupCLITestEnv starts a daemon on a spool source and writes a config
// file pointing the CLI at its API.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenCatalog(t, cfg)

	recognizer, err := recognize.NewZXing(cfg.Scan.Symbologies, false)
	if err != nil {
		t.Fatalf("NewZXing: %v", err)
	}
	session, err := scan.NewSession(scan.Options{
		Recognizer:       recognizer,
		Log:              scanlog.NewWriter(cfg.Paths.ScanLog),
		Torch:            torch.New(cfg),
		Products:         store,
		DedupWindow:      cfg.DedupWindow(),
		StatusClearDelay: cfg.StatusClearDelay(),
		RecognizeTimeout: cfg.RecognizeTimeout(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	d, err := daemon.New(cfg, nil, daemon.Options{
		Session: session,
		Source:  frame.NewSpoolSource(cfg, nil),
		Catalog: store,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		d.Stop()
	})

	fileCfg := *cfg
	fileCfg.Paths.APIBind = d.APIAddr()
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, &fileCfg)

	return &cliTestEnv{cfg: cfg, store: store, daemon: d, configPath: configPath}
}

// setupOfflineEnv writes a config whose API address has no listener.
func setupOfflineEnv(t *testing.T) (*config.Config, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = "127.0.0.1:1"
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return cfg, configPath
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
