package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"barscan/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The default frame source is a spool directory and the torch is disabled so
// tests never touch real hardware.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ScanLog = filepath.Join(base, "barcode.txt")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CatalogDB = filepath.Join(base, "catalog.db")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Camera.Source = config.SourceSpool
	cfgVal.Camera.SpoolDir = filepath.Join(base, "spool")
	cfgVal.Camera.SpoolPollMillis = 20
	cfgVal.Camera.Hotplug = false
	cfgVal.Torch.Mode = config.TorchModeNone
	cfgVal.Logging.RetentionDays = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCameraDevice switches the config to a V4L2 source at path.
func WithCameraDevice(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Camera.Source = config.SourceV4L2
		b.cfg.Camera.Device = path
	}
}

// WithTorchCommands switches the torch to command mode.
func WithTorchCommands(on, off string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Torch.Mode = config.TorchModeCommand
		b.cfg.Torch.OnCommand = on
		b.cfg.Torch.OffCommand = off
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, filepath.Join(binDir, name), "exit 0\n")
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ScanLog)
}
