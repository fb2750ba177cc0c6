package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file locations and bind address configuration.
type Paths struct {
	ScanLog   string `toml:"scan_log"`
	LogDir    string `toml:"log_dir"`
	CatalogDB string `toml:"catalog_db"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// Camera contains frame source configuration.
type Camera struct {
	// Source selects the frame source: "v4l2" captures from Device through
	// ffmpeg, "spool" picks up image files dropped into SpoolDir.
	Source              string `toml:"source"`
	Device              string `toml:"device"`
	FFmpegBinary        string `toml:"ffmpeg_binary"`
	Width               int    `toml:"width"`
	Height              int    `toml:"height"`
	FrameRate           int    `toml:"frame_rate"`
	SpoolDir            string `toml:"spool_dir"`
	SpoolPollMillis     int    `toml:"spool_poll_ms"`
	RestartDelaySeconds int    `toml:"restart_delay_seconds"`
	Hotplug             bool   `toml:"hotplug"`
}

// Scan contains the scan gate, dedup, and status banner timings.
type Scan struct {
	DedupWindowMillis      int      `toml:"dedup_window_ms"`
	StatusClearMillis      int      `toml:"status_clear_ms"`
	RecognizeTimeoutMillis int      `toml:"recognize_timeout_ms"`
	Symbologies            []string `toml:"symbologies"`
	TryHarder              bool     `toml:"try_harder"`
}

// Torch contains configuration for the camera light.
type Torch struct {
	// Mode is one of "v4l2" (flash LED control on the camera device),
	// "command" (run OnCommand/OffCommand), or "none".
	Mode       string `toml:"mode"`
	OnCommand  string `toml:"on_command"`
	OffCommand string `toml:"off_command"`
}

// Events contains configuration for scan event publishing.
type Events struct {
	NATSURL       string `toml:"nats_url"`
	SubjectPrefix string `toml:"subject_prefix"`
}

// Notifications contains ntfy push settings.
type Notifications struct {
	// NtfyTopic is the full topic URL, e.g. https://ntfy.sh/my-scanner.
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	NotifyErrors          bool   `toml:"notify_errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for barscan.
//
// Configuration sections by subsystem:
//   - Paths: scan log, catalog database, daemon logs, and API bind address
//   - Camera: frame source selection and capture geometry
//   - Scan: dedup window, status banner delay, and recognizer limits
//   - Torch: how the camera light is switched
//   - Events: optional NATS publishing of scan outcomes
//   - Notifications: optional ntfy pushes for accepted scans
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Camera        Camera        `toml:"camera"`
	Scan          Scan          `toml:"scan"`
	Torch         Torch         `toml:"torch"`
	Events        Events        `toml:"events"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/barscan/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/barscan/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("barscan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates directories the daemon writes into. The scan log
// directory is created on a best-effort basis; preflight reports whether it
// is actually writable.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	if dir := filepath.Dir(c.Paths.CatalogDB); strings.TrimSpace(c.Paths.CatalogDB) != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create catalog directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ScanLog) != "" {
		_ = os.MkdirAll(filepath.Dir(c.Paths.ScanLog), 0o755)
	}
	if c.Camera.Source == SourceSpool && strings.TrimSpace(c.Camera.SpoolDir) != "" {
		if err := os.MkdirAll(c.Camera.SpoolDir, 0o755); err != nil {
			return fmt.Errorf("create spool directory %q: %w", c.Camera.SpoolDir, err)
		}
	}
	return nil
}

// DedupWindow returns the interval within which an identical value is a repeat.
func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.Scan.DedupWindowMillis) * time.Millisecond
}

// StatusClearDelay returns how long a status message stays visible.
func (c *Config) StatusClearDelay() time.Duration {
	return time.Duration(c.Scan.StatusClearMillis) * time.Millisecond
}

// RecognizeTimeout returns the upper bound for a single recognition attempt.
func (c *Config) RecognizeTimeout() time.Duration {
	return time.Duration(c.Scan.RecognizeTimeoutMillis) * time.Millisecond
}

// SpoolPollInterval returns the spool directory polling interval.
func (c *Config) SpoolPollInterval() time.Duration {
	return time.Duration(c.Camera.SpoolPollMillis) * time.Millisecond
}

// RestartDelay returns the pause before a failed frame source is restarted.
func (c *Config) RestartDelay() time.Duration {
	return time.Duration(c.Camera.RestartDelaySeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
