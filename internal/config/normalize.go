package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCamera(); err != nil {
		return err
	}
	c.normalizeScan()
	c.normalizeTorch()
	c.normalizeEvents()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScanLog) == "" {
		c.Paths.ScanLog = defaultScanLog
	}
	if c.Paths.ScanLog, err = expandPath(c.Paths.ScanLog); err != nil {
		return fmt.Errorf("paths.scan_log: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CatalogDB) == "" {
		c.Paths.CatalogDB = defaultCatalogDB
	}
	if c.Paths.CatalogDB, err = expandPath(c.Paths.CatalogDB); err != nil {
		return fmt.Errorf("paths.catalog_db: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("BARSCAN_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeCamera() error {
	c.Camera.Source = strings.ToLower(strings.TrimSpace(c.Camera.Source))
	if c.Camera.Source == "" {
		c.Camera.Source = SourceV4L2
	}
	c.Camera.Device = strings.TrimSpace(c.Camera.Device)
	c.Camera.FFmpegBinary = strings.TrimSpace(c.Camera.FFmpegBinary)
	if c.Camera.FFmpegBinary == "" {
		c.Camera.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Camera.SpoolDir) == "" {
		c.Camera.SpoolDir = defaultSpoolDir
	}
	var err error
	if c.Camera.SpoolDir, err = expandPath(c.Camera.SpoolDir); err != nil {
		return fmt.Errorf("camera.spool_dir: %w", err)
	}
	if c.Camera.SpoolPollMillis <= 0 {
		c.Camera.SpoolPollMillis = defaultSpoolPollMillis
	}
	if c.Camera.RestartDelaySeconds <= 0 {
		c.Camera.RestartDelaySeconds = defaultRestartDelaySeconds
	}
	return nil
}

func (c *Config) normalizeScan() {
	if len(c.Scan.Symbologies) == 0 {
		c.Scan.Symbologies = append([]string(nil), defaultSymbologies...)
		return
	}
	symbologies := make([]string, 0, len(c.Scan.Symbologies))
	seen := make(map[string]struct{}, len(c.Scan.Symbologies))
	for _, name := range c.Scan.Symbologies {
		normalized := strings.ToLower(strings.TrimSpace(name))
		normalized = strings.NewReplacer("-", "", "_", "").Replace(normalized)
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		symbologies = append(symbologies, normalized)
	}
	if len(symbologies) == 0 {
		symbologies = append([]string(nil), defaultSymbologies...)
	}
	c.Scan.Symbologies = symbologies
}

func (c *Config) normalizeTorch() {
	c.Torch.Mode = strings.ToLower(strings.TrimSpace(c.Torch.Mode))
	if c.Torch.Mode == "" {
		c.Torch.Mode = TorchModeV4L2
	}
	c.Torch.OnCommand = strings.TrimSpace(c.Torch.OnCommand)
	c.Torch.OffCommand = strings.TrimSpace(c.Torch.OffCommand)
}

func (c *Config) normalizeEvents() {
	c.Events.NATSURL = strings.TrimSpace(c.Events.NATSURL)
	if c.Events.NATSURL == "" {
		if value, ok := os.LookupEnv("BARSCAN_NATS_URL"); ok {
			c.Events.NATSURL = strings.TrimSpace(value)
		}
	}
	c.Events.SubjectPrefix = strings.Trim(strings.TrimSpace(c.Events.SubjectPrefix), ".")
	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = defaultSubjectPrefix
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("BARSCAN_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
