package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownSymbologies = map[string]struct{}{
	"ean13": {},
	"ean8":  {},
	"upca":  {},
	"upce":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateTorch(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ScanLog) == "" {
		return errors.New("paths.scan_log must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateCamera() error {
	switch c.Camera.Source {
	case SourceV4L2:
		if c.Camera.Device == "" {
			return errors.New("camera.device must be set when camera.source is v4l2")
		}
		if err := ensurePositiveMap(map[string]int{
			"camera.width":      c.Camera.Width,
			"camera.height":     c.Camera.Height,
			"camera.frame_rate": c.Camera.FrameRate,
		}); err != nil {
			return err
		}
	case SourceSpool:
		if strings.TrimSpace(c.Camera.SpoolDir) == "" {
			return errors.New("camera.spool_dir must be set when camera.source is spool")
		}
	default:
		return fmt.Errorf("camera.source: unsupported value %q (want v4l2 or spool)", c.Camera.Source)
	}
	return nil
}

func (c *Config) validateScan() error {
	if err := ensurePositiveMap(map[string]int{
		"scan.dedup_window_ms":      c.Scan.DedupWindowMillis,
		"scan.status_clear_ms":      c.Scan.StatusClearMillis,
		"scan.recognize_timeout_ms": c.Scan.RecognizeTimeoutMillis,
	}); err != nil {
		return err
	}
	for _, name := range c.Scan.Symbologies {
		if _, ok := knownSymbologies[name]; !ok {
			return fmt.Errorf("scan.symbologies: unsupported symbology %q (want ean13, ean8, upca, upce)", name)
		}
	}
	return nil
}

func (c *Config) validateTorch() error {
	switch c.Torch.Mode {
	case TorchModeNone:
	case TorchModeV4L2:
		if c.Camera.Device == "" {
			return errors.New("torch.mode v4l2 requires camera.device")
		}
	case TorchModeCommand:
		if c.Torch.OnCommand == "" || c.Torch.OffCommand == "" {
			return errors.New("torch.on_command and torch.off_command must be set when torch.mode is command")
		}
	default:
		return fmt.Errorf("torch.mode: unsupported value %q (want v4l2, command, or none)", c.Torch.Mode)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
