package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sysClassVideo is overridden in tests.
var sysClassVideo = "/sys/class/video4linux"

// CameraProbe reports the current camera detection snapshot.
type CameraProbe struct {
	Detected bool   `json:"detected"`
	Device   string `json:"device"`
	Name     string `json:"name,omitempty"`
}

// ProbeCamera checks whether device exists and reads its driver-reported
// name from sysfs.
func ProbeCamera(device string) CameraProbe {
	device = strings.TrimSpace(device)
	if device == "" {
		device = "/dev/video0"
	}
	info, err := os.Stat(device)
	if err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return CameraProbe{Device: device}
	}
	probe := CameraProbe{Detected: true, Device: device}
	data, err := os.ReadFile(filepath.Join(sysClassVideo, filepath.Base(device), "name"))
	if err == nil {
		probe.Name = strings.TrimSpace(string(data))
	}
	return probe
}

// Detail renders a display-friendly summary for status UIs.
func (p CameraProbe) Detail() string {
	if !p.Detected {
		return fmt.Sprintf("No camera at %s", p.Device)
	}
	if p.Name == "" {
		return fmt.Sprintf("Camera on %s", p.Device)
	}
	return fmt.Sprintf("%s on %s", p.Name, p.Device)
}
