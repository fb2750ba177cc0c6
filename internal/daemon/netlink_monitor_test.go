package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pilebones/go-udev/netlink"

	"barscan/internal/config"
)

func hotplugConfig(device string) *config.Config {
	cfg := &config.Config{}
	cfg.Camera.Source = config.SourceV4L2
	cfg.Camera.Device = device
	cfg.Camera.Hotplug = true
	return cfg
}

func TestNewNetlinkMonitor(t *testing.T) {
	t.Run("nil config returns nil", func(t *testing.T) {
		if m := newNetlinkMonitor(nil, nil, nil); m != nil {
			t.Error("expected nil monitor for nil config")
		}
	})

	t.Run("hotplug disabled returns nil", func(t *testing.T) {
		cfg := hotplugConfig("/dev/video0")
		cfg.Camera.Hotplug = false
		if m := newNetlinkMonitor(cfg, nil, nil); m != nil {
			t.Error("expected nil monitor when hotplug is disabled")
		}
	})

	t.Run("spool source returns nil", func(t *testing.T) {
		cfg := hotplugConfig("/dev/video0")
		cfg.Camera.Source = config.SourceSpool
		if m := newNetlinkMonitor(cfg, nil, nil); m != nil {
			t.Error("expected nil monitor for spool source")
		}
	})

	t.Run("valid config creates monitor", func(t *testing.T) {
		m := newNetlinkMonitor(hotplugConfig("/dev/video0"), nil, nil)
		if m == nil {
			t.Fatal("expected non-nil monitor")
		}
		if m.device != "/dev/video0" {
			t.Errorf("expected device /dev/video0, got %s", m.device)
		}
	})
}

func TestNetlinkMonitorStopStartIdempotency(t *testing.T) {
	t.Run("nil monitor is inert", func(t *testing.T) {
		var m *netlinkMonitor
		m.Stop()
		if m.Running() {
			t.Error("expected Running() to return false for nil monitor")
		}
		if err := m.Start(context.Background()); err != nil {
			t.Fatalf("Start on nil monitor should return nil, got: %v", err)
		}
	})

	t.Run("double stop on unstarted monitor is safe", func(t *testing.T) {
		m := newNetlinkMonitor(hotplugConfig("/dev/video0"), nil, nil)
		m.Stop()
		m.Stop()
		if m.Running() {
			t.Error("expected Running() to return false after Stop")
		}
	})

	t.Run("start without privileges is non-fatal", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		m := newNetlinkMonitor(hotplugConfig("/dev/video0"), nil, nil)
		if err := m.Start(ctx); err != nil {
			t.Fatalf("Start should not fail hard, got: %v", err)
		}
		m.Stop()
	})
}

func TestBuildMatcher(t *testing.T) {
	m := newNetlinkMonitor(hotplugConfig("/dev/video0"), nil, nil)
	matcher := m.buildMatcher()

	tests := []struct {
		name   string
		action netlink.KObjAction
		env    map[string]string
		want   bool
	}{
		{"camera added", netlink.ADD, map[string]string{"SUBSYSTEM": "video4linux"}, true},
		{"camera removed", netlink.REMOVE, map[string]string{"SUBSYSTEM": "video4linux"}, true},
		{"camera changed", netlink.CHANGE, map[string]string{"SUBSYSTEM": "video4linux"}, false},
		{"block device added", netlink.ADD, map[string]string{"SUBSYSTEM": "block"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matcher.Evaluate(netlink.UEvent{Action: tt.action, Env: tt.env})
			if got != tt.want {
				t.Errorf("Evaluate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleEvent(t *testing.T) {
	type call struct {
		device string
		action netlink.KObjAction
	}

	newRecorder := func(device string) (*netlinkMonitor, *[]call) {
		var calls []call
		m := newNetlinkMonitor(hotplugConfig(device), nil, func(_ context.Context, dev string, action netlink.KObjAction) {
			calls = append(calls, call{device: dev, action: action})
		})
		return m, &calls
	}

	t.Run("ignores event without device name", func(t *testing.T) {
		m, calls := newRecorder("/dev/video0")
		m.handleEvent(context.Background(), netlink.UEvent{Action: netlink.ADD, Env: map[string]string{}})
		if len(*calls) != 0 {
			t.Error("handler should not be called for event without device name")
		}
	})

	t.Run("ignores other cameras", func(t *testing.T) {
		m, calls := newRecorder("/dev/video0")
		m.handleEvent(context.Background(), netlink.UEvent{
			Action: netlink.ADD,
			Env:    map[string]string{"DEVNAME": "/dev/video2"},
		})
		if len(*calls) != 0 {
			t.Error("handler should not be called for non-configured device")
		}
	})

	t.Run("relative DEVNAME is resolved under /dev", func(t *testing.T) {
		m, calls := newRecorder("/dev/video0")
		m.handleEvent(context.Background(), netlink.UEvent{
			Action: netlink.REMOVE,
			Env:    map[string]string{"DEVNAME": "video0"},
		})
		if len(*calls) != 1 || (*calls)[0].device != "/dev/video0" || (*calls)[0].action != netlink.REMOVE {
			t.Fatalf("unexpected calls: %+v", *calls)
		}
	})

	t.Run("extracts device from DEVPATH when DEVNAME missing", func(t *testing.T) {
		m, calls := newRecorder("/dev/video0")
		m.handleEvent(context.Background(), netlink.UEvent{
			Action: netlink.ADD,
			Env: map[string]string{
				"DEVPATH": "/devices/pci0000:00/0000:00:14.0/usb1/1-2/1-2:1.0/video4linux/video0",
			},
		})
		if len(*calls) != 1 || (*calls)[0].device != "/dev/video0" {
			t.Fatalf("unexpected calls: %+v", *calls)
		}
	})

	t.Run("matches symlinked device paths", func(t *testing.T) {
		dir := t.TempDir()
		target := filepath.Join(dir, "video7")
		if err := os.WriteFile(target, nil, 0o644); err != nil {
			t.Fatalf("write target: %v", err)
		}
		link := filepath.Join(dir, "usb-camera")
		if err := os.Symlink(target, link); err != nil {
			t.Fatalf("symlink: %v", err)
		}

		resolved, err := filepath.EvalSymlinks(target)
		if err != nil {
			t.Fatalf("resolve target: %v", err)
		}

		m, calls := newRecorder(link)
		m.handleEvent(context.Background(), netlink.UEvent{
			Action: netlink.ADD,
			Env:    map[string]string{"DEVNAME": resolved},
		})
		if len(*calls) != 1 {
			t.Fatalf("expected symlink target to match, got %+v", *calls)
		}

		// Once the link disappears the last resolved target still matches.
		if err := os.Remove(link); err != nil {
			t.Fatalf("remove link: %v", err)
		}
		m.handleEvent(context.Background(), netlink.UEvent{
			Action: netlink.REMOVE,
			Env:    map[string]string{"DEVNAME": resolved},
		})
		if len(*calls) != 2 {
			t.Fatalf("expected removal of resolved target to match, got %+v", *calls)
		}
	})
}
