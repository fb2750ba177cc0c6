package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"barscan/internal/config"
	"barscan/internal/logging"
)

// hotplugHandler is invoked for add and remove events on the configured camera.
type hotplugHandler func(ctx context.Context, device string, action netlink.KObjAction)

// netlinkMonitor listens for udev netlink events so a camera that is
// unplugged and reconnected restarts capture without waiting out the
// supervisor's backoff.
type netlinkMonitor struct {
	logger  *slog.Logger
	handler hotplugHandler
	device  string

	mu       sync.Mutex
	conn     *netlink.UEventConn
	quit     chan struct{}
	running  bool
	resolved string
}

// newNetlinkMonitor returns nil unless the config captures from a V4L2
// device with hotplug enabled.
func newNetlinkMonitor(cfg *config.Config, logger *slog.Logger, handler hotplugHandler) *netlinkMonitor {
	if cfg == nil || !cfg.Camera.Hotplug || cfg.Camera.Source != config.SourceV4L2 {
		return nil
	}
	device := strings.TrimSpace(cfg.Camera.Device)
	if device == "" {
		return nil
	}
	return &netlinkMonitor{
		logger:  logging.NewComponentLogger(logger, "netlink-monitor"),
		handler: handler,
		device:  device,
	}
}

// Start begins listening for udev netlink events. Failing to open the socket
// is logged and otherwise ignored; the supervisor still retries on its own.
func (m *netlinkMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; camera reconnects will wait for the restart delay",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to open netlink sockets"),
			logging.String(logging.FieldImpact, "camera hotplug detection unavailable"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("netlink monitor started",
		logging.String(logging.FieldEventType, "netlink_monitor_started"),
		logging.String("device", m.device),
	)
	return nil
}

// Stop shuts down the netlink monitor.
func (m *netlinkMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("netlink monitor stopped",
		logging.String(logging.FieldEventType, "netlink_monitor_stopped"),
	)
}

// Running reports whether the netlink monitor is active.
func (m *netlinkMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *netlinkMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	matcher := m.buildMatcher()

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, matcher)
	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "camera hotplug detection may be affected"),
			)
		}
	}
}

// buildMatcher matches SUBSYSTEM=video4linux with ACTION=add|remove.
func (m *netlinkMonitor) buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

func (m *netlinkMonitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	devname := m.extractDeviceName(uevent)
	if devname == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}
	if !m.matchesDevice(devname) {
		m.logger.Debug("ignoring event for non-configured device",
			logging.String("device", devname),
			logging.String("configured_device", m.device),
		)
		return
	}

	m.logger.Info("camera hotplug event",
		logging.String(logging.FieldEventType, "camera_hotplug"),
		logging.String("device", devname),
		logging.String("action", string(uevent.Action)),
	)
	if m.handler != nil {
		m.handler(ctx, devname, uevent.Action)
	}
}

// matchesDevice compares devname against the configured path and, for
// symlinks such as /dev/v4l/by-id/..., the node it last resolved to.
func (m *netlinkMonitor) matchesDevice(devname string) bool {
	if devname == m.device {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if target, err := filepath.EvalSymlinks(m.device); err == nil {
		m.resolved = target
	}
	return m.resolved != "" && devname == m.resolved
}

// extractDeviceName returns the /dev path for a uevent. The kernel reports
// DEVNAME relative to /dev; udev reports it absolute.
func (m *netlinkMonitor) extractDeviceName(uevent netlink.UEvent) string {
	if devname := strings.TrimSpace(uevent.Env["DEVNAME"]); devname != "" {
		if !strings.HasPrefix(devname, "/") {
			devname = "/dev/" + devname
		}
		return devname
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return ""
	}
	return "/dev/" + parts[len(parts)-1]
}
