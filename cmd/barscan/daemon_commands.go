package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"barscan/internal/api"
	"barscan/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the barscan daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				cmd.Context(),
				client,
				exe,
				daemonLaunchOptions(ctx, startLogLevel),
				10*time.Second,
			)
			if err != nil {
				return fmt.Errorf("%w (see the daemon log in %s)", err, ctx.configValue().Paths.LogDir)
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (API %s)\n", client.BaseURL())
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override logging.level for the launched daemon")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the barscan daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			result, err := daemonctl.StopAndTerminate(cmd.Context(), client, ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon ignored SIGTERM, killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var restartLogLevel string
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the barscan daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				cmd.Context(),
				client,
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx, restartLogLevel),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}
			if result.WasRunning {
				if result.Stop.ForcedKill {
					fmt.Fprintf(stdout, "Daemon ignored SIGTERM, killed pid %d\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			fmt.Fprintln(stdout, "Daemon restarted")
			return nil
		},
	}
	restartCmd.Flags().StringVar(&restartLogLevel, "log-level", "", "Override logging.level for the launched daemon")

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, camera, and scan status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			status, err := daemonctl.BuildStatusSnapshot(cmd.Context(), client, ctx.configValue())
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, status)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			for _, line := range renderStatus(status, colorize) {
				fmt.Fprintln(stdout, line)
			}
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the raw status as JSON")

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func renderStatus(status api.DaemonStatus, colorize bool) []string {
	var lines []string
	section := func(title string) {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, renderSectionHeader(title, colorize)...)
	}

	section("System Status")
	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d, since %s)", status.PID, status.StartedAt), colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusInfo, "Not running", colorize))
	}
	lines = append(lines, cameraLines(status.Camera, status.Running, colorize)...)
	lines = append(lines, renderStatusLine("Scan log", statusInfo, status.ScanLog, colorize))
	if status.CatalogPath != "" {
		lines = append(lines, renderStatusLine("Catalog", statusInfo, status.CatalogPath, colorize))
	}

	if status.Running {
		section("Scanner")
		lines = append(lines, sessionLines(status.Session, colorize)...)
	}

	if len(status.Preflight) > 0 {
		section("Preflight")
		for _, check := range status.Preflight {
			lines = append(lines, renderStatusLine(check.Name, checkKind(check), check.Detail, colorize))
		}
	}

	if len(status.Dependencies) > 0 {
		section("Dependencies")
		lines = append(lines, dependencyLines(status.Dependencies, colorize)...)
	}
	return lines
}

func cameraLines(camera api.CameraStatus, daemonRunning, colorize bool) []string {
	var lines []string
	switch {
	case !daemonRunning:
		lines = append(lines, renderStatusLine("Camera", statusInfo, camera.Source, colorize))
	case camera.Running:
		lines = append(lines, renderStatusLine("Camera", statusOK, fmt.Sprintf("%s (restarts: %d)", camera.Source, camera.Restarts), colorize))
	default:
		lines = append(lines, renderStatusLine("Camera", statusWarn, fmt.Sprintf("%s not capturing", camera.Source), colorize))
	}
	if camera.LastError != "" {
		lines = append(lines, renderStatusLine("Last camera error", statusWarn, fmt.Sprintf("%s (%s)", camera.LastError, camera.LastErrorAt), colorize))
	}
	if strings.HasPrefix(camera.Source, "v4l2:") {
		kind := statusOK
		if !camera.Present {
			kind = statusError
		}
		lines = append(lines, renderStatusLine("Device", kind, camera.Detail, colorize))
	}
	switch {
	case camera.Hotplug:
		lines = append(lines, renderStatusLine("Hotplug", statusOK, "udev monitoring active", colorize))
	case daemonRunning && strings.HasPrefix(camera.Source, "v4l2:"):
		lines = append(lines, renderStatusLine("Hotplug", statusWarn, "udev unavailable (camera restarts on a timer)", colorize))
	}
	return lines
}

func sessionLines(session api.Session, colorize bool) []string {
	gate := session.Gate
	if session.InFlight {
		gate += " (recognizing)"
	}
	lines := []string{
		renderStatusLine("Gate", statusInfo, gate, colorize),
		renderStatusLine("Flash", statusInfo, onOff(session.Torch), colorize),
		renderStatusLine("Attempts", statusInfo, fmt.Sprintf("%d", session.Attempts), colorize),
		renderStatusLine("Frames", statusInfo, fmt.Sprintf("offered %d, dropped %d, taken %d, discarded %d",
			session.Frames.Offered, session.Frames.Dropped, session.Frames.Taken, session.Discarded), colorize),
	}
	if session.Last != nil {
		lines = append(lines, renderStatusLine("Last scan", statusOK, fmt.Sprintf("%s at %s", session.Last.Value, session.Last.ObservedAt), colorize))
	}
	if outcome := session.LastOutcome; outcome != nil {
		lines = append(lines, renderStatusLine("Last outcome", outcomeKind(outcome.Kind), outcomeDetail(*outcome), colorize))
	}
	if session.Banner.Visible {
		lines = append(lines, renderStatusLine("Banner", statusInfo, session.Banner.Message, colorize))
	}
	return lines
}

func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func outcomeDetail(outcome api.Outcome) string {
	detail := outcome.Message
	if outcome.Product != "" {
		detail += " (" + outcome.Product + ")"
	}
	if outcome.PersistError != "" {
		detail += "; not recorded: " + outcome.PersistError
	}
	if outcome.Error != "" {
		detail += ": " + outcome.Error
	}
	return detail
}

func onOff(value bool) string {
	if value {
		return "on"
	}
	return "off"
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, logLevel string) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{
		ConfigPath: ctx.configPath(),
		LogLevel:   logLevel,
	}
}
