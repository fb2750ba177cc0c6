package screen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"barscan/internal/api"
)

const (
	defaultPollInterval = 250 * time.Millisecond
	requestTimeout      = 3 * time.Second
	noticeDuration      = 4 * time.Second
)

// Backend is the subset of the daemon API the screen drives.
type Backend interface {
	Status(ctx context.Context) (api.DaemonStatus, error)
	Scan(ctx context.Context, wait bool) (api.ScanResponse, error)
	Torch(ctx context.Context) (api.TorchResponse, error)
}

// Model is the root bubbletea model for the scanning screen.
type Model struct {
	backend      Backend
	pollInterval time.Duration

	width  int
	height int

	connected        bool
	connError        string
	reconnectAttempt int

	status api.DaemonStatus

	notice           string
	noticeIsError    bool
	noticeGeneration int
}

// New creates a screen model polling backend at the given interval.
func New(backend Backend, pollInterval time.Duration) Model {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return Model{backend: backend, pollInterval: pollInterval}
}

// Run shows the screen until the operator quits or ctx ends.
func Run(ctx context.Context, backend Backend, pollInterval time.Duration) error {
	program := tea.NewProgram(New(backend, pollInterval), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init starts the first status poll.
func (m Model) Init() tea.Cmd {
	return statusCmd(m.backend)
}

func statusCmd(backend Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		status, err := backend.Status(ctx)
		if err != nil {
			return StatusErrorMsg{Err: err}
		}
		return StatusMsg{Status: status}
	}
}

func scanCmd(backend Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp, err := backend.Scan(ctx, false)
		if err != nil {
			return ActionErrorMsg{Action: "scan", Err: err}
		}
		return ScanResponseMsg{Response: resp}
	}
}

func torchCmd(backend Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp, err := backend.Torch(ctx)
		if err != nil {
			return ActionErrorMsg{Action: "flash", Err: err}
		}
		return TorchResponseMsg{Response: resp}
	}
}

func pollCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return PollTickMsg{}
	})
}

// reconnectDelay backs off 1s, 2s, 4s, 8s and caps there.
func reconnectDelay(attempt int) time.Duration {
	return time.Duration(1<<min(attempt, 3)) * time.Second
}

func clearNoticeCmd(generation int) tea.Cmd {
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return ClearNoticeMsg{Generation: generation}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case PollTickMsg:
		return m, statusCmd(m.backend)

	case StatusMsg:
		m.connected = true
		m.connError = ""
		m.reconnectAttempt = 0
		m.status = msg.Status
		return m, pollCmd(m.pollInterval)

	case StatusErrorMsg:
		m.connected = false
		m.connError = describeError(msg.Err)
		delay := reconnectDelay(m.reconnectAttempt)
		m.reconnectAttempt++
		return m, pollCmd(delay)

	case ScanResponseMsg:
		m.status.Session = msg.Response.Session
		if msg.Response.Outcome != nil {
			m.status.Session.LastOutcome = msg.Response.Outcome
		}
		return m, nil

	case TorchResponseMsg:
		m.status.Session.Torch = msg.Response.On
		if msg.Response.Error != "" {
			return m.setNotice("Flash unavailable: "+msg.Response.Error, true)
		}
		return m, nil

	case ActionErrorMsg:
		return m.setNotice(fmt.Sprintf("%s failed: %s", msg.Action, describeError(msg.Err)), true)

	case ClearNoticeMsg:
		if msg.Generation == m.noticeGeneration {
			m.notice = ""
			m.noticeIsError = false
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		return m, tea.Quit
	case KeyScan, KeySpace, KeyEnter:
		if !m.connected {
			return m.setNotice("Daemon not connected", true)
		}
		return m, scanCmd(m.backend)
	case KeyFlash, KeyFlashUp:
		if !m.connected {
			return m.setNotice("Daemon not connected", true)
		}
		return m, torchCmd(m.backend)
	}
	return m, nil
}

func (m Model) setNotice(text string, isError bool) (tea.Model, tea.Cmd) {
	m.noticeGeneration++
	m.notice = text
	m.noticeIsError = isError
	return m, clearNoticeCmd(m.noticeGeneration)
}

func describeError(err error) string {
	if err == nil {
		return ""
	}
	if api.IsAPIUnavailable(err) {
		return "daemon not running"
	}
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	return err.Error()
}

// View renders the scanning screen.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	sections := []string{
		m.renderHeader(),
		m.renderGuide(),
		m.renderBanner(),
		m.renderButtons(),
		m.renderFooter(),
	}
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := TitleStyle.Render("barscan")
	var state string
	switch {
	case !m.connected && m.connError != "":
		state = ErrorStyle.Render("● " + m.connError + ", reconnecting...")
	case !m.connected:
		state = StatusStyle.Render("○ connecting...")
	case m.status.Session.InFlight:
		state = NoticeStyle.Render("● reading barcode")
	case m.status.Session.Gate == "armed":
		state = lipgloss.NewStyle().Foreground(ColorGreen).Render("● armed")
	default:
		state = StatusStyle.Render("○ idle")
	}
	line := title + "  " + state
	if last := m.status.Session.Last; m.connected && last != nil {
		line += StatusStyle.Render("  last: " + last.Value)
	}
	return line
}

// renderGuide draws the centered scan guide rectangle.
func (m Model) renderGuide() string {
	boxWidth := max(m.width/2, 20)
	boxHeight := max(m.height/3, 3)
	style := GuideIdleStyle
	label := "Place barcode inside the frame"
	if m.status.Session.Gate == "armed" {
		style = GuideArmedStyle
		label = "Scanning..."
	}
	box := style.Width(boxWidth).Height(boxHeight).Render(label)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, box)
}

// renderBanner shows the status message only while it is visible.
func (m Model) renderBanner() string {
	banner := m.status.Session.Banner
	if !m.connected || !banner.Visible || banner.Message == "" {
		return ""
	}
	kind := ""
	if last := m.status.Session.LastOutcome; last != nil && last.Message == banner.Message {
		kind = last.Kind
	}
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, bannerStyleFor(kind).Render(banner.Message))
}

func (m Model) renderButtons() string {
	scan := ButtonStyle
	if m.status.Session.Gate == "armed" {
		scan = ButtonActiveStyle
	}
	flashLabel := "Turn Flash ON"
	flash := ButtonStyle
	if m.status.Session.Torch {
		flashLabel = "Turn Flash OFF"
		flash = ButtonActiveStyle
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, scan.Render("Scan"), "  ", flash.Render(flashLabel))
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, row)
}

func (m Model) renderFooter() string {
	var lines []string
	if m.notice != "" {
		style := NoticeStyle
		if m.noticeIsError {
			style = ErrorStyle
		}
		lines = append(lines, style.Render(m.notice))
	}
	lines = append(lines, HelpStyle.Render("s/space scan · f flash · q quit"))
	return strings.Join(lines, "\n")
}
