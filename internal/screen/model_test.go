package screen

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"barscan/internal/api"
)

type fakeBackend struct {
	status    api.DaemonStatus
	statusErr error
	scans     int
	torches   int
	torch     api.TorchResponse
}

func (f *fakeBackend) Status(context.Context) (api.DaemonStatus, error) {
	return f.status, f.statusErr
}

func (f *fakeBackend) Scan(context.Context, bool) (api.ScanResponse, error) {
	f.scans++
	return api.ScanResponse{Armed: true, Session: api.Session{Gate: "armed"}}, nil
}

func (f *fakeBackend) Torch(context.Context) (api.TorchResponse, error) {
	f.torches++
	return f.torch, nil
}

func sized(m Model) Model {
	m.width = 80
	m.height = 24
	return m
}

func key(s string) tea.KeyMsg {
	if s == KeyCtrlC {
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	if s == KeySpace {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	m := New(&fakeBackend{}, 0)
	if m.connected {
		t.Error("new model should not be connected")
	}
	if m.pollInterval != defaultPollInterval {
		t.Errorf("pollInterval = %v", m.pollInterval)
	}
	if m.View() != "Initializing..." {
		t.Errorf("unexpected initial view %q", m.View())
	}
}

func TestInitFetchesStatus(t *testing.T) {
	backend := &fakeBackend{status: api.DaemonStatus{Running: true}}
	msg := New(backend, time.Second).Init()()
	status, ok := msg.(StatusMsg)
	if !ok || !status.Status.Running {
		t.Fatalf("unexpected init message %#v", msg)
	}
}

func TestStatusErrorStartsReconnect(t *testing.T) {
	m := sized(New(&fakeBackend{}, time.Second))
	m.connected = true

	updated, cmd := m.Update(StatusErrorMsg{Err: fmt.Errorf("%w: refused", api.ErrAPIUnavailable)})
	model := updated.(Model)
	if model.connected {
		t.Error("should not be connected after error")
	}
	if model.reconnectAttempt != 1 {
		t.Errorf("reconnectAttempt = %d", model.reconnectAttempt)
	}
	if cmd == nil {
		t.Fatal("expected a reconnect poll")
	}
	if !strings.Contains(model.View(), "daemon not running") {
		t.Errorf("view should explain the outage:\n%s", model.View())
	}

	updated, _ = model.Update(StatusMsg{Status: api.DaemonStatus{Running: true}})
	model = updated.(Model)
	if !model.connected || model.reconnectAttempt != 0 {
		t.Errorf("expected reconnect to reset, got connected=%v attempt=%d", model.connected, model.reconnectAttempt)
	}
}

func TestReconnectDelayCaps(t *testing.T) {
	if got := reconnectDelay(0); got != time.Second {
		t.Errorf("attempt 0 = %v", got)
	}
	if got := reconnectDelay(10); got != 8*time.Second {
		t.Errorf("attempt 10 = %v", got)
	}
}

func TestQuitKeys(t *testing.T) {
	for _, k := range []string{KeyQuit, KeyQuitUpper, KeyCtrlC} {
		_, cmd := New(&fakeBackend{}, time.Second).Update(key(k))
		if cmd == nil {
			t.Fatalf("%q should quit", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%q did not produce QuitMsg", k)
		}
	}
}

func TestScanKeyRequiresConnection(t *testing.T) {
	backend := &fakeBackend{}
	m := sized(New(backend, time.Second))

	updated, _ := m.Update(key(KeyScan))
	model := updated.(Model)
	if model.notice != "Daemon not connected" {
		t.Errorf("notice = %q", model.notice)
	}

	model.connected = true
	for _, k := range []string{KeyScan, KeySpace} {
		_, cmd := model.Update(key(k))
		if cmd == nil {
			t.Fatalf("%q should issue a scan", k)
		}
		msg, ok := cmd().(ScanResponseMsg)
		if !ok || !msg.Response.Armed {
			t.Fatalf("unexpected scan message %#v", msg)
		}
	}
	if backend.scans != 2 {
		t.Errorf("scans = %d", backend.scans)
	}
}

func TestScanResponseArmsGuide(t *testing.T) {
	m := sized(New(&fakeBackend{}, time.Second))
	m.connected = true
	updated, _ := m.Update(ScanResponseMsg{Response: api.ScanResponse{Armed: true, Session: api.Session{Gate: "armed"}}})
	model := updated.(Model)
	if model.status.Session.Gate != "armed" {
		t.Fatalf("gate = %q", model.status.Session.Gate)
	}
	if !strings.Contains(model.View(), "Scanning...") {
		t.Errorf("armed guide should say Scanning...:\n%s", model.View())
	}
}

func TestFlashToggleLabel(t *testing.T) {
	backend := &fakeBackend{torch: api.TorchResponse{On: true}}
	m := sized(New(backend, time.Second))
	m.connected = true

	if !strings.Contains(m.View(), "Turn Flash ON") {
		t.Fatalf("expected ON label:\n%s", m.View())
	}
	_, cmd := m.Update(key(KeyFlash))
	if cmd == nil {
		t.Fatal("expected torch command")
	}
	updated, _ := m.Update(cmd())
	model := updated.(Model)
	if !model.status.Session.Torch {
		t.Fatal("torch should be on")
	}
	if !strings.Contains(model.View(), "Turn Flash OFF") {
		t.Errorf("expected OFF label:\n%s", model.View())
	}
}

func TestTorchErrorShowsNotice(t *testing.T) {
	m := sized(New(&fakeBackend{}, time.Second))
	m.connected = true
	updated, cmd := m.Update(TorchResponseMsg{Response: api.TorchResponse{On: true, Error: "no torch"}})
	model := updated.(Model)
	if !model.status.Session.Torch {
		t.Error("torch mirror should still flip")
	}
	if !strings.Contains(model.notice, "no torch") || cmd == nil {
		t.Fatalf("expected notice with clear timer, got %q", model.notice)
	}

	updated, _ = model.Update(ClearNoticeMsg{Generation: model.noticeGeneration - 1})
	if updated.(Model).notice == "" {
		t.Error("stale clear should not remove the notice")
	}
	updated, _ = model.Update(ClearNoticeMsg{Generation: model.noticeGeneration})
	if updated.(Model).notice != "" {
		t.Error("current clear should remove the notice")
	}
}

func TestBannerOnlyWhileVisible(t *testing.T) {
	m := sized(New(&fakeBackend{}, time.Second))
	status := api.DaemonStatus{Running: true, Session: api.Session{
		Gate:        "idle",
		Banner:      api.Banner{Message: "Scanned: 4006381333931", Visible: true, Version: 1},
		LastOutcome: &api.Outcome{Kind: "accepted", Message: "Scanned: 4006381333931"},
	}}
	updated, _ := m.Update(StatusMsg{Status: status})
	model := updated.(Model)
	if !strings.Contains(model.View(), "Scanned: 4006381333931") {
		t.Fatalf("visible banner missing:\n%s", model.View())
	}

	status.Session.Banner.Visible = false
	updated, _ = model.Update(StatusMsg{Status: status})
	model = updated.(Model)
	if strings.Contains(model.View(), "Scanned: 4006381333931") {
		t.Fatalf("hidden banner still rendered:\n%s", model.View())
	}
}
