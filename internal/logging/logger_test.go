package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"barscan/internal/config"
	"barscan/internal/logging"
	"barscan/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon ready")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "barscan.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "daemon ready") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleHandlerFormatsComponentAndAttempt(t *testing.T) {
	var buf bytes.Buffer
	handler, err := logging.NewHandler("console", "info", &buf)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	logger := logging.NewComponentLogger(slog.New(handler), "session")
	logger.Info("scan accepted",
		logging.String(logging.FieldAttemptID, "6f1c2a9e-0000-4000-8000-000000000000"),
		logging.String("value", "has space"),
	)

	line := buf.String()
	for _, fragment := range []string{"INFO", "[6f1c2a9e]", "session: scan accepted", `value="has space"`} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
}

func TestConsoleHandlerRendersScanAttributes(t *testing.T) {
	var buf bytes.Buffer
	handler, err := logging.NewHandler("console", "info", &buf)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	slog.New(handler).Info("scan recorded",
		logging.FrameSeq(42),
		logging.Symbology("ean13"),
		logging.Duration("recognize_timeout", 1500*time.Microsecond),
		slog.Group("outcome", logging.String(logging.FieldAttemptID, "6f1c2a9e-0000-4000-8000-000000000000")),
		logging.String("product", ""),
	)

	line := buf.String()
	for _, fragment := range []string{
		"frame_seq=#42",
		"symbology=EAN13",
		"recognize_timeout=2ms",
		"outcome.attempt_id=6f1c2a9e ",
		`product=""`,
	} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
}

func TestJSONHandlerRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	handler, err := logging.NewHandler("json", "debug", &buf)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	slog.New(handler).Warn("torch failed", logging.String("k", "v"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload["msg"] != "torch failed" || payload["level"] != "warn" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithAttemptID(ctx, "attempt-1")
	ctx = services.WithTrigger(ctx, "api")
	ctx = services.WithRequestID(ctx, "req-xyz")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, logger).Info("contextual log")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	want := map[string]string{
		logging.FieldAttemptID:     "attempt-1",
		logging.FieldTrigger:       "api",
		logging.FieldCorrelationID: "req-xyz",
	}
	for key, value := range want {
		if payload[key] != value {
			t.Fatalf("field %s = %v, want %q", key, payload[key], value)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "scan log append failed", "scan_log_write_failed")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload[logging.FieldEventType] != "scan_log_write_failed" {
		t.Fatalf("unexpected event type: %v", payload[logging.FieldEventType])
	}
	if payload[logging.FieldErrorHint] == nil || payload[logging.FieldImpact] == nil {
		t.Fatalf("expected default hint and impact, got %v", payload)
	}
}
