package frame_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"barscan/internal/frame"
	"barscan/internal/logging"
	"barscan/internal/testsupport"
)

func TestSpoolSourceOffersNewestAndClears(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Camera.SpoolDir, 0o755); err != nil {
		t.Fatalf("mkdir spool: %v", err)
	}
	older := filepath.Join(cfg.Camera.SpoolDir, "a.png")
	newer := filepath.Join(cfg.Camera.SpoolDir, "b.jpg")
	hidden := filepath.Join(cfg.Camera.SpoolDir, ".partial.jpg")
	notes := filepath.Join(cfg.Camera.SpoolDir, "notes.txt")
	for _, path := range []string{older, newer, hidden, notes} {
		if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	past := time.Now().Add(-time.Minute)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	src := frame.NewSpoolSource(cfg, logging.NewNop())
	box := frame.NewMailbox()
	if err := src.Poll(box); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	got, ok := box.Take()
	if !ok {
		t.Fatal("expected a frame")
	}
	if string(got.Data) != "b.jpg" || got.Format != frame.FormatJPEG || got.Seq != 1 {
		t.Fatalf("unexpected frame: %+v", got)
	}
	for _, path := range []string{older, newer} {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s removed, stat err=%v", path, err)
		}
	}
	for _, path := range []string{hidden, notes} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}

	if err := src.Poll(box); err != nil {
		t.Fatalf("second Poll: %v", err)
	}
	if _, ok := box.Take(); ok {
		t.Fatal("expected no frame from empty spool")
	}
}

func TestSpoolSourceRunStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Camera.SpoolDir, 0o755); err != nil {
		t.Fatalf("mkdir spool: %v", err)
	}
	src := frame.NewSpoolSource(cfg, logging.NewNop())
	box := frame.NewMailbox()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, box) }()

	if err := os.WriteFile(filepath.Join(cfg.Camera.SpoolDir, "shot.png"), []byte("img"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-box.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for spool frame")
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestSpoolSourceMissingDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Camera.SpoolDir = filepath.Join(t.TempDir(), "absent")
	if err := frame.NewSpoolSource(cfg, logging.NewNop()).Poll(frame.NewMailbox()); err == nil {
		t.Fatal("expected error for missing spool dir")
	}
}
