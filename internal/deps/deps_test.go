package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Optional", Command: "also-not-present-binary", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	missing := Missing(results)
	if len(missing) != 1 || missing[0].Name != "Missing" {
		t.Fatalf("expected only the required missing binary, got %#v", missing)
	}
}

func TestResolveFFmpegFromPath(t *testing.T) {
	binDir := t.TempDir()
	stub := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	status := ResolveFFmpeg("")
	if !status.Available {
		t.Fatalf("expected ffmpeg to resolve, got %#v", status)
	}
	if status.Command != stub {
		t.Fatalf("expected %q, got %q", stub, status.Command)
	}
}

func TestResolveFFmpegExplicitPath(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "my-ffmpeg")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o644); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	status := ResolveFFmpeg(stub)
	if status.Available {
		t.Fatal("expected non-executable file to be unavailable")
	}
	if err := os.Chmod(stub, 0o755); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if status := ResolveFFmpeg(stub); !status.Available || status.Command != stub {
		t.Fatalf("expected explicit path to resolve, got %#v", status)
	}
}

func TestResolveFFmpegNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	status := ResolveFFmpeg("ffmpeg")
	if status.Available {
		t.Fatal("expected ffmpeg to be unavailable")
	}
	if status.Detail == "" {
		t.Fatal("expected detail for missing ffmpeg")
	}
}
