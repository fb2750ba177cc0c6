package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/makiuchi-d/gozxing"

	"barscan/internal/testsupport"
)

func TestDecodeImages(t *testing.T) {
	cfg, configPath := setupOfflineEnv(t)
	dir := t.TempDir()

	first := filepath.Join(dir, "first.png")
	repeat := filepath.Join(dir, "repeat.png")
	blank := filepath.Join(dir, "blank.png")
	testsupport.WritePNG(t, first, testsupport.BarcodeImage(t, gozxing.BarcodeFormat_EAN_13, "4006381333931"))
	testsupport.WritePNG(t, repeat, testsupport.BarcodeImage(t, gozxing.BarcodeFormat_EAN_13, "4006381333931"))
	testsupport.WritePNG(t, blank, testsupport.BlankImage(320, 120))

	out, _, err := runCLI(t, []string{"decode", first, repeat, blank}, configPath)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	requireContains(t, out, first+": Scanned: 4006381333931")
	requireContains(t, out, repeat+": Duplicate or invalid")
	requireContains(t, out, blank+": Nothing detected")

	data, err := os.ReadFile(cfg.Paths.ScanLog)
	if err != nil {
		t.Fatalf("read scan log: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 1 {
		t.Fatalf("expected exactly one recorded scan, got %q", data)
	}
}

func TestDecodeWithoutRecording(t *testing.T) {
	cfg, configPath := setupOfflineEnv(t)
	img := filepath.Join(t.TempDir(), "code.png")
	testsupport.WritePNG(t, img, testsupport.BarcodeImage(t, gozxing.BarcodeFormat_EAN_8, "96385074"))

	out, _, err := runCLI(t, []string{"decode", "--record=false", img}, configPath)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	requireContains(t, out, "Scanned: 96385074")
	if _, err := os.Stat(cfg.Paths.ScanLog); !os.IsNotExist(err) {
		t.Fatalf("scan log should not be written, stat err=%v", err)
	}
}

func TestDecodeReportsUnreadableFiles(t *testing.T) {
	_, configPath := setupOfflineEnv(t)
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"decode", garbage, filepath.Join(dir, "missing.png")}, configPath)
	if err == nil || !strings.Contains(err.Error(), "2 of 2") {
		t.Fatalf("expected failure count, got %v", err)
	}
	requireContains(t, out, "Scan error")
}
