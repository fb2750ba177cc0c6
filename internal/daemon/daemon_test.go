package daemon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/makiuchi-d/gozxing"

	"barscan/internal/api"
	"barscan/internal/catalog"
	"barscan/internal/config"
	"barscan/internal/daemon"
	"barscan/internal/frame"
	"barscan/internal/recognize"
	"barscan/internal/scan"
	"barscan/internal/scanlog"
	"barscan/internal/services"
	"barscan/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config, store *catalog.Store) *daemon.Daemon {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	recognizer, err := recognize.NewZXing(cfg.Scan.Symbologies, false)
	if err != nil {
		t.Fatalf("NewZXing: %v", err)
	}
	opts := scan.Options{
		Recognizer:       recognizer,
		Log:              scanlog.NewWriter(cfg.Paths.ScanLog),
		DedupWindow:      cfg.DedupWindow(),
		StatusClearDelay: cfg.StatusClearDelay(),
		RecognizeTimeout: cfg.RecognizeTimeout(),
	}
	if store != nil {
		opts.Products = store
	}
	session, err := scan.NewSession(opts)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	d, err := daemon.New(cfg, nil, daemon.Options{
		Session: session,
		Source:  frame.NewSpoolSource(cfg, nil),
		Catalog: store,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestNewRequiresCollaborators(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, nil, daemon.Options{}); err == nil {
		t.Fatal("expected error without session and source")
	}
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Session.Gate != "idle" {
		t.Fatalf("expected idle gate, got %q", status.Session.Gate)
	}
	if len(status.Preflight) == 0 {
		t.Fatal("expected preflight results to be recorded")
	}
	if !strings.HasPrefix(status.Camera.Source, "spool:") {
		t.Fatalf("unexpected camera source: %q", status.Camera.Source)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg, nil)
	second := newDaemon(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	err := second.Start(ctx)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}
	second.Stop()
	if _, err := os.Stat(first.PIDPath()); err != nil {
		t.Fatalf("refused instance must leave the pid file alone: %v", err)
	}

	first.Stop()
	if _, err := os.Stat(first.PIDPath()); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed on stop, got %v", err)
	}
}

func TestDaemonPreflightFailureIsTerminal(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "video9")
	cfg := testsupport.NewConfig(t, testsupport.WithCameraDevice(missing), testsupport.WithStubbedBinaries())
	d := newDaemon(t, cfg, nil)

	err := d.Start(context.Background())
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	if !errors.Is(err, services.ErrDevice) {
		t.Fatalf("expected device error, got %v", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "barscand.lock"))
	ok, lockErr := lock.TryLock()
	if lockErr != nil || !ok {
		t.Fatalf("expected lock to be released after failed start (ok=%v err=%v)", ok, lockErr)
	}
	_ = lock.Unlock()
}

func TestDaemonScansSpoolImageThroughAPI(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	testsupport.AddProduct(t, store, "Sparkling Water", "4006381333931")
	d := newDaemon(t, cfg, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	client, err := api.NewClient(d.APIAddr(), "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	type result struct {
		resp api.ScanResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		scanCtx, scanCancel := context.WithTimeout(ctx, 10*time.Second)
		defer scanCancel()
		resp, err := client.Scan(scanCtx, true)
		done <- result{resp, err}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		status, err := client.Status(ctx)
		if err == nil && status.Session.Gate == "armed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the gate to arm")
		}
		time.Sleep(10 * time.Millisecond)
	}

	img := testsupport.BarcodeImage(t, gozxing.BarcodeFormat_EAN_13, "4006381333931")
	staged := filepath.Join(cfg.Camera.SpoolDir, ".frame.png")
	testsupport.WritePNG(t, staged, img)
	if err := os.Rename(staged, filepath.Join(cfg.Camera.SpoolDir, "frame.png")); err != nil {
		t.Fatalf("rename frame: %v", err)
	}

	var got result
	select {
	case got = <-done:
	case <-time.After(15 * time.Second):
		t.Fatal("scan did not complete")
	}
	if got.err != nil {
		t.Fatalf("Scan error: %v", got.err)
	}
	outcome := got.resp.Outcome
	if outcome == nil || outcome.Kind != string(scan.KindAccepted) {
		t.Fatalf("expected accepted outcome, got %+v", outcome)
	}
	if outcome.Message != "Scanned: 4006381333931" {
		t.Fatalf("unexpected message: %q", outcome.Message)
	}
	if outcome.Product != "Sparkling Water" {
		t.Fatalf("expected catalog product, got %q", outcome.Product)
	}
	if got.resp.Session.Gate != "idle" {
		t.Fatalf("expected gate closed after the attempt, got %q", got.resp.Session.Gate)
	}

	scans, err := client.Scans(ctx, 5)
	if err != nil {
		t.Fatalf("Scans error: %v", err)
	}
	if len(scans.Entries) != 1 || scans.Entries[0].Value != "4006381333931" || scans.Entries[0].Product != "Sparkling Water" {
		t.Fatalf("unexpected scan history: %+v", scans.Entries)
	}

	product, err := client.Product(ctx, "4006381333931")
	if err != nil {
		t.Fatalf("Product error: %v", err)
	}
	if product.Name != "Sparkling Water" {
		t.Fatalf("unexpected product: %+v", product)
	}
}
