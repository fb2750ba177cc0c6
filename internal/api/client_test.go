package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"barscan/internal/api"
)

func TestNewClientEmptyBind(t *testing.T) {
	client, err := api.NewClient("", "")
	if !errors.Is(err, api.ErrAPIUnavailable) {
		t.Fatalf("expected ErrAPIUnavailable, got %v", err)
	}
	if client != nil {
		t.Fatal("expected nil client for empty bind")
	}
}

func TestNewClientDialsLoopbackForWildcardBind(t *testing.T) {
	client, err := api.NewClient("0.0.0.0:7490", "")
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if got := client.BaseURL(); got != "http://127.0.0.1:7490" {
		t.Fatalf("unexpected base url: %q", got)
	}
}

func TestClientScanSendsTokenAndWait(t *testing.T) {
	var gotAuth, gotWait, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotWait = r.URL.Query().Get("wait")
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.ScanResponse{
			Armed:   true,
			Outcome: &api.Outcome{Kind: "accepted", Message: "Scanned: 4006381333931", Value: "4006381333931"},
		})
	}))
	defer srv.Close()

	client, err := api.NewClient(srv.URL, "secret")
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	resp, err := client.Scan(context.Background(), true)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotWait != "1" {
		t.Fatalf("expected wait=1, got %q", gotWait)
	}
	if resp.Outcome == nil || resp.Outcome.Value != "4006381333931" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestClientDecodesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "scan session stopped", EventType: "transient_failure"})
	}))
	defer srv.Close()

	client, _ := api.NewClient(srv.URL, "")
	_, err := client.Torch(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if api.StatusCode(err) != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status code: %d", api.StatusCode(err))
	}
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) || statusErr.EventType != "transient_failure" {
		t.Fatalf("expected decoded status error, got %v", err)
	}
	if !strings.Contains(err.Error(), "scan session stopped") {
		t.Fatalf("expected message in error, got %v", err)
	}
}

func TestClientScansPassesLimit(t *testing.T) {
	var gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		_ = json.NewEncoder(w).Encode(api.ScansResponse{Entries: []api.ScanEntry{{Value: "12345670"}}})
	}))
	defer srv.Close()

	client, _ := api.NewClient(srv.URL, "")
	resp, err := client.Scans(context.Background(), 7)
	if err != nil {
		t.Fatalf("Scans error: %v", err)
	}
	if gotLimit != "7" || len(resp.Entries) != 1 {
		t.Fatalf("unexpected limit %q or entries %+v", gotLimit, resp.Entries)
	}
}

func TestIsAPIUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	client, _ := api.NewClient(addr, "")
	_, err := client.Health(context.Background())
	if !api.IsAPIUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if api.IsAPIUnavailable(nil) {
		t.Fatal("nil error should not be unavailable")
	}
	if api.IsAPIUnavailable(&api.StatusError{Code: 500}) {
		t.Fatal("status errors are not unavailability")
	}
}
