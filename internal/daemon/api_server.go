package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"barscan/internal/api"
	"barscan/internal/catalog"
	"barscan/internal/config"
	"barscan/internal/logging"
	"barscan/internal/scan"
	"barscan/internal/scanlog"
	"barscan/internal/services"
)

const (
	defaultScansLimit = 20
	maxScansLimit     = 500
	scanWaitTimeout   = 30 * time.Second
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	srv := &apiServer{
		bind:   bind,
		token:  cfg.Paths.APIToken,
		logger: logger,
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      scanWaitTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found", "")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	})
	router.Use(requestContext)

	router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	secured := router.PathPrefix("/api").Subrouter()
	secured.Use(authMiddleware(s.token))
	secured.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	secured.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
	secured.HandleFunc("/torch", s.handleTorch).Methods(http.MethodPost)
	secured.HandleFunc("/scans", s.handleScans).Methods(http.MethodGet)
	secured.HandleFunc("/products/{barcode}", s.handleProduct).Methods(http.MethodGet)
	return router
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", s.token != ""),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound listen address, or the configured bind before start.
func (s *apiServer) Addr() string {
	if s == nil {
		return ""
	}
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok", Running: s.daemon.running.Load()})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	camera := api.CameraStatus{
		Source:    status.Camera.Source,
		Running:   status.Camera.Running,
		Restarts:  status.Camera.Restarts,
		LastError: status.Camera.LastError,
		Present:   status.Probe.Detected,
		Hotplug:   status.Hotplug,
	}
	if !status.Camera.LastErrorAt.IsZero() {
		camera.LastErrorAt = status.Camera.LastErrorAt.UTC().Format(time.RFC3339)
	}
	if status.Probe.Device != "" {
		camera.Detail = status.Probe.Detail()
	}
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		LockFilePath: status.LockFilePath,
		ScanLog:      status.ScanLog,
		CatalogPath:  status.CatalogPath,
		Session:      api.FromSnapshot(status.Session),
		Camera:       camera,
		Preflight:    api.FromChecks(status.Preflight),
		Dependencies: api.FromDependencies(status.Dependencies),
	}
	if !status.StartedAt.IsZero() {
		payload.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleScan(w http.ResponseWriter, r *http.Request) {
	session := s.daemon.Session()
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		snap, err := session.Arm(r.Context())
		if err != nil {
			s.writeSessionError(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, api.ScanResponse{Armed: true, Session: api.FromSnapshot(snap)})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scanWaitTimeout)
	defer cancel()
	outcome, err := session.Scan(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.writeError(w, http.StatusGatewayTimeout, "no frame was scanned before the wait timed out", "scan_wait_timeout")
			return
		}
		s.writeSessionError(w, err)
		return
	}
	dto := api.FromOutcome(outcome)
	resp := api.ScanResponse{Armed: true, Outcome: &dto}
	if snap, err := session.Snapshot(r.Context()); err == nil {
		resp.Session = api.FromSnapshot(snap)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleTorch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.daemon.Session().ToggleTorch(r.Context())
	if err != nil && (errors.Is(err, scan.ErrSessionStopped) || r.Context().Err() != nil) {
		s.writeSessionError(w, err)
		return
	}
	resp := api.TorchResponse{On: snap.Torch}
	if err != nil {
		resp.Error = err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleScans(w http.ResponseWriter, r *http.Request) {
	limit := defaultScansLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer", "")
			return
		}
		limit = min(parsed, maxScansLimit)
	}

	path := s.daemon.cfg.Paths.ScanLog
	entries, err := scanlog.Recent(path, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), services.EventType(err))
		return
	}
	var names map[string]string
	if store := s.daemon.Catalog(); store != nil && len(entries) > 0 {
		values := make([]string, 0, len(entries))
		for _, entry := range entries {
			values = append(values, entry.Value)
		}
		names, err = store.Names(r.Context(), values)
		if err != nil {
			s.log().Warn("catalog lookup failed", logging.Error(err))
		}
	}
	s.writeJSON(w, http.StatusOK, api.ScansResponse{Path: path, Entries: api.FromEntries(entries, names)})
}

func (s *apiServer) handleProduct(w http.ResponseWriter, r *http.Request) {
	store := s.daemon.Catalog()
	if store == nil {
		s.writeError(w, http.StatusNotFound, "product catalog disabled", "not_found")
		return
	}
	barcode := catalog.NormalizeBarcode(mux.Vars(r)["barcode"])
	product, err := store.GetByBarcode(r.Context(), barcode)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), services.EventType(err))
		return
	}
	if product == nil {
		s.writeError(w, http.StatusNotFound, "product not found", "not_found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.ProductResponse{Product: api.FromProduct(product)})
}

func (s *apiServer) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scan.ErrSessionStopped):
		s.writeError(w, http.StatusServiceUnavailable, err.Error(), "session_stopped")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusServiceUnavailable, "request cancelled", "")
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error(), services.EventType(err))
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message, eventType string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, EventType: eventType})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}

// requestContext tags each request with a request ID and the "api" trigger
// so scans armed over HTTP are attributable in logs and events.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		trigger := strings.TrimSpace(r.URL.Query().Get("trigger"))
		if trigger == "" {
			trigger = "api"
		}
		ctx := services.WithRequestID(r.Context(), id)
		ctx = services.WithTrigger(ctx, trigger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
