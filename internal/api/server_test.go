package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/nerrad567/writerbot/internal/bot"
	"github.com/nerrad567/writerbot/internal/infrastructure/config"
	"github.com/nerrad567/writerbot/internal/infrastructure/database"
	"github.com/nerrad567/writerbot/internal/infrastructure/logging"
)

// fakeComponent is a HealthChecker with a fixed result.
type fakeComponent struct {
	err error
}

func (c fakeComponent) HealthCheck(context.Context) error { return c.err }

// fakePrefixes counts flushes.
type fakePrefixes struct {
	cached  int
	flushes int
}

func (p *fakePrefixes) Flush()      { p.flushes++; p.cached = 0 }
func (p *fakePrefixes) Cached() int { return p.cached }

var testInstallFiles = fstest.MapFS{
	"001_words.sql":  {Data: []byte("CREATE TABLE words (word VARCHAR(64) PRIMARY KEY);")},
	"002_extra.sql":  {Data: []byte("CREATE TABLE extra (id INTEGER PRIMARY KEY);")},
	"notes/skip.sql": {Data: []byte("not sql")},
}

type testDeps struct {
	db       *database.DB
	prefixes *fakePrefixes
}

// testServer creates a Server over a SQLite database with the first
// install file applied.
func testServer(t *testing.T, components map[string]HealthChecker) (*Server, testDeps) {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "api.db"),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if _, err := db.Install(context.Background(), fstest.MapFS{
		"001_words.sql": testInstallFiles["001_words.sql"],
	}); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	registry := bot.NewRegistry()
	noop := func(context.Context, *bot.Bot, *bot.Invocation) (string, error) { return "", nil }
	for _, cmd := range []bot.Command{
		{Name: "wrote", Aliases: []string{"wc"}, Usage: "wrote <words>", GuildOnly: true, Run: noop},
		{Name: "ping", Usage: "ping", Run: noop},
	} {
		if err := registry.Register(cmd); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	prefixes := &fakePrefixes{cached: 3}
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "discard"}, "test")

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		Logger:       log,
		Database:     db,
		InstallFiles: testInstallFiles,
		Commands:     registry,
		Prefixes:     prefixes,
		Components:   components,
		Version:      "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv, testDeps{db: db, prefixes: prefixes}
}

func serve(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() without database should fail")
	}
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _ := testServer(t, map[string]HealthChecker{"discord": fakeComponent{}})

	w := serve(t, srv, http.MethodGet, "/api/v1/health")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp HealthResponse
	decode(t, w, &resp)
	if resp.Status != "ok" || resp.Version != "test" {
		t.Errorf("response = %+v, want ok/test", resp)
	}
	if resp.Checks["database"] != "ok" || resp.Checks["discord"] != "ok" {
		t.Errorf("checks = %v, want database and discord ok", resp.Checks)
	}
}

func TestHealth_Degraded(t *testing.T) {
	srv, _ := testServer(t, map[string]HealthChecker{
		"discord": fakeComponent{err: errors.New("not connected")},
		"mqtt":    nil,
	})

	w := serve(t, srv, http.MethodGet, "/api/v1/health")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	var resp HealthResponse
	decode(t, w, &resp)
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
	if resp.Checks["discord"] != "not connected" {
		t.Errorf("discord check = %q", resp.Checks["discord"])
	}
	if _, ok := resp.Checks["mqtt"]; ok {
		t.Error("nil component should not be checked")
	}
}

func TestHealth_DatabaseClosed(t *testing.T) {
	srv, deps := testServer(t, nil)
	deps.db.Close() //nolint:errcheck // Simulating failure

	w := serve(t, srv, http.MethodGet, "/api/v1/health")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv, _ := testServer(t, nil)

	w := serve(t, srv, http.MethodGet, "/api/v1/health")
	if len(w.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("X-Request-ID = %q, want a UUID", w.Header().Get("X-Request-ID"))
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv, _ := testServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestRecovery(t *testing.T) {
	srv, _ := testServer(t, nil)

	handler := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := testServer(t, nil)

	w := serve(t, srv, http.MethodGet, "/api/v1/nonexistent")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Bot Endpoint Tests ────────────────────────────────────────────

func TestListCommands(t *testing.T) {
	srv, _ := testServer(t, nil)

	w := serve(t, srv, http.MethodGet, "/api/v1/commands")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Commands []CommandInfo `json:"commands"`
		Count    int           `json:"count"`
	}
	decode(t, w, &resp)

	if resp.Count != 2 || len(resp.Commands) != 2 {
		t.Fatalf("count = %d, commands = %d, want 2", resp.Count, len(resp.Commands))
	}
	if resp.Commands[0].Name != "ping" || resp.Commands[1].Name != "wrote" {
		t.Errorf("commands = %+v, want ping then wrote", resp.Commands)
	}
	if !resp.Commands[1].GuildOnly || len(resp.Commands[1].Aliases) != 1 {
		t.Errorf("wrote = %+v", resp.Commands[1])
	}
}

func TestInstallStatus(t *testing.T) {
	srv, _ := testServer(t, nil)

	w := serve(t, srv, http.MethodGet, "/api/v1/install")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp InstallResponse
	decode(t, w, &resp)

	if len(resp.Installed) != 1 || resp.Installed[0].File != "001_words.sql" {
		t.Errorf("installed = %+v, want 001_words.sql", resp.Installed)
	}
	if resp.Installed[0].InstalledAt.IsZero() {
		t.Error("installed_at is zero")
	}
	if len(resp.Pending) != 1 || resp.Pending[0] != "002_extra.sql" {
		t.Errorf("pending = %v, want [002_extra.sql]", resp.Pending)
	}
}

func TestFlushPrefixes(t *testing.T) {
	srv, deps := testServer(t, nil)

	if w := serve(t, srv, http.MethodGet, "/api/v1/prefixes/flush"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}

	w := serve(t, srv, http.MethodPost, "/api/v1/prefixes/flush")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	decode(t, w, &resp)
	if resp["flushed"] != float64(3) {
		t.Errorf("flushed = %v, want 3", resp["flushed"])
	}
	if deps.prefixes.flushes != 1 {
		t.Errorf("Flush called %d times, want 1", deps.prefixes.flushes)
	}
}

func TestMetrics(t *testing.T) {
	srv, _ := testServer(t, nil)

	w := serve(t, srv, http.MethodGet, "/api/v1/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp SystemMetrics
	decode(t, w, &resp)
	if resp.Version != "test" {
		t.Errorf("version = %q, want test", resp.Version)
	}
	if resp.Bot.Commands != 2 || resp.Bot.CachedPrefixes != 3 {
		t.Errorf("bot metrics = %+v, want 2 commands and 3 prefixes", resp.Bot)
	}
	if resp.Runtime.Goroutines == 0 {
		t.Error("goroutines = 0")
	}
}

func TestServer_StartClose(t *testing.T) {
	srv, _ := testServer(t, nil)

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if srv.server.ReadTimeout != 5*time.Second || srv.server.WriteTimeout != 5*time.Second ||
		srv.server.IdleTimeout != 5*time.Second {
		t.Errorf("server timeouts = %v/%v/%v, want 5s from settings",
			srv.server.ReadTimeout, srv.server.WriteTimeout, srv.server.IdleTimeout)
	}
	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
