// Package api provides the HTTP status server for WriterBot.
//
// It exposes health, runtime metrics, the command list, and install status
// to operators and monitoring. Nothing here is needed for the bot to run.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/writerbot/internal/bot"
	"github.com/nerrad567/writerbot/internal/infrastructure/config"
	"github.com/nerrad567/writerbot/internal/infrastructure/database"
	"github.com/nerrad567/writerbot/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Database is the part of *database.DB the status server reads.
type Database interface {
	HealthCheck(ctx context.Context) error
	Stats() sql.DBStats
	InstallStatus(ctx context.Context, source fs.FS) ([]database.InstallRecord, []string, error)
}

// HealthChecker is implemented by every optional component.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CommandLister lists registered chat commands.
type CommandLister interface {
	Commands() []bot.Command
}

// PrefixCache is the bot's guild prefix cache.
type PrefixCache interface {
	Flush()
	Cached() int
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Database Database

	// InstallFiles is the install source reported by /install.
	InstallFiles fs.FS

	Commands CommandLister
	Prefixes PrefixCache

	// Components are health-checked alongside the database, keyed by name
	// (e.g. "discord", "mqtt").
	Components map[string]HealthChecker

	Version string
}

// Server is the HTTP status server.
type Server struct {
	cfg          config.APIConfig
	logger       *logging.Logger
	db           Database
	installFiles fs.FS
	commands     CommandLister
	prefixes     PrefixCache
	components   map[string]HealthChecker
	version      string
	startTime    time.Time
	server       *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Database == nil {
		return nil, fmt.Errorf("database is required")
	}

	components := make(map[string]HealthChecker, len(deps.Components))
	for name, c := range deps.Components {
		if c != nil {
			components[name] = c
		}
	}

	return &Server{
		cfg:          deps.Config,
		logger:       deps.Logger,
		db:           deps.Database,
		installFiles: deps.InstallFiles,
		commands:     deps.Commands,
		prefixes:     deps.Prefixes,
		components:   components,
		version:      deps.Version,
		startTime:    time.Now(),
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// Listener errors other than a clean shutdown are logged.
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
