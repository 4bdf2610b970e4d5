package api

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds the checks behind /health.
const healthCheckTimeout = 5 * time.Second

// Health status values.
const (
	healthOK       = "ok"
	healthDegraded = "degraded"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// InstallResponse is returned by GET /install.
type InstallResponse struct {
	Installed []InstalledFile `json:"installed"`
	Pending   []string        `json:"pending"`
}

// InstalledFile is one applied install file.
type InstalledFile struct {
	File        string    `json:"file"`
	InstalledAt time.Time `json:"installed_at"`
}

// handleHealth checks the database and every component. Any failure
// makes the response 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:  healthOK,
		Version: s.version,
		Checks:  make(map[string]string, 1+len(s.components)),
	}

	check := func(name string, hc HealthChecker) {
		if err := hc.HealthCheck(ctx); err != nil {
			resp.Status = healthDegraded
			resp.Checks[name] = err.Error()
			return
		}
		resp.Checks[name] = healthOK
	}

	check("database", s.db)
	for name, c := range s.components {
		check(name, c)
	}

	status := http.StatusOK
	if resp.Status != healthOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleInstallStatus lists applied and pending install files.
func (s *Server) handleInstallStatus(w http.ResponseWriter, r *http.Request) {
	installed, pending, err := s.db.InstallStatus(r.Context(), s.installFiles)
	if err != nil {
		s.logger.Error("reading install status", "error", err)
		writeInternalError(w, "failed to read install status")
		return
	}

	resp := InstallResponse{
		Installed: make([]InstalledFile, 0, len(installed)),
		Pending:   pending,
	}
	if resp.Pending == nil {
		resp.Pending = []string{}
	}
	for _, rec := range installed {
		resp.Installed = append(resp.Installed, InstalledFile{
			File:        rec.File,
			InstalledAt: rec.InstalledAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
