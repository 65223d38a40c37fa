// Package server provides the HTTP REST API for the recruitment workflow.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jonathan/hrms/internal/accesslink"
	"github.com/jonathan/hrms/internal/config"
	"github.com/jonathan/hrms/internal/permissions"
	"github.com/jonathan/hrms/internal/pipeline"
	"github.com/jonathan/hrms/internal/replication"
	"github.com/jonathan/hrms/internal/reports"
	"github.com/jonathan/hrms/internal/requirements"
	"github.com/jonathan/hrms/internal/server/middleware"
	"github.com/jonathan/hrms/internal/server/ratelimit"
	"github.com/jonathan/hrms/internal/templates"
)

const shutdownTimeout = 15 * time.Second

// Server is the REST API of the recruitment workflow.
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	deps        Deps
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
}

// Config holds server settings.
type Config struct {
	Addr      string
	JWT       *config.JWTConfig
	RateLimit *ratelimit.Config // nil loads RATE_LIMIT_* from the environment
}

// Deps are the services the API exposes. Outbox may be nil when
// replication is disabled.
type Deps struct {
	Requirements *requirements.Service
	Pipeline     *pipeline.Service
	Templates    *templates.Service
	Reports      *reports.Service
	Permissions  *permissions.Matrix
	Links        *accesslink.Issuer
	Outbox       *replication.Outbox
}

// New builds the route table and middleware chain.
func New(cfg Config, deps Deps) (*Server, error) {
	if cfg.JWT == nil {
		return nil, fmt.Errorf("session token config is required")
	}
	if deps.Requirements == nil || deps.Pipeline == nil || deps.Templates == nil ||
		deps.Reports == nil || deps.Permissions == nil {
		return nil, fmt.Errorf("server dependencies are incomplete")
	}

	rl := cfg.RateLimit
	if rl == nil {
		rl = ratelimit.LoadConfig()
	}

	s := &Server{
		deps:        deps,
		rateLimiter: ratelimit.NewLimiter(rl),
		jwtService:  NewJWTService(cfg.JWT),
	}

	api := http.NewServeMux()

	// Requirement lifecycle
	api.HandleFunc("GET /requirements", s.handleListRequirements)
	api.HandleFunc("POST /requirements", s.handleRaiseRequirement)
	api.HandleFunc("GET /requirements/{id}", s.handleGetRequirement)
	api.HandleFunc("PUT /requirements/{id}", s.handleResubmitRequirement)
	api.HandleFunc("POST /requirements/{id}/approve", s.handleApproveRequirement)
	api.HandleFunc("POST /requirements/{id}/send-back", s.handleSendBackRequirement)
	api.HandleFunc("GET /requirements/{id}/details", s.handleRequirementDetails)
	api.HandleFunc("POST /requirements/{id}/candidates", s.handleUploadCandidates)

	// Candidate pipeline
	api.HandleFunc("GET /candidates", s.handleListCandidates)
	api.HandleFunc("GET /candidates/{id}", s.handleGetCandidate)
	api.HandleFunc("GET /queues/{stage}", s.handleQueue)
	api.HandleFunc("POST /candidates/{id}/shortlist", s.handleShortlist)
	api.HandleFunc("POST /candidates/{id}/telephonic", s.handleTelephonic)
	api.HandleFunc("POST /candidates/{id}/owner-review", s.handleOwnerReview)
	api.HandleFunc("POST /candidates/{id}/schedule", s.handleSchedule)
	api.HandleFunc("GET /candidates/{id}/invitation", s.handleInvitation)
	api.HandleFunc("POST /candidates/{id}/appeared", s.handleAppeared)
	api.HandleFunc("POST /candidates/{id}/hr-interview", s.handleHRInterview)
	api.HandleFunc("POST /candidates/{id}/tests", s.handleTestMarks)
	api.HandleFunc("PUT /candidates/{id}/role", s.handleChangeRole)

	// Templates, permissions and reports
	api.HandleFunc("GET /templates", s.handleListTemplates)
	api.HandleFunc("GET /templates/{role}", s.handleGetTemplate)
	api.HandleFunc("PUT /templates/{role}", s.handleSaveTemplate)
	api.HandleFunc("GET /permissions", s.handleListPermissions)
	api.HandleFunc("PUT /permissions", s.handleSetPermission)
	api.HandleFunc("GET /reports/stats", s.handleStats)
	api.HandleFunc("GET /reports/audit", s.handleAudit)

	// Replication
	api.HandleFunc("GET /sync/status", s.handleSyncStatus)
	api.HandleFunc("POST /sync/retry", s.handleSyncRetry)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /interview/verify", s.handleVerifyLink)
	mux.Handle("/", middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(api))

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	return s, nil
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Tokens returns the session token service.
func (s *Server) Tokens() *JWTService {
	return s.jwtService
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to shutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	defer s.rateLimiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Println("[server] shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("[server] stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.deps.Outbox != nil {
		resp["replication"] = s.deps.Outbox.Stats()
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// jsonResponse writes data as the JSON body.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[server] error encoding JSON response: %v", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
