// Package transport exposes the agent pool over HTTP: the per-agent A2A
// JSON-RPC endpoint, agent card discovery, pool introspection, health, and
// operator-triggered reloads.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nodus-ai/agentpool/pkg/a2a"
	"github.com/nodus-ai/agentpool/pkg/config"
	"github.com/nodus-ai/agentpool/pkg/pool"
)

// Server is the pool's HTTP front. All agent traffic and the pool control
// surface share one listener; routing is path-prefix based with the pool's
// own routes taking precedence over agent mounts.
type Server struct {
	identity    config.PoolConfig
	table       *pool.Table
	coordinator *pool.Coordinator
	health      *pool.Aggregator
	metrics     *Metrics

	addr       string
	httpServer *http.Server
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr     string // e.g. ":8000"
	Identity config.PoolConfig
}

// NewServer creates the pool HTTP server.
func NewServer(cfg ServerConfig, table *pool.Table, coordinator *pool.Coordinator, health *pool.Aggregator) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	s := &Server{
		identity:    cfg.Identity,
		table:       table,
		coordinator: coordinator,
		health:      health,
		metrics:     NewMetrics(table),
		addr:        cfg.Addr,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the chi router. Exposed for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	// Pool surface. Static routes win over the {agent} wildcards below.
	r.Get("/", s.handleRoot)
	r.Get("/agents", s.handleListAgents)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.metrics.Handler().ServeHTTP)
	r.Post("/reload", s.handleReloadAll)
	r.Post("/reload/{agent}", s.handleReloadOne)

	// Agent mounts.
	r.Get("/{agent}", s.handleAgentCard)
	r.Get("/{agent}/", s.handleAgentCard)
	r.Post("/{agent}/a2a", s.handleA2A)

	return r
}

// Start begins serving. Blocks until the listener fails or Stop is called.
func (s *Server) Start() error {
	slog.Info("Agent pool server starting", "addr", s.addr, "pool", s.identity.Name)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	slog.Info("Shutting down agent pool server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ============================================================================
// POOL INTROSPECTION
// ============================================================================

type rootAgent struct {
	Name         string          `json:"name"`
	LoadStatus   pool.LoadStatus `json:"load_status"`
	Generation   uint64          `json:"generation"`
	A2AEndpoint  string          `json:"a2a_endpoint"`
	CardEndpoint string          `json:"card_endpoint"`
}

// handleRoot lists all mounted names with status and generation, plus the
// pool's identity.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	entries := s.table.List()

	agents := make([]rootAgent, 0, len(entries))
	for _, entry := range entries {
		agents = append(agents, rootAgent{
			Name:         entry.Name,
			LoadStatus:   entry.Status,
			Generation:   entry.Generation,
			A2AEndpoint:  entry.PathPrefix + "/a2a",
			CardEndpoint: entry.PathPrefix + "/",
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"name":         s.identity.Name,
		"description":  s.identity.Description,
		"version":      s.identity.Version,
		"agents_count": len(agents),
		"agents":       agents,
	})
}

type agentDetail struct {
	Name       string          `json:"name"`
	PathPrefix string          `json:"path_prefix"`
	LoadStatus pool.LoadStatus `json:"load_status"`
	Generation uint64          `json:"generation"`
	LoadedAt   time.Time       `json:"loaded_at"`
	Reason     string          `json:"reason,omitempty"`
	LastError  string          `json:"last_error,omitempty"`
	Card       *a2a.AgentCard  `json:"card,omitempty"`
}

// handleListAgents returns the detailed per-entry listing. Agent cards are
// fetched best-effort; a faulty card provider only loses its own card.
func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	entries := s.table.List()

	agents := make([]agentDetail, 0, len(entries))
	for _, entry := range entries {
		detail := agentDetail{
			Name:       entry.Name,
			PathPrefix: entry.PathPrefix,
			LoadStatus: entry.Status,
			Generation: entry.Generation,
			LoadedAt:   entry.LoadedAt,
			Reason:     entry.Reason,
			LastError:  entry.LastError,
		}
		if entry.Routable() {
			detail.Card = s.safeCard(entry)
		}
		agents = append(agents, detail)
	}

	respondJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

// handleAgentCard serves GET /{name}/ discovery.
func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	agentName := chi.URLParam(r, "agent")

	entry, ok := s.table.Get(agentName)
	if !ok || !entry.Routable() {
		s.respondNotFound(w, agentName)
		return
	}

	card := s.safeCard(entry)
	if card == nil {
		s.respondNotFound(w, agentName)
		return
	}

	// Fill in the mount-relative endpoint; the card itself is agent-owned.
	clone := *card
	clone.Endpoint = entry.PathPrefix + "/a2a"
	respondJSON(w, http.StatusOK, &clone)
}

// safeCard fetches an entry's card, containing provider panics.
func (s *Server) safeCard(entry *pool.MountEntry) (card *a2a.AgentCard) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Agent card provider panicked", "agent", entry.Name, "panic", r)
			card = nil
		}
	}()
	return entry.Handler.Card()
}

// ============================================================================
// HEALTH & RELOAD
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.CheckAll(r.Context())
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleReloadAll(w http.ResponseWriter, r *http.Request) {
	results, err := s.coordinator.ReloadAll(r.Context())
	if err != nil {
		slog.Error("Reload failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"error": fmt.Sprintf("failed to reload configuration: %v", err),
		})
		return
	}

	for _, result := range results {
		s.metrics.ObserveReload(string(result.Status))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status": "reloaded",
		"agents": results,
	})
}

func (s *Server) handleReloadOne(w http.ResponseWriter, r *http.Request) {
	agentName := chi.URLParam(r, "agent")

	result, err := s.coordinator.ReloadOne(r.Context(), agentName)
	switch {
	case errors.Is(err, pool.ErrNotInConfig):
		s.respondNotFound(w, agentName)
		return
	case err != nil:
		slog.Error("Reload failed", "agent", agentName, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"error": fmt.Sprintf("failed to reload agent %q: %v", agentName, err),
		})
		return
	}

	s.metrics.ObserveReload(string(result.Status))

	respondJSON(w, http.StatusOK, map[string]any{
		"status": "reloaded",
		"agent":  agentName,
		"result": result,
	})
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Server) respondNotFound(w http.ResponseWriter, agentName string) {
	respondJSON(w, http.StatusNotFound, map[string]any{
		"error": fmt.Sprintf("agent %q not found", agentName),
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
