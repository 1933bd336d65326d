// Package api exposes a read-mostly HTTP surface over a running
// scheduler: per-client and global metrics, client registration, and a
// liveness probe. It never touches job execution directly — all state
// changes go through the scheduler's own exported methods.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"quanta/internal/scheduler"
)

// Server wraps a mux.Router around a *scheduler.Scheduler.
type Server struct {
	server  *http.Server
	logger  *zap.Logger
	sched   *scheduler.Scheduler
	metrics *httpMetrics
}

// New builds a Server bound to sched. Start must be called to begin
// listening.
func New(sched *scheduler.Scheduler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		sched:   sched,
		logger:  logger,
		metrics: newHTTPMetrics(),
	}
}

// Start begins listening on addr in the background. It returns once the
// listener goroutine has been launched; errors surface via the logger,
// matching the fire-and-forget ListenAndServe convention used elsewhere.
func (s *Server) Start(addr string) error {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)
	router.Use(s.corsMiddleware)

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/clients", s.handleClients).Methods(http.MethodGet, http.MethodPost)
	v1.HandleFunc("/clients/{id}", s.handleClient).Methods(http.MethodGet)
	v1.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	v1.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("starting admin HTTP server", zap.String("addr", addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("admin HTTP server failed", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts the server down, waiting up to 10s for
// in-flight requests to finish.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("stopping admin HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snapshots := s.sched.AllClientMetrics()
		clients := make([]map[string]any, 0, len(snapshots))
		for _, snap := range snapshots {
			clients = append(clients, clientMetricsJSON(snap.ID, snap.ClientMetrics))
		}
		s.writeJSON(w, map[string]any{"clients": clients})
	case http.MethodPost:
		var req struct {
			ID               string `json:"id"`
			Weight           *int   `json:"weight"`
			MaxQueueDepth    int    `json:"max_queue_depth"`
			OverflowStrategy string `json:"overflow_strategy"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, "clients", http.StatusBadRequest, err)
			return
		}

		opts := []scheduler.ClientOption{}
		if req.Weight != nil {
			opts = append(opts, scheduler.WithWeight(*req.Weight))
		}
		if req.MaxQueueDepth != 0 {
			opts = append(opts, scheduler.WithMaxQueueDepth(req.MaxQueueDepth))
		}
		if strategy, ok := parseOverflowStrategy(req.OverflowStrategy); ok {
			opts = append(opts, scheduler.WithOverflowStrategy(strategy))
		}

		if err := s.sched.RegisterClient(req.ID, opts...); err != nil {
			status := http.StatusConflict
			if errors.Is(err, scheduler.ErrInvalidArgument) {
				status = http.StatusBadRequest
			}
			s.writeError(w, "clients", status, err)
			return
		}
		s.writeJSON(w, map[string]any{"status": "registered", "id": req.ID})
	}
}

func (s *Server) handleClient(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	m, err := s.sched.ClientMetrics(id)
	if err != nil {
		s.writeError(w, "clients/"+id, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, clientMetricsJSON(id, m))
}

func clientMetricsJSON(id string, m scheduler.ClientMetrics) map[string]any {
	return map[string]any{
		"id":                    id,
		"weight":                m.Weight,
		"queue_depth":           m.QueueDepth,
		"submitted":             m.Submitted,
		"executed":              m.Executed,
		"avg_execution_time_us": m.AvgExecutionTimeUs,
		"overflow_count":        m.OverflowCount,
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	global := s.sched.GlobalMetrics()
	s.writeJSON(w, map[string]any{
		"scheduler": map[string]any{
			"total_processed":     global.TotalProcessed,
			"active_clients":      global.ActiveClients,
			"jain_fairness_index": global.JainFairnessIndex,
		},
		"http": s.metrics.snapshot(),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{"status": "ok"})
}

func parseOverflowStrategy(s string) (scheduler.OverflowStrategy, bool) {
	switch s {
	case "", "reject":
		return scheduler.Reject, s != ""
	case "block":
		return scheduler.Block, true
	case "drop_oldest":
		return scheduler.DropOldest, true
	case "drop_newest":
		return scheduler.DropNewest, true
	default:
		return 0, false
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.metrics.incrementRequestCount(r.URL.Path)
		next.ServeHTTP(w, r)
		s.metrics.recordResponseTime(r.URL.Path, time.Since(start))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) writeError(w http.ResponseWriter, endpoint string, status int, err error) {
	s.metrics.incrementErrorCount(endpoint)
	http.Error(w, fmt.Sprintf("%v", err), status)
}
