// Package api implements the HTTP control surface over a running engine:
// a small set of endpoints to drive ticks, inspect the live graph, and stop
// the run.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tsengine/internal/engine"
)

// Server handles HTTP requests for a single running engine instance.
type Server struct {
	eng *engine.EvaluationEngine
}

// NewServer creates and configures a new API server over eng.
func NewServer(eng *engine.EvaluationEngine) *Server {
	return &Server{eng: eng}
}

// RegisterRoutes sets up the HTTP routes for the server on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/tick", s.handleTick)
	mux.HandleFunc("/stop", s.handleStop)
	mux.HandleFunc("/graph", s.handleGraph)
}

// handleTick runs exactly one evaluation cycle and reports the time it ran
// at. Intended for manual/demo drivers; an auto-ticking deployment instead
// runs its own background loop calling eng.Tick directly.
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	at, err := s.eng.Tick()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"at": int64(at)})
}

// handleStop requests the engine stop and tears every graph's nodes down.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if err := s.eng.Stop(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGraph reports every node across every graph this engine drives:
// its id, signature kind, active flag, and last evaluation time.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	type nodeView struct {
		ID           string `json:"id"`
		Kind         string `json:"kind"`
		Active       bool   `json:"active"`
		LastEvalTime int64  `json:"last_eval_time"`
	}
	var views []nodeView
	for _, g := range s.eng.Graphs {
		for _, n := range g.Nodes() {
			views = append(views, nodeView{
				ID:           n.ID,
				Kind:         n.Signature.Kind,
				Active:       n.Active(),
				LastEvalTime: int64(n.LastEvalTime()),
			})
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"nodes": views})
}

// ListenAndServe starts the HTTP server on addr with the routes from
// RegisterRoutes plus /healthz. It does not serve /metrics.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "time": time.Now().UTC()})
	})

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	fmt.Printf("tsengine API server listening on %s\n", addr)
	return httpServer.ListenAndServe()
}
