package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/dispatch/internal/tracking"
	"github.com/vietddude/dispatch/internal/transport"
)

// Report is the detailed health payload.
type Report struct {
	Status         string         `json:"status"`
	TrackedRecords int            `json:"tracked_records"`
	TrackedIDs     []string       `json:"tracked_ids,omitempty"`
	QueueDepths    map[string]int `json:"queue_depths"`
}

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	tracker *tracking.ErrorTracker
	queues  []*transport.Queue
	server  *http.Server
}

// NewServer creates a new health server.
func NewServer(tracker *tracking.ErrorTracker, queues []*transport.Queue, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		tracker: tracker,
		queues:  queues,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) report(withIDs bool) Report {
	report := Report{
		Status:      "healthy",
		QueueDepths: make(map[string]int),
	}
	if s.tracker != nil {
		report.TrackedRecords = s.tracker.Len()
		if withIDs {
			report.TrackedIDs = s.tracker.TrackedIDs()
		}
	}
	for _, q := range s.queues {
		report.QueueDepths[q.Name()] = q.Len()
	}
	return report
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.report(false)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": report.Status})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.report(true))
}
