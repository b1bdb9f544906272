// Package web exposes the aggregated schedule over HTTP. The server only
// ever serves the last published snapshot; refresh runs swap the snapshot
// in whole, so requests never observe a partially-built collection.
package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"icetime/internal/directory"
	appLog "icetime/internal/log"
	"icetime/internal/model"
)

// Server provides the read-only schedule API.
type Server struct {
	dir *directory.Directory
	mux *http.ServeMux

	mu        sync.RWMutex
	snapshot  []model.Session
	updatedAt time.Time
	runID     string
}

// NewServer constructs a Server with an empty snapshot. The first refresh
// run publishes real data; until then /api/sessions serves [].
func NewServer(dir *directory.Directory) *Server {
	s := &Server{
		dir: dir,
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/sessions", s.handleSessions)
	s.mux.HandleFunc("/api/facilities", s.handleFacilities)
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Publish replaces the served snapshot.
func (s *Server) Publish(runID string, sessions []model.Session) {
	s.mu.Lock()
	s.snapshot = sessions
	s.updatedAt = time.Now()
	s.runID = runID
	s.mu.Unlock()
	appLog.Info("snapshot published", "run_id", runID, "sessions", len(sessions))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleSessions serves the snapshot, optionally filtered by city, type,
// date, or a from/to date range (all canonical string forms).
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	city := q.Get("city")
	typ := q.Get("type")
	date := q.Get("date")
	from := q.Get("from")
	to := q.Get("to")

	s.mu.RLock()
	snapshot := s.snapshot
	updatedAt := s.updatedAt
	s.mu.RUnlock()

	out := make([]model.Session, 0, len(snapshot))
	for _, sess := range snapshot {
		if city != "" && sess.City != city {
			continue
		}
		if typ != "" && string(sess.Type) != typ {
			continue
		}
		if date != "" && sess.Date != date {
			continue
		}
		if from != "" && sess.Date < from {
			continue
		}
		if to != "" && sess.Date > to {
			continue
		}
		out = append(out, sess)
	}

	if !updatedAt.IsZero() {
		w.Header().Set("Last-Modified", updatedAt.UTC().Format(http.TimeFormat))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFacilities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dir.Facilities())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to encode JSON response", err)
	}
}
