package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hyperjump/eximrag/internal/embedding"
	"github.com/hyperjump/eximrag/internal/vector"
)

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	Store         vector.Stats         `json:"store"`
	Cache         *embedding.CacheInfo `json:"embedding_cache,omitempty"`
	Snapshot      *SnapshotInfo        `json:"snapshot,omitempty"`
	UptimeSeconds int64                `json:"uptime_seconds"`
}

// SnapshotInfo describes the on-disk snapshot.
type SnapshotInfo struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Store:         s.store.Stats(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if s.cache != nil {
		info := s.cache.CacheInfo()
		resp.Cache = &info
	}
	if s.snapshotPath != "" {
		size, err := vector.SnapshotSize(s.snapshotPath)
		if err == nil {
			resp.Snapshot = &SnapshotInfo{Path: s.snapshotPath, SizeBytes: size}
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
