package api

import (
	"net/http"
	"time"

	"github.com/phrazzld/pulseweave/internal/api/shared"
	"github.com/phrazzld/pulseweave/internal/stats"
)

// StatsSource is satisfied by *stats.Aggregator
type StatsSource interface {
	Snapshot() stats.Snapshot
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Provider  string    `json:"provider"`
	Timestamp time.Time `json:"timestamp"`
}

// SystemHandler serves health and stats
type SystemHandler struct {
	stats    StatsSource
	provider string
}

// NewSystemHandler creates a new SystemHandler. provider names the active
// inference provider in health responses.
func NewSystemHandler(stats StatsSource, provider string) *SystemHandler {
	return &SystemHandler{stats: stats, provider: provider}
}

// Health handles GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "ok",
		Provider:  h.provider,
		Timestamp: time.Now().UTC(),
	})
}

// Stats handles GET /ws/stats
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.stats.Snapshot())
}
