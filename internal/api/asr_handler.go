package api

import (
	"net/http"

	"github.com/phrazzld/pulseweave/internal/api/shared"
	"github.com/phrazzld/pulseweave/internal/asr"
)

// Watcher is the control surface of *asr.Watcher
type Watcher interface {
	Start() bool
	Stop() bool
	Stats() asr.Stats
	RecentResults(limit int) []asr.RecentResult
}

// ASRHandler serves the ASR watcher endpoints
type ASRHandler struct {
	watcher Watcher
}

// NewASRHandler creates a new ASRHandler
func NewASRHandler(watcher Watcher) *ASRHandler {
	return &ASRHandler{watcher: watcher}
}

// WatcherControlResponse reports the outcome of a start or stop request
type WatcherControlResponse struct {
	Changed bool      `json:"changed"`
	Stats   asr.Stats `json:"stats"`
}

// Start handles POST /api/asr/start. Starting a running watcher is not an error.
func (h *ASRHandler) Start(w http.ResponseWriter, r *http.Request) {
	changed := h.watcher.Start()
	shared.RespondWithJSON(w, r, http.StatusOK, WatcherControlResponse{Changed: changed, Stats: h.watcher.Stats()})
}

// Stop handles POST /api/asr/stop. Stopping a stopped watcher is not an error.
func (h *ASRHandler) Stop(w http.ResponseWriter, r *http.Request) {
	changed := h.watcher.Stop()
	shared.RespondWithJSON(w, r, http.StatusOK, WatcherControlResponse{Changed: changed, Stats: h.watcher.Stats()})
}

// Stats handles GET /api/asr/stats
func (h *ASRHandler) Stats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.watcher.Stats())
}

// Recent handles GET /api/asr/recent?limit=N
func (h *ASRHandler) Recent(w http.ResponseWriter, r *http.Request) {
	q, err := getLimit(r, 10)
	if err == nil {
		err = shared.ValidateRequest(&q)
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "limit must be between 1 and 1000", err)
		return
	}

	results := h.watcher.RecentResults(q.Limit)
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}
