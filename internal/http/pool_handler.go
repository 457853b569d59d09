package http

import (
	"log/slog"
	"net/http"

	"github.com/example/calendar-bridge/internal/remote"
)

// PoolAdmin is the slice of pool behavior the admin surface needs.
type PoolAdmin interface {
	Stats() map[string]remote.NodeStats
	Clear()
	ClearNode(nodeID string)
}

// PoolHandler exposes pool introspection and drain operations.
type PoolHandler struct {
	pool      PoolAdmin
	responder responder
}

// NewPoolHandler wires the pool admin endpoints.
func NewPoolHandler(pool PoolAdmin, logger *slog.Logger) *PoolHandler {
	return &PoolHandler{pool: pool, responder: newResponder(logger)}
}

type poolStatsResponse struct {
	Nodes map[string]remote.NodeStats `json:"nodes"`
}

// Stats reports per-node borrowed/idle counts.
func (h *PoolHandler) Stats(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, poolStatsResponse{Nodes: h.pool.Stats()})
}

// Clear drains idle sessions on every node and marks borrowed ones for
// destruction on return.
func (h *PoolHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.pool.Clear()
	h.responder.loggerFor(r.Context()).InfoContext(r.Context(), "session pool cleared")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ClearNode drains one node's sub-pool.
func (h *PoolHandler) ClearNode(w http.ResponseWriter, r *http.Request, nodeID string) {
	h.pool.ClearNode(nodeID)
	h.responder.loggerFor(r.Context()).InfoContext(r.Context(), "node session pool cleared", "node", nodeID)
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
