package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"shardhub/internal/health"
	"shardhub/internal/routing"
	"shardhub/internal/topology"
)

type ShardHandler struct {
	topo    *topology.Topology
	router  *routing.Router
	tracker *health.Tracker
	logger  requestLogger
}

func NewShardHandler(topo *topology.Topology, router *routing.Router, tracker *health.Tracker, logger requestLogger) *ShardHandler {
	return &ShardHandler{
		topo:    topo,
		router:  router,
		tracker: tracker,
		logger:  logger,
	}
}

type shardSummary struct {
	ID                string `json:"id"`
	Active            bool   `json:"active"`
	Replicas          int    `json:"replicas"`
	AvailableReplicas int    `json:"available_replicas"`
	ReplicaStrategy   string `json:"replica_strategy,omitempty"`
}

func (h *ShardHandler) summarize(info topology.ShardInfo, active bool) shardSummary {
	return shardSummary{
		ID:                info.ShardID,
		Active:            active,
		Replicas:          len(info.ReplicaConnectionStrings),
		AvailableReplicas: len(h.tracker.AvailableReplicas(info.ShardID, info.ReplicaConnectionStrings)),
		ReplicaStrategy:   string(info.ReplicaStrategy),
	}
}

func (h *ShardHandler) List(w http.ResponseWriter, r *http.Request) {
	active := make(map[string]bool, len(h.topo.ActiveShardIDs()))
	for _, id := range h.topo.ActiveShardIDs() {
		active[id] = true
	}
	items := make([]shardSummary, 0, len(h.topo.Shards()))
	for _, info := range h.topo.Shards() {
		items = append(items, h.summarize(info, active[info.ShardID]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"shards": items})
}

func (h *ShardHandler) Get(w http.ResponseWriter, r *http.Request) {
	shardID := chi.URLParam(r, "shard")
	info, err := h.topo.Shard(shardID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	active := false
	for _, id := range h.topo.ActiveShardIDs() {
		if id == shardID {
			active = true
			break
		}
	}
	writeJSON(w, http.StatusOK, h.summarize(info, active))
}

// Route resolves a routing key without opening a connection. Useful for
// checking where an entity would land before moving data.
func (h *ShardHandler) Route(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	shardID, err := h.router.Resolve(key)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "shard": shardID})
}
