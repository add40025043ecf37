package httpserver

import (
	"net/http"

	"shardhub/internal/topology"
)

type HealthHandler struct {
	Topo *topology.Topology
}

type healthResponse struct {
	Status       string `json:"status"`
	Shards       int    `json:"shards"`
	ActiveShards int    `json:"active_shards"`
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		Shards:       len(h.Topo.Shards()),
		ActiveShards: len(h.Topo.ActiveShards()),
	})
}
