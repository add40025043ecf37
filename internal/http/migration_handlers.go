package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"shardhub/internal/migrate"
)

type MigrationHandler struct {
	executor *migrate.Executor
	scripts  []migrate.Script
	logger   requestLogger
}

func NewMigrationHandler(executor *migrate.Executor, scripts []migrate.Script, logger requestLogger) *MigrationHandler {
	return &MigrationHandler{
		executor: executor,
		scripts:  scripts,
		logger:   logger,
	}
}

type historyItem struct {
	MigrationID  string     `json:"migration_id"`
	Description  string     `json:"description"`
	Checksum     string     `json:"checksum"`
	AppliedAt    time.Time  `json:"applied_at"`
	DurationMs   int64      `json:"duration_ms"`
	RolledBackAt *time.Time `json:"rolled_back_at,omitempty"`
}

func (h *MigrationHandler) History(w http.ResponseWriter, r *http.Request) {
	shardID := chi.URLParam(r, "shard")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := h.executor.History(r.Context(), shardID, limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		item := historyItem{
			MigrationID: e.MigrationID,
			Description: e.Description,
			Checksum:    e.Checksum,
			AppliedAt:   e.AppliedAt,
			DurationMs:  e.DurationMs,
		}
		if e.RolledBackAt.Valid {
			t := e.RolledBackAt.Time
			item.RolledBackAt = &t
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"shard": shardID, "history": items})
}

func (h *MigrationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	shardID := chi.URLParam(r, "shard")
	applied, err := h.executor.Apply(r.Context(), shardID, h.scripts)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.logger.Info("migrations applied", "shard", shardID, "count", len(applied))
	writeJSON(w, http.StatusOK, map[string]any{"shard": shardID, "applied": applied})
}

type rollbackRequest struct {
	SQLDown string `json:"sql_down"`
}

func (h *MigrationHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	shardID := chi.URLParam(r, "shard")
	migrationID := chi.URLParam(r, "id")

	var req rollbackRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", "invalid JSON body")
			return
		}
	}
	if err := h.executor.Rollback(r.Context(), shardID, migrationID, req.SQLDown); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.logger.Info("migration rolled back", "shard", shardID, "migration", migrationID)
	writeJSON(w, http.StatusOK, map[string]any{"shard": shardID, "rolled_back": migrationID})
}

// Seed records the bundled scripts as applied without executing them. Used
// when onboarding a shard whose schema was provisioned out of band.
func (h *MigrationHandler) Seed(w http.ResponseWriter, r *http.Request) {
	shardID := chi.URLParam(r, "shard")
	seeded, err := h.executor.SeedHistorical(r.Context(), shardID, h.scripts)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.logger.Info("history seeded", "shard", shardID, "count", seeded)
	writeJSON(w, http.StatusOK, map[string]any{"shard": shardID, "seeded": seeded})
}
