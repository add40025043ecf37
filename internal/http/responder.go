package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"shardhub/internal/conn"
	"shardhub/internal/migrate"
	"shardhub/internal/routing"
	"shardhub/internal/topology"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	body := errorBody{}
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}

// respondError maps domain errors onto HTTP statuses. Anything unrecognized
// is reported as a 500 without leaking the underlying message.
func respondError(w http.ResponseWriter, logger requestLogger, err error) {
	var openErr *conn.OpenError
	var migErr *migrate.MigrationError

	switch {
	case errors.Is(err, topology.ErrShardNotFound):
		writeError(w, http.StatusNotFound, "shard_not_found", err.Error())
	case errors.Is(err, routing.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, "invalid_key", err.Error())
	case errors.Is(err, routing.ErrNoShardForKey):
		writeError(w, http.StatusNotFound, "no_shard_for_key", err.Error())
	case errors.Is(err, migrate.ErrChecksumMismatch):
		writeError(w, http.StatusConflict, "checksum_mismatch", err.Error())
	case errors.Is(err, migrate.ErrNotApplied):
		writeError(w, http.StatusNotFound, "migration_not_applied", err.Error())
	case errors.Is(err, conn.ErrNoReplicasConfigured),
		errors.Is(err, conn.ErrAllReplicasUnhealthy):
		writeError(w, http.StatusServiceUnavailable, "replicas_unavailable", err.Error())
	case errors.As(err, &openErr):
		logger.Error("shard connection failed", "shard", openErr.ShardID, "error", err)
		writeError(w, http.StatusBadGateway, "shard_unreachable", "failed to reach shard "+openErr.ShardID)
	case errors.As(err, &migErr):
		logger.Error("migration operation failed", "shard", migErr.ShardID, "migration", migErr.MigrationID, "error", err)
		writeError(w, http.StatusInternalServerError, "migration_failed", "migration "+migErr.Op+" failed on shard "+migErr.ShardID)
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
