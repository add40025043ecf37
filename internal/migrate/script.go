// Package migrate executes schema migrations against individual shards and
// keeps an append-only history of what ran where. Each shard's migration
// state is independent; nothing here coordinates across shards.
package migrate

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Script is one immutable migration, identified and ordered by ID.
type Script struct {
	ID          string
	Description string
	// Checksum guards against silently editing an already-applied script.
	Checksum string
	SQL      string
}

func NewScript(id, description, sqlBody string) Script {
	return Script{
		ID:          id,
		Description: description,
		Checksum:    Checksum(sqlBody),
		SQL:         sqlBody,
	}
}

// Checksum returns the hex-encoded SHA-256 of a script body.
func Checksum(sqlBody string) string {
	sum := sha256.Sum256([]byte(sqlBody))
	return hex.EncodeToString(sum[:])
}

// SortScripts orders scripts by ID, the canonical apply order.
func SortScripts(scripts []Script) {
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].ID < scripts[j].ID })
}
