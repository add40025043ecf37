// Package migrations embeds the SQL scripts shipped with the binary. Scripts
// are applied per shard, independently, in filename order.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed *.sql
var files embed.FS

func FS() fs.FS {
	return files
}
