// Package migrations embeds the SQL schema migrations so the binary
// carries its own schema and needs no migrations directory on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
