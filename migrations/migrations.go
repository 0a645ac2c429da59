// Package migrations embeds the SQL schema migrations so the binary carries
// its own schema and no migrations directory has to ship alongside it.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
