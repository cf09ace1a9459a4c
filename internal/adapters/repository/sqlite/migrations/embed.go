package migrations

import "embed"

// FS contains embedded SQLite migrations for rating snapshots.
//
//go:embed *.sql
var FS embed.FS
