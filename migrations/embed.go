// Package migrations embeds the SQL files describing the database schema
// revisions applied at startup.
package migrations

import "embed"

// FS holds the embedded SQL migration files.
//
//go:embed *.sql
var FS embed.FS
