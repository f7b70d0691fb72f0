// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contains the migrations for the client registry database.
//
//go:embed *.sql
var FS embed.FS
