// Package migrations embeds the SQL schema applied by golang-migrate.
package migrations

import "embed"

// FS holds every versioned up/down migration
//
//go:embed *.sql
var FS embed.FS
