// Package migrations embeds the catalog's goose SQL migrations so the
// server binary carries its own schema with no external migration step.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
