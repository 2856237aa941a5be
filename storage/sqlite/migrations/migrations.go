// Package migrations embeds the store's schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
