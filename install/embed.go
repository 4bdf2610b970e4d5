// Package install embeds the schema files applied at startup.
//
// Files are executed in name order by database.Install and recorded in
// install_history, so new files can be added without touching old ones.
// Every statement must be valid on both MySQL and SQLite.
package install

import "embed"

// Files holds every *.sql file in this directory.
//
//go:embed *.sql
var Files embed.FS
