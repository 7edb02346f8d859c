package db

import "embed"

// MigrationFS embeds the schema migrations (users, identities, sessions, audit_logs).
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
