package db

import "embed"

// MigrationFS embeds SQL migration files from internal/db/migrations.
// The SQL is kept portable so the same files apply to Postgres and SQLite.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
