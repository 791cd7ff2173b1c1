package store

import "embed"

// Migrations holds the Postgres schema, applied at startup by the bootstrap.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that holds the SQL files.
const MigrationsDir = "migrations"
