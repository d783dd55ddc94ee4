// Package migrations содержит схемы баз данных, встроенные в бинарник.
package migrations

import _ "embed"

// Postgres схема для PostgreSQL
//
//go:embed postgres.sql
var Postgres string

// SQLite схема для SQLite
//
//go:embed sqlite.sql
var SQLite string
