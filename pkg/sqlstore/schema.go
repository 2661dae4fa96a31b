package sqlstore

import (
	_ "embed"
	"strings"
)

//go:embed schema_sqlite.sql
var sqliteSchemaSource string

//go:embed schema_postgres.sql
var postgresSchemaSource string

// splitStatements breaks an embedded schema file into individual
// statements on the "---" line separator, trimming blank entries.
// Podman's createSQLiteTables keeps each table's DDL as its own Go
// string constant and execs them one at a time inside a transaction;
// this does the same thing, but sourced from one embedded file per
// dialect instead of one Go const per table.
func splitStatements(source string) []string {
	parts := strings.Split(source, "\n---\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
