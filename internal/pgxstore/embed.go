// Package pgxstore is the persistence adapter: transactional access to
// the accounts, authenticators, groups, group_members and rules
// relations over pgx/v5, with uniqueness enforcement delegated to the
// declared primary keys in schema.sql.
package pgxstore

import _ "embed"

// Schema is the DDL for the five relations the adapter needs. It is
// embedded so the binary carries its own schema and never depends on
// a SQL file being present on disk at runtime.
//
//go:embed schema.sql
var Schema string
