// Package db embeds the database schema.
package db

import _ "embed"

// Schema is the DDL for every table the engine touches: catalog, carts,
// the order ledger, and the event outbox.
//
//go:embed migrations/001_schema.sql
var Schema string
