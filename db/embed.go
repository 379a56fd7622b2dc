// Package db embeds the order archive schema.
package db

import _ "embed"

// Schema contains the DDL statements for the order archive.
//
//go:embed migrations/001_schema.sql
var Schema string
