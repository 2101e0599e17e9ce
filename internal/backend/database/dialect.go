package database

import (
	"strconv"
	"strings"
)

// dialect holds the statements that differ between drivers. Queries are written
// with '?' placeholders and rebound for drivers that use numbered parameters.
type dialect struct {
	name       string
	driverName string
	schema     []string
	numbered   bool
}

var sqliteDialect = dialect{
	name:       "sqlite",
	driverName: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ip_address TEXT,
			request_time TIMESTAMP NOT NULL,
			filename TEXT,
			prediction TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			is_valid_case BOOLEAN NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_request_time ON requests (request_time)`,
		`CREATE TABLE IF NOT EXISTS feedback (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			image_data BLOB NOT NULL,
			label TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	},
}

var postgresDialect = dialect{
	name:       "postgres",
	driverName: "pgx",
	numbered:   true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS requests (
			id SERIAL PRIMARY KEY,
			ip_address VARCHAR(64),
			request_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			filename TEXT,
			prediction VARCHAR(16) NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_valid_case BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_request_time ON requests (request_time)`,
		`CREATE TABLE IF NOT EXISTS feedback (
			id SERIAL PRIMARY KEY,
			image_data BYTEA NOT NULL,
			label VARCHAR(16) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
}

// rebind rewrites '?' placeholders to $1, $2, ... for numbered dialects.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
