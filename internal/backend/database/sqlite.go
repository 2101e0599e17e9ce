package database

import (
	"strings"

	_ "modernc.org/sqlite"
)

// sqlitePragmas are applied by the driver to every new connection. Writers wait
// up to busy_timeout milliseconds for the lock instead of failing with SQLITE_BUSY.
var sqlitePragmas = []string{
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
}

// NewSQLiteDatabase opens a SQLite database. Use a file path rather than ":memory:";
// with scoped connections every new connection to ":memory:" is an empty database.
func NewSQLiteDatabase(connectionString string, maxIdleConns int) (DatabaseService, error) {
	return newSQLDatabase(sqliteDialect, sqliteDSN(connectionString), maxIdleConns)
}

// sqliteDSN appends the connection pragmas unless the connection string sets
// the same pragma already.
func sqliteDSN(connectionString string) string {
	dsn := connectionString
	for _, pragma := range sqlitePragmas {
		name := pragma[:strings.IndexByte(pragma, '(')]
		if strings.Contains(dsn, name+"(") {
			continue
		}
		if strings.Contains(dsn, "?") {
			dsn += "&" + pragma
		} else {
			dsn += "?" + pragma
		}
	}
	return dsn
}
