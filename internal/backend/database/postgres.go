package database

import (
	"net/url"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresConnectionString builds a connection URL from the four connection parameters.
func PostgresConnectionString(host, name, user, password string) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   host,
		Path:   "/" + name,
	}
	if password != "" {
		u.User = url.UserPassword(user, password)
	} else if user != "" {
		u.User = url.User(user)
	}
	return u.String()
}

func NewPostgresDatabase(connectionString string, maxIdleConns int) (DatabaseService, error) {
	return newSQLDatabase(postgresDialect, connectionString, maxIdleConns)
}
