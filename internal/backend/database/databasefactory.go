package database

import (
	"context"
	"fmt"
	"log"
)

func NewDatabase(ctx context.Context, databaseType, connectionString string, maxIdleConns int) (database DatabaseService, err error) {
	switch databaseType {
	case "sqlite":
		database, err = NewSQLiteDatabase(connectionString, maxIdleConns)
	case "postgres":
		database, err = NewPostgresDatabase(connectionString, maxIdleConns)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}
	if err != nil {
		return nil, err
	}

	log.Print("initializing database schema (ensuring tables exist)")
	if err = database.CreateDatabase(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	return database, nil
}
