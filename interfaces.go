package main

import (
	"context"
	"database/sql"
)

// DatabaseManager handles the lifecycle of the disposable sandbox database
type DatabaseManager interface {
	// Setup creates and initializes the database connection
	Setup(ctx context.Context) error
	// Close cleans up database resources
	Close(ctx context.Context) error
	// LoadFixtures executes the provided fixture files in order
	LoadFixtures(ctx context.Context, fixtures []Fixture) error
	// GetDB returns the underlying database connection
	GetDB() *sql.DB
}

// FixtureReader handles reading fixture files
type FixtureReader interface {
	// DiscoverFixtures finds all fixture files in the given directory
	DiscoverFixtures(dir string) ([]Fixture, error)
}
