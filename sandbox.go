package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const defaultSandboxImage = "postgres:16-alpine"

// PostgreSQLManager runs a throwaway PostgreSQL container for --fixtures runs.
type PostgreSQLManager struct {
	image     string
	container testcontainers.Container
	db        *sql.DB
	connStr   string
}

func NewPostgreSQLManager(image string) DatabaseManager {
	if image == "" {
		image = defaultSandboxImage
	}
	return &PostgreSQLManager{image: image}
}

func (p *PostgreSQLManager) Setup(ctx context.Context) error {
	slog.Debug("starting postgresql container", "image", p.image)
	container, err := postgres.Run(ctx,
		p.image,
		postgres.WithDatabase("sandbox"),
		postgres.WithUsername("sandbox"),
		postgres.WithPassword("sandbox"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute)),
	)
	if err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	p.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fmt.Errorf("failed to get connection string: %w", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	p.db = db
	p.connStr = connStr

	slog.Info("sandbox database ready", "image", p.image)
	return nil
}

func (p *PostgreSQLManager) Close(ctx context.Context) error {
	if p.db != nil {
		p.db.Close()
	}
	if p.container != nil {
		return p.container.Terminate(ctx)
	}
	return nil
}

func (p *PostgreSQLManager) LoadFixtures(ctx context.Context, fixtures []Fixture) error {
	for _, fixture := range fixtures {
		slog.Info("loading fixture", "name", fixture.Name, "file", fixture.File)

		content, err := os.ReadFile(fixture.File)
		if err != nil {
			return fmt.Errorf("failed to read fixture file %s: %w", fixture.File, err)
		}

		if _, err := p.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute fixture %s: %w", fixture.Name, err)
		}
	}
	slog.Info("all fixtures loaded", "count", len(fixtures))
	return nil
}

func (p *PostgreSQLManager) GetDB() *sql.DB {
	return p.db
}

func (p *PostgreSQLManager) GetConnectionString() string {
	return p.connStr
}

type FileFixtureReader struct{}

func NewFileFixtureReader() FixtureReader {
	return &FileFixtureReader{}
}

func (r *FileFixtureReader) DiscoverFixtures(dir string) ([]Fixture, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("fixture directory does not exist: %s", dir)
	}
	return ParseFixtures(dir)
}
