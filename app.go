package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CAPITALETECH-MA/AI-agent/config"
	"github.com/CAPITALETECH-MA/AI-agent/database"
	"github.com/CAPITALETECH-MA/AI-agent/detector"
	"github.com/CAPITALETECH-MA/AI-agent/notify"
	"github.com/CAPITALETECH-MA/AI-agent/providers"
)

// App holds the clients built once at start-up and shared by every tool call.
type App struct {
	detector  *detector.Detector
	sender    notify.Sender
	schema    string
	detection config.DetectionConfig
}

// NewApp wires the detector and sender used by the CLI and the MCP tools.
func NewApp(det *detector.Detector, sender notify.Sender, schema string, detection config.DetectionConfig) *App {
	return &App{
		detector:  det,
		sender:    sender,
		schema:    schema,
		detection: detection,
	}
}

// DefaultRequest returns the tool defaults with the configured limit.
func (a *App) DefaultRequest() detector.Request {
	req := detector.DefaultRequest()
	if a.detection.DefaultLimit > 0 {
		req.Limit = a.detection.DefaultLimit
	}
	return req
}

// Detect runs one detection.
func (a *App) Detect(ctx context.Context, req detector.Request) (*detector.Report, error) {
	return a.detector.Detect(ctx, req)
}

// SchemaInspection is the structural view returned by inspect-schema.
type SchemaInspection struct {
	Schema  string                   `json:"schema" yaml:"schema"`
	Model   detector.StructuralModel `json:"model" yaml:"model"`
	Catalog string                   `json:"catalog" yaml:"catalog"`
}

// Inspect analyses the schema without querying the main table.
func (a *App) Inspect(ctx context.Context, autoDiscover bool) (*SchemaInspection, error) {
	insp, err := a.detector.Inspect(ctx, autoDiscover)
	if err != nil {
		return nil, err
	}
	return &SchemaInspection{
		Schema:  a.schema,
		Model:   insp.Model,
		Catalog: providers.FormatCatalog(insp.Columns),
	}, nil
}

// SendEmail delivers one follow-up email.
func (a *App) SendEmail(ctx context.Context, msg notify.Message) (*notify.Receipt, error) {
	return a.sender.Send(ctx, msg)
}

// buildApp assembles the detector and sender over exec.
func buildApp(cfg *config.Config, exec detector.QueryExecutor) (*App, error) {
	registry := providers.NewRegistry()
	provider, ok := registry.Get(cfg.Database.CatalogProvider)
	if !ok {
		return nil, fmt.Errorf("unknown catalog provider %q (available: %v)", cfg.Database.CatalogProvider, registry.Names())
	}

	policy, err := detector.ParseSelectionPolicy(cfg.Detection.SelectionPolicy)
	if err != nil {
		return nil, err
	}

	catalog := providers.NewCatalog(provider, exec, cfg.Database.Schema)
	det := detector.New(catalog, exec, detector.Options{
		Schema:       catalog.Schema(),
		Policy:       policy,
		DefaultTable: cfg.Detection.DefaultTable,
		MaxLimit:     cfg.Detection.MaxLimit,
	})

	sender, err := newSender(cfg.SMTP)
	if err != nil {
		return nil, err
	}

	slog.Debug("application wired",
		"catalog_provider", provider.Name(),
		"schema", catalog.Schema(),
		"policy", policy)
	return NewApp(det, sender, catalog.Schema(), cfg.Detection), nil
}

func newSender(cfg config.SMTPConfig) (*notify.SMTPSender, error) {
	sender, err := notify.NewSMTPSender(notify.SMTPOptions{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
		TLS:      cfg.TLS,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure email sender: %w", err)
	}
	return sender, nil
}

// openBackend connects to the configured database, or, when fixturesDir is
// set, starts a sandbox through manager and loads the fixtures into it. The
// returned cleanup must always be called.
func openBackend(ctx context.Context, cfg *config.Config, fixturesDir string, manager DatabaseManager, reader FixtureReader) (*database.Executor, func(context.Context) error, error) {
	if fixturesDir == "" {
		exec, err := database.Open(ctx, database.Options{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return exec, func(context.Context) error { return exec.Close() }, nil
	}

	slog.Info("using sandbox database", "fixtures", fixturesDir)

	fixtures, err := reader.DiscoverFixtures(fixturesDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	if len(fixtures) == 0 {
		return nil, nil, fmt.Errorf("no fixture files found in directory: %s", fixturesDir)
	}

	if err := manager.Setup(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to setup sandbox database: %w", err)
	}
	cleanup := manager.Close

	if err := manager.LoadFixtures(ctx, fixtures); err != nil {
		if cerr := cleanup(ctx); cerr != nil {
			slog.Error("failed to cleanup sandbox", "error", cerr)
		}
		return nil, nil, fmt.Errorf("failed to load fixtures: %w", err)
	}

	return database.New(manager.GetDB()), cleanup, nil
}
