package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/CAPITALETECH-MA/AI-agent/config"
	"github.com/CAPITALETECH-MA/AI-agent/detector"
	"github.com/CAPITALETECH-MA/AI-agent/notify"
)

var (
	mcpMode      bool
	configPath   string
	fixturesDir  string
	outputFormat string

	limitResults    int
	priorityFilter  string
	includeRecovery bool
	autoDiscover    bool

	emailTo      string
	emailSubject string
	emailBody    string
)

var rootCmd = &cobra.Command{
	Use:   "missing-info-detector",
	Short: "Find records with missing contact information",
	Long: `missing-info-detector inspects a PostgreSQL schema, finds the table holding
candidate records and reports rows with a missing email, phone number or name.

Missing phone numbers and names are checked against related tables (for example
parsed resume uploads) to report which values can be recovered.

The database comes from DATABASE_URL, or from a disposable PostgreSQL container
loaded with the SQL files in --fixtures.

Modes:
  report mode (default): Runs detection once and prints the report
  mcp mode (--mcp): Run as Model Context Protocol server exposing
                    detect-missing-info, inspect-schema and send-email`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the table and column mapping detection would use",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

var sendEmailCmd = &cobra.Command{
	Use:   "send-email",
	Short: "Send a plain-text email through the configured SMTP server",
	Args:  cobra.NoArgs,
	RunE:  runSendEmail,
}

func main() {
	if err := run(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	setupLogging(slog.LevelInfo)
	registerFlags()
	return rootCmd.Execute()
}

func setupLogging(level slog.Level) {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func registerFlags() {
	pf := rootCmd.PersistentFlags()
	if pf.Lookup("config") == nil {
		pf.StringVarP(&configPath, "config", "c", "", "Path to a YAML config file (environment variables override it)")
		pf.StringVar(&fixturesDir, "fixtures", "", "Directory of .sql files to load into a disposable PostgreSQL container")
		pf.StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	}

	f := rootCmd.Flags()
	if f.Lookup("mcp") == nil {
		f.BoolVar(&mcpMode, "mcp", false, "Run as Model Context Protocol server")
		f.IntVarP(&limitResults, "limit", "l", 0, "Maximum number of records to return (default from config)")
		f.StringVarP(&priorityFilter, "priority", "p", "", "Only return records of this priority: Critical, High, Medium or Low")
		f.BoolVar(&includeRecovery, "recovery", true, "Check related tables for recoverable values")
		f.BoolVar(&autoDiscover, "auto-discover", true, "Score every table to find the main one")
	}

	sf := schemaCmd.Flags()
	if sf.Lookup("auto-discover") == nil {
		sf.BoolVar(&autoDiscover, "auto-discover", true, "Score every table to find the main one")
	}

	ef := sendEmailCmd.Flags()
	if ef.Lookup("to") == nil {
		ef.StringVar(&emailTo, "to", "", "Recipient email address")
		ef.StringVar(&emailSubject, "subject", "", "Email subject")
		ef.StringVar(&emailBody, "body", "", "Plain-text email body")
	}

	if !hasCommand(rootCmd, schemaCmd) {
		rootCmd.AddCommand(schemaCmd, sendEmailCmd)
	}
}

func hasCommand(parent, child *cobra.Command) bool {
	for _, c := range parent.Commands() {
		if c == child {
			return true
		}
	}
	return false
}

func runDetect(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
		if mcpMode {
			return StartMCPServer(app)
		}

		req := app.DefaultRequest()
		req.IncludeRecovery = includeRecovery
		req.AutoDiscover = autoDiscover
		req.PriorityFilter = detector.Priority(priorityFilter)
		if limitResults != 0 {
			req.Limit = limitResults
		}

		report, err := app.Detect(ctx, req)
		if err != nil {
			return err
		}
		slog.Info("detection complete",
			"main_table", report.MainTable,
			"total", report.Summary.TotalCandidates,
			"returned", report.ReturnedRecords)
		return writeOutput(cmd.OutOrStdout(), report, outputFormat)
	})
}

func runSchema(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, app *App) error {
		insp, err := app.Inspect(ctx, autoDiscover)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), insp, outputFormat)
	})
}

// runSendEmail needs no database, so it builds only the sender.
func runSendEmail(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.SlogLevel())

	sender, err := newSender(cfg.SMTP)
	if err != nil {
		return err
	}
	receipt, err := sender.Send(cmd.Context(), notify.Message{
		To:      emailTo,
		Subject: emailSubject,
		Body:    emailBody,
	})
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), receipt, outputFormat)
}

// withApp loads configuration, opens the database and runs fn with the wired App.
func withApp(ctx context.Context, fn func(ctx context.Context, app *App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.SlogLevel())

	exec, cleanup, err := openBackend(ctx, cfg, fixturesDir,
		NewPostgreSQLManager(cfg.Sandbox.Image), NewFileFixtureReader())
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(ctx); err != nil {
			slog.Error("failed to cleanup", "error", err)
		}
	}()

	app, err := buildApp(cfg, exec)
	if err != nil {
		return err
	}
	return fn(ctx, app)
}

// writeOutput renders v to w as indented JSON or YAML.
func writeOutput(w io.Writer, v any, format string) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (use json or yaml)", format)
	}
}
