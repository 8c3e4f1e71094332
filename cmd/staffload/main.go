// Package main provides the staffload command.
//
// staffload removes duplicate employee rows from a workbook and loads the
// remaining rows into employee_table, assigning each a unique identifier.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/finops-tools/staffload/internal/config"
	"github.com/finops-tools/staffload/internal/events"
	"github.com/finops-tools/staffload/internal/loader"
	"github.com/finops-tools/staffload/internal/pipeline"
	"github.com/finops-tools/staffload/internal/roster"
	"github.com/finops-tools/staffload/internal/storage"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "staffload"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Usage = printUsage
	flag.Parse()

	if *versionFlag {
		fmt.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	command := "run"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	logger := config.NewLogger()
	slog.SetDefault(logger)

	if err := execute(context.Background(), command, logger); err != nil {
		logger.Error("staffload failed", slog.String("command", command), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func execute(ctx context.Context, command string, logger *slog.Logger) error {
	switch command {
	case "dedup", "load", "run":
	default:
		printUsage()

		return fmt.Errorf("unknown command: %s", command)
	}

	runConfig := pipeline.LoadConfig()

	mapping, err := roster.LoadMappingFromEnv()
	if err != nil {
		return err
	}

	p, err := pipeline.New(runConfig, mapping, logger)
	if err != nil {
		return err
	}

	logger.Info("Starting staffload",
		slog.String("service", name),
		slog.String("version", version),
		slog.String("command", command),
		slog.String("input_path", runConfig.InputPath),
		slog.String("output_path", runConfig.OutputPath),
	)

	if command == "dedup" {
		_, err := p.Dedup()

		return err
	}

	if command == "run" {
		if _, err := p.Dedup(); err != nil {
			return err
		}
	}

	return load(ctx, p, logger)
}

func load(ctx context.Context, p *pipeline.Pipeline, logger *slog.Logger) error {
	storageConfig := storage.LoadConfig()

	conn, err := storage.NewConnection(storageConfig)
	if err != nil {
		return err
	}

	defer func() {
		_ = conn.Close() // Released on every exit path
	}()

	logger.Info("Connected to employee store",
		slog.String("database_url", storageConfig.MaskDatabaseURL()),
		slog.String("dialect", conn.Dialect()),
	)

	employees, err := storage.NewEmployeeStore(conn)
	if err != nil {
		return err
	}

	runs, err := storage.NewRunStore(conn)
	if err != nil {
		return err
	}

	deps := pipeline.LoadDeps{Store: employees, Runs: runs}

	if eventsConfig := events.LoadConfig(); eventsConfig.Enabled() {
		deps.Publishers = func(runID string) (loader.Publisher, error) {
			return events.NewKafkaPublisher(eventsConfig, runID)
		}

		logger.Info("Employee events enabled",
			slog.Any("brokers", eventsConfig.Brokers),
			slog.String("topic", eventsConfig.Topic),
		)
	}

	result, err := p.Load(ctx, deps)
	if result != nil && result.Report != nil {
		attrs := []any{
			slog.Int("persisted", result.Report.Persisted),
			slog.Int("skipped", result.Report.Skipped),
			slog.Int("failed", result.Report.Failed),
		}

		if result.Run != nil {
			attrs = append(attrs, slog.String("run_id", result.Run.ID.String()))
		}

		logger.Info("Data insertion into employee store complete", attrs...)
	}

	if errors.Is(err, loader.ErrStoreUnavailable) {
		return fmt.Errorf("load aborted: %w", err)
	}

	return err
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `%s v%s - employee workbook deduplication and loading

USAGE:
    %s [OPTIONS] [COMMAND]

COMMANDS:
    dedup   Remove duplicate rows from the input workbook into the output workbook
    load    Load the output workbook into the employee store
    run     dedup followed by load (default)

OPTIONS:
    --version  Show version information

ENVIRONMENT VARIABLES:
    STAFFLOAD_INPUT_PATH           Input workbook (default: dummyData.xlsx)
    STAFFLOAD_OUTPUT_PATH          Deduplicated workbook (default: cleanedDATA.xlsx)
    DATABASE_URL                   postgres://... or sqlite://<path> (required for load)
    STAFFLOAD_MAPPING_PATH         Column mapping YAML (default: .staffload.yaml)
    STAFFLOAD_STRICT_IDENTIFIERS   Collision-check new identifiers too (default: false)
    STAFFLOAD_INSERTS_PER_SECOND   Insert rate cap, 0 = unlimited (default: 0)
    KAFKA_BROKERS                  Comma separated brokers for employee events
    KAFKA_TOPIC                    Event topic (default: employee.loaded)
    LOG_LEVEL                      debug, info, warn, error (default: info)
`, name, version, name)
}
