// Package main provides the database migration CLI tool for staffload.
//
// The migrator applies the embedded employee_table and load_runs schema,
// supporting up/down/status/drop commands for PostgreSQL and SQLite stores.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/finops-tools/staffload/internal/config"
	"github.com/finops-tools/staffload/internal/storage"
	"github.com/finops-tools/staffload/migrations"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "migrator"
)

func main() {
	var (
		configHelp  = flag.Bool("help", false, "Show help information")
		showVersion = flag.Bool("version", false, "Show version information")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	if *configHelp || flag.NArg() < 1 {
		printUsage()
		os.Exit(0)
	}

	_ = godotenv.Load()

	command := flag.Arg(0)

	storageConfig := storage.LoadConfig()
	// golang-migrate's postgres driver pins a connection for its lifetime.
	storageConfig.MaxOpenConns = 2

	conn, err := storage.NewConnection(storageConfig)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}

	table := config.GetEnvStr("MIGRATION_TABLE", migrations.DefaultMigrationTable)

	log.Printf("Migrating %s (%s), table %s", storageConfig.MaskDatabaseURL(), conn.Dialect(), table)

	runner, err := migrations.NewRunner(conn.DB, conn.Dialect(), table, config.NewLogger())
	if err != nil {
		_ = conn.Close()

		log.Fatalf("Failed to create migration runner: %v", err)
	}

	err = executeCommand(command, runner)

	_ = runner.Close()

	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}

// executeCommand runs the specified migration command.
func executeCommand(command string, runner *migrations.Runner) error {
	switch command {
	case "up":
		return runner.Up()
	case "down":
		return runner.Down()
	case "status", "version":
		return printStatus(runner)
	case "drop":
		fmt.Print("WARNING: This will drop all tables. Are you sure? (y/N): ")

		var response string

		_, _ = fmt.Scanln(&response)
		if response == "y" || response == "Y" {
			return runner.Drop()
		}

		fmt.Println("Operation cancelled.")

		return nil
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printStatus(runner *migrations.Runner) error {
	status, err := runner.Status()
	if err != nil {
		return err
	}

	if !status.Applied {
		fmt.Println("Migration Status: No migrations applied yet")

		return nil
	}

	state := "clean"
	if status.Dirty {
		state = "dirty (needs manual intervention)"
	}

	fmt.Printf("Migration Status: Version %d (%s)\n", status.Version, state)

	return nil
}

// printUsage displays usage information.
func printUsage() {
	fmt.Printf(`%s v%s - Database Migration Tool for staffload

USAGE:
    %s [OPTIONS] COMMAND

COMMANDS:
    up      Apply all pending migrations
    down    Rollback the last migration
    status  Show migration status
    version Show current migration version
    drop    Drop all tables (requires confirmation)

OPTIONS:
    --help     Show this help message
    --version  Show version information

ENVIRONMENT VARIABLES:
    DATABASE_URL    postgres://... or sqlite://<path> (REQUIRED)

    MIGRATION_TABLE Name of migration tracking table
                    (default: schema_migrations)
`, name, version, name)
}
