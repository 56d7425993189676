package db

import (
	"context"
	"fmt"
	"log"
	"os"
)

// RunSchemaCommand handles the 'schema' subcommand dispatching
func RunSchemaCommand(args []string, dbPath string) {
	if len(args) < 1 {
		PrintSchemaHelp()
		os.Exit(1)
	}

	// Open without touching the schema so status reports what is on disk.
	database, err := OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	switch args[0] {
	case "up":
		log.Printf("Ensuring schema...")
		if err := database.EnsureSchema(ctx); err != nil {
			log.Fatalf("Schema update failed: %v", err)
		}
		handleSchemaStatus(database)

	case "status":
		handleSchemaStatus(database)

	case "obsolete":
		tables, err := database.ObsoleteTables(ctx)
		if err != nil {
			log.Fatalf("Failed to inspect schema: %v", err)
		}
		if len(tables) == 0 {
			fmt.Println("✓ No obsolete tables")
			return
		}
		fmt.Println("Obsolete tables (will be dropped and recreated, losing their rows):")
		for _, t := range tables {
			fmt.Printf("  %s\n", t)
		}

	case "reset":
		fmt.Println("⚠️  WARNING: This deletes every activity, workout and measurement.")
		fmt.Print("Continue? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			log.Println("Aborted")
			return
		}
		if err := database.Reset(ctx); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
		log.Println("✓ Database reset")

	case "help":
		PrintSchemaHelp()

	default:
		fmt.Printf("Unknown schema action: %s\n\n", args[0])
		PrintSchemaHelp()
		os.Exit(1)
	}
}

func handleSchemaStatus(database *DB) {
	version, dirty, err := database.MigrateVersion()
	if err != nil {
		log.Fatalf("Failed to get schema version: %v", err)
	}
	latest, err := LatestMigrationVersion()
	if err != nil {
		log.Fatalf("Failed to get latest schema version: %v", err)
	}

	fmt.Println("=== Schema Status ===")
	fmt.Printf("Current version: %d\n", version)
	fmt.Printf("Latest available: %d\n", latest)
	fmt.Printf("Dirty: %v\n", dirty)
	if dirty {
		fmt.Println("\n⚠️  A migration failed mid-execution. Run 'trainlog schema up' to retry.")
	}
}

// PrintSchemaHelp displays the help message for the schema command
func PrintSchemaHelp() {
	fmt.Println("Database Schema Commands")
	fmt.Println()
	fmt.Println("Usage: trainlog schema <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up        Drop obsolete tables and apply all migrations")
	fmt.Println("  status    Show current schema version")
	fmt.Println("  obsolete  List tables whose shape is out of date")
	fmt.Println("  reset     Delete all rows from every table")
	fmt.Println("  help      Show this help message")
}
