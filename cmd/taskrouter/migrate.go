package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/BaSui01/taskrouter/internal/migration"
)

// runMigrate 处理 migrate 子命令: up, down, status, version, info
func runMigrate(args []string, out io.Writer) error {
	if len(args) < 1 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printMigrateUsage(out)
		if len(args) < 1 {
			return fmt.Errorf("migrate subcommand is required")
		}
		return nil
	}

	command := args[0]
	known := false
	for _, c := range migration.Commands {
		if c == command {
			known = true
		}
	}
	if !known {
		printMigrateUsage(out)
		return fmt.Errorf("unknown migrate subcommand: %s", command)
	}

	migrator, err := createMigrator(command, args[1:])
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer migrator.Close()

	cli := migration.NewCLI(migrator)
	cli.SetOutput(out)
	return cli.Run(context.Background(), command)
}

// createMigrator --db-type 与 --db-url 同时给出时直接使用，否则读取配置中的 database 段
func createMigrator(command string, args []string) (*migration.DefaultMigrator, error) {
	fs := flag.NewFlagSet("migrate "+command, flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	dbType := fs.String("db-type", "", "Database type (postgres, mysql, sqlite)")
	dbURL := fs.String("db-url", "", "Database connection URL")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *dbType != "" && *dbURL != "" {
		return migration.NewMigratorFromURL(*dbType, *dbURL)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if *dbType != "" {
		cfg.Database.Driver = *dbType
	}
	return migration.NewMigratorFromConfig(cfg)
}

func printMigrateUsage(w io.Writer) {
	fmt.Fprintln(w, `Database Migration Commands (job history schema)

Usage:
  taskrouter migrate <subcommand> [options]

Subcommands:
  up        Apply all pending migrations
  down      Rollback the last migration
  status    Show migration status
  version   Show current migration version
  info      Show migration summary

Options:
  --config <path>     Path to configuration file (YAML)
  --db-type <type>    Database type: postgres, mysql, sqlite (default: from config)
  --db-url <url>      Database connection URL (default: from config)

Examples:
  taskrouter migrate up
  taskrouter migrate status --config /etc/taskrouter/config.yaml
  taskrouter migrate up --db-type sqlite --db-url "file:history.db?mode=rwc"`)
}
