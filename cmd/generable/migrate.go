package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/BaSui01/generable/internal/migration"
)

// =============================================================================
// 🗄️ migrate 命令
// =============================================================================

// runMigrate dispatches the migrate subcommands.
func (c *command) runMigrate(args []string) int {
	if len(args) < 1 {
		printMigrateUsage(c.errOut)
		return exitUsage
	}

	sub, subargs := args[0], args[1:]

	// goto, force and steps take a positional number before the flags.
	var number string
	switch sub {
	case "goto", "force", "steps":
		if len(subargs) < 1 {
			fmt.Fprintf(c.errOut, "Usage: generable migrate %s <n> [options]\n", sub)
			return exitUsage
		}
		number, subargs = subargs[0], subargs[1:]
	case "up", "down", "status", "version", "info", "reset":
	case "help", "-h", "--help":
		printMigrateUsage(c.out)
		return exitOK
	default:
		fmt.Fprintf(c.errOut, "Unknown migrate subcommand: %s\n", sub)
		printMigrateUsage(c.errOut)
		return exitUsage
	}

	fs, configPath := c.flagSet("migrate " + sub)
	dbType := fs.String("db-type", "", "Database type (postgres, mysql, sqlite)")
	dbURL := fs.String("db-url", "", "Database connection URL")
	all := fs.Bool("all", false, "Rollback all migrations (down only)")
	if err := fs.Parse(subargs); err != nil {
		return exitUsage
	}

	var action func(ctx context.Context, cli *migration.CLI) error
	switch sub {
	case "up":
		action = (*migration.CLI).RunUp
	case "down":
		action = (*migration.CLI).RunDown
		if *all {
			action = (*migration.CLI).RunDownAll
		}
	case "reset":
		action = (*migration.CLI).RunDownAll
	case "status":
		action = (*migration.CLI).RunStatus
	case "version":
		action = (*migration.CLI).RunVersion
	case "info":
		action = (*migration.CLI).RunInfo
	case "goto":
		version, err := strconv.ParseUint(number, 10, 32)
		if err != nil {
			fmt.Fprintf(c.errOut, "Invalid version number: %s\n", number)
			return exitUsage
		}
		action = func(ctx context.Context, cli *migration.CLI) error { return cli.RunGoto(ctx, uint(version)) }
	case "force":
		version, err := strconv.ParseInt(number, 10, 32)
		if err != nil {
			fmt.Fprintf(c.errOut, "Invalid version number: %s\n", number)
			return exitUsage
		}
		action = func(ctx context.Context, cli *migration.CLI) error { return cli.RunForce(ctx, int(version)) }
	case "steps":
		n, err := strconv.Atoi(number)
		if err != nil || n == 0 {
			fmt.Fprintf(c.errOut, "Invalid step count: %s\n", number)
			return exitUsage
		}
		action = func(ctx context.Context, cli *migration.CLI) error { return cli.RunSteps(ctx, n) }
	}

	if err := c.setup(*configPath); err != nil {
		return c.fail(err)
	}
	defer c.teardown()

	m, err := c.createMigrator(*dbType, *dbURL)
	if err != nil {
		return c.fail(fmt.Errorf("failed to create migrator: %w", err))
	}
	defer m.Close()

	if err := action(context.Background(), migration.NewCLI(m, c.out)); err != nil {
		return c.fail(err)
	}
	return exitOK
}

// createMigrator uses --db-type and --db-url when both are given and the
// database section of the configuration otherwise.
func (c *command) createMigrator(dbType, dbURL string) (*migration.DefaultMigrator, error) {
	if dbType != "" && dbURL != "" {
		return migration.NewMigratorFromURL(dbType, dbURL, c.logger)
	}
	dbCfg := c.cfg.Database
	if dbType != "" {
		dbCfg.Driver = dbType
	}
	return migration.NewMigratorFromConfig(dbCfg, c.logger)
}

func printMigrateUsage(w io.Writer) {
	fmt.Fprintln(w, `Database Migration Commands

Usage:
  generable migrate <subcommand> [options]

Subcommands:
  up          Apply all pending migrations
  down        Rollback the last migration (--all for every migration)
  steps <n>   Apply n migrations, or roll back -n
  goto <v>    Migrate to a specific version
  force <v>   Force set migration version (use with caution)
  status      Show migration status
  version     Show current migration version
  info        Show migration summary
  reset       Rollback all migrations
  help        Show this help message

Options:
  --config <path>     Path to configuration file (YAML)
  --db-type <type>    Database type: postgres, mysql, sqlite (default: from config)
  --db-url <url>      Database connection URL (default: from config)

Examples:
  generable migrate up
  generable migrate status --db-type sqlite --db-url records.db
  generable migrate goto 1
  generable migrate force 0`)
}
