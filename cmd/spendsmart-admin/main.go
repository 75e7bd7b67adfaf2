// Command spendsmart-admin inspects and maintains the SpendSmart database.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"spendsmart/internal/cli"
	"spendsmart/internal/config"
	"spendsmart/internal/storage"
)

const usage = `usage: spendsmart-admin [-db path] <command>

commands:
  migrate      apply pending migrations and print the schema version
  view         print every user with their transactions and budgets
  reset -yes   drop all data and recreate the schema
`

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(slog.LevelInfo)

	cfg := config.Load()
	fs := flag.NewFlagSet("spendsmart-admin", flag.ExitOnError)
	dbPath := fs.String("db", cfg.SQLiteDBPath, "path to the SQLite database")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	var err error
	switch cmd, args := fs.Arg(0), fs.Args()[1:]; cmd {
	case "migrate":
		err = runMigrate(os.Stdout, *dbPath)
	case "view":
		repo := cli.InitSQLite(logger, *dbPath)
		err = viewDatabase(ctx, repo, os.Stdout)
		repo.Close()
	case "reset":
		err = runReset(ctx, os.Stdout, *dbPath, args)
	default:
		fs.Usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("Command failed", "command", fs.Arg(0), "error", err)
		os.Exit(1)
	}
}

func runMigrate(w io.Writer, dbPath string) error {
	if err := storage.RunMigrations(dbPath); err != nil {
		return err
	}
	version, dirty, err := storage.MigrationVersion(dbPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}

func runReset(ctx context.Context, w io.Writer, dbPath string, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	fs.SetOutput(w)
	yes := fs.Bool("yes", false, "confirm that every row will be deleted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("reset deletes every user, transaction and budget in %s; rerun with -yes", dbPath)
	}

	if err := storage.ResetDatabase(ctx, dbPath); err != nil {
		return err
	}
	fmt.Fprintf(w, "database %s reset\n", dbPath)
	return nil
}
