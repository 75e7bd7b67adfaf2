package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrLegacySchema is returned when the database still carries the pre-email
// schema. The data has to be reset explicitly with the admin tool.
var ErrLegacySchema = errors.New("legacy schema detected: run `spendsmart-admin reset -yes` to drop and recreate the database")

// legacyTables are the tables created by the username-keyed schema.
var legacyTables = []string{"expense", "user"}

func RunMigrations(dbPath string) error {
	m, err := newMigrator(dbPath)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// ResetDatabase migrates all the way down, drops legacy tables and migrates
// back up. Every row is lost.
func ResetDatabase(ctx context.Context, dbPath string) error {
	m, err := newMigrator(dbPath)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		m.Close()
		return fmt.Errorf("migrate down: %w", err)
	}
	m.Close()

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	for _, table := range legacyTables {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS "`+table+`"`); err != nil {
			return fmt.Errorf("drop legacy table %s: %w", table, err)
		}
	}
	// A username-keyed users table survives the down migrations only if it
	// predates them.
	if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS users`); err != nil {
		return fmt.Errorf("drop users table: %w", err)
	}

	slog.WarnContext(ctx, "Database reset", "path", dbPath)

	return RunMigrations(dbPath)
}

// MigrationVersion reports the applied schema version.
func MigrationVersion(dbPath string) (uint, bool, error) {
	m, err := newMigrator(dbPath)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// CheckSchema verifies that the users table has the email column and that no
// legacy table is left behind.
func CheckSchema(ctx context.Context, db *sql.DB) error {
	for _, table := range legacyTables {
		exists, err := tableExists(ctx, db, table)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("table %q: %w", table, ErrLegacySchema)
		}
	}

	ok, err := hasColumn(ctx, db, "users", "email")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("users.email missing: %w", ErrLegacySchema)
	}
	return nil
}

func newMigrator(dbPath string) (*migrate.Migrate, error) {
	// Separate connection so migrations never interfere with the main pool.
	migrateDB, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open migration database: %w", err)
	}

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		migrateDB.Close()
		return nil, fmt.Errorf("create sqlite driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		migrateDB.Close()
		return nil, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
	if err != nil {
		migrateDB.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

func tableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspect table %s: %w", table, err)
	}
	return n > 0, nil
}

func hasColumn(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspect columns of %s: %w", table, err)
	}
	return n > 0, nil
}
