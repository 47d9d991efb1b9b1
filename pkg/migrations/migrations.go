package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const (
	defaultDir   = "migrations"
	defaultTable = "schema_migrations"
)

// migrator is the part of *migrate.Migrate this package drives.
type migrator interface {
	Up() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Close() (sourceErr error, databaseErr error)
}

// Swapped in tests.
var (
	openDriver = func(db *sql.DB, cfg Config) (database.Driver, error) {
		return postgres.WithInstance(db, &postgres.Config{MigrationsTable: cfg.MigrationsTable})
	}
	openMigrator = func(sourceURL string, driver database.Driver) (migrator, error) {
		return migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	}
)

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type Config struct {
	// Dir holds the NNNNNN_name.{up,down}.sql files; defaults to ./migrations.
	Dir             string
	MigrationsTable string
	Logger          Logger
}

// Status is the schema version recorded in the migrations table.
type Status struct {
	Version uint
	Dirty   bool
	// Pristine means no migration has been applied yet.
	Pristine bool
}

func (cfg Config) withDefaults() Config {
	if strings.TrimSpace(cfg.Dir) == "" {
		cfg.Dir = defaultDir
	}
	if strings.TrimSpace(cfg.MigrationsTable) == "" {
		cfg.MigrationsTable = defaultTable
	}
	return cfg
}

func (cfg Config) log(warn bool, msg string, args ...any) {
	switch {
	case cfg.Logger == nil:
	case warn:
		cfg.Logger.Warn(msg, args...)
	default:
		cfg.Logger.Info(msg, args...)
	}
}

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB, cfg Config) error {
	return apply(ctx, db, cfg, "up", func(m migrator) error { return m.Up() })
}

// Down rolls back the last steps applied migrations.
func Down(ctx context.Context, db *sql.DB, cfg Config, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("migrations: down steps must be positive, got %d", steps)
	}
	return apply(ctx, db, cfg, "down", func(m migrator) error { return m.Steps(-steps) })
}

// Version reports the current schema version without changing anything.
func Version(ctx context.Context, db *sql.DB, cfg Config) (Status, error) {
	var status Status
	err := withMigrator(ctx, db, cfg, func(s *session) error {
		v, dirty, err := s.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			status.Pristine = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrations: version: %w", err)
		}
		status = Status{Version: v, Dirty: dirty}
		return nil
	})
	return status, err
}

func apply(ctx context.Context, db *sql.DB, cfg Config, direction string, step func(migrator) error) error {
	return withMigrator(ctx, db, cfg, func(s *session) error {
		cfg := s.cfg
		cfg.log(false, "Running SQL migrations", "direction", direction, "dir", cfg.Dir, "table", cfg.MigrationsTable)

		done := make(chan error, 1)
		go func() { done <- step(s) }()

		var err error
		select {
		case <-ctx.Done():
			// migrate cannot be cancelled mid-step; closing it is the only interrupt.
			s.close()
			return ctx.Err()
		case err = <-done:
		}

		switch {
		case errors.Is(err, migrate.ErrNoChange):
			cfg.log(false, "No migrations to apply")
			return nil
		case err != nil:
			return fmt.Errorf("migrations: %s: %w", direction, err)
		}

		if v, dirty, verr := s.Version(); verr == nil {
			cfg.log(false, "Migrations applied successfully", "direction", direction, "version", v, "dirty", dirty)
		} else {
			cfg.log(false, "Migrations applied successfully", "direction", direction)
		}
		return nil
	})
}

// session closes its migrator at most once, from either the caller or a cancelled context.
type session struct {
	migrator
	cfg  Config
	once sync.Once
}

func (s *session) close() {
	s.once.Do(func() {
		srcErr, dbErr := s.Close()
		if srcErr != nil {
			s.cfg.log(true, "Migrations source close error", "error", srcErr)
		}
		if dbErr != nil {
			s.cfg.log(true, "Migrations database close error", "error", dbErr)
		}
	})
}

func withMigrator(ctx context.Context, db *sql.DB, cfg Config, fn func(*session) error) error {
	if db == nil {
		return fmt.Errorf("migrations: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg = cfg.withDefaults()

	absDir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return fmt.Errorf("migrations: resolve dir: %w", err)
	}
	cfg.Dir = absDir

	driver, err := openDriver(db, cfg)
	if err != nil {
		return fmt.Errorf("migrations: postgres driver: %w", err)
	}

	m, err := openMigrator(sourceURL(absDir), driver)
	if err != nil {
		return fmt.Errorf("migrations: init: %w", err)
	}
	s := &session{migrator: m, cfg: cfg}
	defer s.close()

	return fn(s)
}

// sourceURL builds a file:// URL; ToSlash keeps it valid on Windows.
func sourceURL(absDir string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(absDir)}).String()
}
