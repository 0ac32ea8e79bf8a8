package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema_v1.sql
var schemaV1SQL string

// migration is one additive step of the schema history.
// Migrations never drop or rewrite existing columns.
type migration struct {
	version int
	name    string
	apply   func(ctx context.Context, tx *sql.Tx) error
}

// Schema version tracking:
// 1 - credentials, proofs and settings collections with their indexes
var migrations = []migration{
	{version: 1, name: "wallet collections", apply: execSQL(schemaV1SQL)},
}

// Store provides durable storage for wallet records.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	closed atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for migration messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times on the same path.
func Open(path string, opts ...Option) (*Store, error) {
	return open(context.Background(), path, opts...)
}

// OpenInMemory creates a fresh private in-memory store.
// Each call returns an independent database, which keeps tests isolated.
func OpenInMemory(opts ...Option) (*Store, error) {
	dsn := fmt.Sprintf("file:wallet-%s?mode=memory&cache=shared", uuid.NewString())
	return open(context.Background(), dsn, opts...)
}

func open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", unavailable(err))
	}

	// SQLite only supports one writer at a time. A single connection also
	// keeps an in-memory database alive for the life of the handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", unavailable(err))
	}

	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", unavailable(err))
	}

	return s, nil
}

// Close closes the database connection.
// Operations after Close fail with ErrStorageUnavailable.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// SchemaVersion returns the schema version recorded in the database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	if err := s.checkOpen("schema version"); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, classify("schema version", "", "", err)
	}
	return version, nil
}

// Counts holds the number of records in each collection.
type Counts struct {
	Credentials int `json:"credentials"`
	Proofs      int `json:"proofs"`
	Settings    int `json:"settings"`
}

// Counts returns per-collection record counts.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	if err := s.checkOpen("count records"); err != nil {
		return Counts{}, err
	}
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM credentials),
			(SELECT COUNT(*) FROM proofs),
			(SELECT COUNT(*) FROM settings)
	`).Scan(&c.Credentials, &c.Proofs, &c.Settings)
	if err != nil {
		return Counts{}, classify("count records", "", "", err)
	}
	return c, nil
}

// checkOpen reports ErrStorageUnavailable once the handle is closed.
func (s *Store) checkOpen(op string) error {
	if s.db == nil || s.closed.Load() {
		return fmt.Errorf("%s: %w: store is closed", op, ErrStorageUnavailable)
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// latestSchemaVersion is the version a freshly opened store ends up at.
func latestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// runMigrations applies every migration newer than user_version, in order.
// Each step and its version bump commit together.
func (s *Store) runMigrations(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if latest := latestSchemaVersion(); version > latest {
		return fmt.Errorf("%w: database is at version %d, this build supports up to %d",
			ErrSchemaTooNew, version, latest)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return err
		}
		s.logger.Info("applied schema migration", "version", m.version, "name", m.name)
		version = m.version
	}

	return nil
}

func (s *Store) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate to v%d: begin tx: %w", m.version, err)
	}
	defer tx.Rollback() // No-op if committed

	if err := m.apply(ctx, tx); err != nil {
		return fmt.Errorf("migrate to v%d: %w", m.version, err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("migrate to v%d: set user_version: %w", m.version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate to v%d: commit: %w", m.version, err)
	}
	return nil
}

// execSQL builds a migration step that runs a fixed script.
func execSQL(script string) func(context.Context, *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, script)
		return err
	}
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
