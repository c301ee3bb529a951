package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout sorts lexicographically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore stores build history in SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
// If logger is nil, a discard logger is used.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens the database and runs pending migrations.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:"
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := migrate(context.Background(), db, s.logger); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	s.path = path
	s.logger.Debug("state store opened", slog.String("path", path))
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// Record stores b, filling in ID and CreatedAt when empty.
func (s *SQLiteStore) Record(b *Build) error {
	if s.db == nil {
		return errNotOpen
	}
	if b.ID == "" {
		b.ID = generateID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO builds (id, app, model_path, model_hash, variant, priority_bits, step_count, fingerprint, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.App, b.ModelPath, b.ModelHash, b.Variant, b.PriorityBits, b.StepCount, b.Fingerprint,
		b.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record build: %w", err)
	}

	s.logger.Debug("build recorded",
		slog.String("id", b.ID),
		slog.String("app", b.App),
		slog.String("fingerprint", b.Fingerprint))
	return nil
}

const selectBuild = `SELECT id, app, model_path, model_hash, variant, priority_bits, step_count, fingerprint, created_at FROM builds`

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(row scanner) (*Build, error) {
	b := &Build{}
	var created string
	if err := row.Scan(&b.ID, &b.App, &b.ModelPath, &b.ModelHash, &b.Variant,
		&b.PriorityBits, &b.StepCount, &b.Fingerprint, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", created, err)
	}
	b.CreatedAt = t
	return b, nil
}

// Latest returns the most recent build of app, or nil if there is none.
func (s *SQLiteStore) Latest(app string) (*Build, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	b, err := scanBuild(s.db.QueryRow(
		selectBuild+` WHERE app = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, app))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest build: %w", err)
	}
	return b, nil
}

// List returns up to limit builds of app, newest first. An empty app lists
// every application; limit <= 0 means no limit.
func (s *SQLiteStore) List(app string, limit int) ([]*Build, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(
		selectBuild+` WHERE (? = '' OR app = ?) ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		app, app, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var builds []*Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

// Check compares b with the latest build of the same app. It returns a
// Regression when the model and variant are unchanged but the fingerprint
// differs, nil otherwise.
func (s *SQLiteStore) Check(b *Build) (*Regression, error) {
	prev, err := s.Latest(b.App)
	if err != nil || prev == nil {
		return nil, err
	}
	if prev.ModelHash != b.ModelHash || prev.Variant != b.Variant || prev.PriorityBits != b.PriorityBits {
		return nil, nil
	}
	if prev.Fingerprint == b.Fingerprint {
		return nil, nil
	}
	return &Regression{Previous: prev, Current: b}, nil
}
