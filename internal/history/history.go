// Package history persists every tool invocation's Result document to a
// local SQLite store, keyed by a generated human-readable run ID, so a
// non-interactive caller can ask "what happened on the last few runs?"
// without re-parsing stdout. Grounded on the teacher's own sqlite/WAL
// bootstrap (boxer.go NewBoxer) and its namegenerator use for stable,
// memorable identifiers (cmd/sand/new_cmd.go).
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/goombaio/namegenerator"
	_ "modernc.org/sqlite"

	"github.com/GurkeX/hil-host-core/internal/result"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a local run-history database. One row per tool invocation.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite store at path, enables WAL
// mode, and applies any pending golang-migrate migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, result.NewError(result.KindIoError, fmt.Sprintf("open history database %s", path), err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, result.NewError(result.KindIoError, "enable WAL mode", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return result.NewError(result.KindIoError, "load embedded migrations", err)
	}
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return result.NewError(result.KindIoError, "init migration driver", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return result.NewError(result.KindIoError, "init migrator", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return result.NewError(result.KindIoError, "apply history schema migrations", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run is one stored invocation: a generated run ID plus the Result
// document it produced and when it was recorded.
type Run struct {
	ID       string
	Tool     string
	Status   result.Status
	Recorded time.Time
	Document string // the Result, serialized as JSON, verbatim.
}

// Record generates a fresh run ID and persists r under it.
func (s *Store) Record(ctx context.Context, r *result.Result) (string, error) {
	doc, err := json.Marshal(r)
	if err != nil {
		return "", result.NewError(result.KindIoError, "marshal result for history", err)
	}
	id := generateRunID()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, tool, status, recorded_at, document) VALUES (?, ?, ?, ?, ?)`,
		id, r.Tool, string(r.Status), time.Now().UTC(), string(doc))
	if err != nil {
		return "", result.NewError(result.KindIoError, "insert history row", err)
	}
	return id, nil
}

// List returns the most recent limit runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tool, status, recorded_at, document FROM runs ORDER BY recorded_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, result.NewError(result.KindIoError, "query history", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Tool, &run.Status, &run.Recorded, &run.Document); err != nil {
			return nil, result.NewError(result.KindIoError, "scan history row", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Show fetches the stored Result document for a specific run ID verbatim.
func (s *Store) Show(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tool, status, recorded_at, document FROM runs WHERE id = ?`, runID).
		Scan(&run.ID, &run.Tool, &run.Status, &run.Recorded, &run.Document)
	if err == sql.ErrNoRows {
		return nil, result.NewError(result.KindNotFound, fmt.Sprintf("run %q", runID), nil)
	}
	if err != nil {
		return nil, result.NewError(result.KindIoError, "query history row", err)
	}
	return &run, nil
}

func generateRunID() string {
	seed := time.Now().UTC().UnixNano()
	gen := namegenerator.NewNameGenerator(seed)
	return gen.Generate()
}
