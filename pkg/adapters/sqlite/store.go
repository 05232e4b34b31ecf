// Package sqlite implements the capsule record store on an embedded SQLite
// database (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/aretw0/capsule/pkg/core"
)

// DefaultFile is the database file name inside the vault.
const DefaultFile = "capsule.db"

// Config holds the configuration for the SQLite store.
type Config struct {
	Path     string // database file
	ReadOnly bool
	Location *time.Location
	Logger   *slog.Logger
}

// Store provides SQLite-backed persistence for records and transitions.
type Store struct {
	config Config

	mu sync.Mutex
	db *sql.DB
}

// NewStore returns a Store for the database at config.Path. The database is
// opened by Initialize.
func NewStore(config Config) *Store {
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Store{config: config}
}

// Open opens a database handle with the pragmas the store relies on.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// A single connection keeps the busy handling trivial for a
	// single-user tool.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000; PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure %s: %w", path, err)
	}
	return db, nil
}

// Initialize opens the database and migrates the schema.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}
	if s.config.ReadOnly {
		if _, err := os.Stat(s.config.Path); err != nil {
			return fmt.Errorf("database does not exist: %w", err)
		}
	} else if err := os.MkdirAll(filepath.Dir(s.config.Path), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := Open(s.config.Path)
	if err != nil {
		return err
	}
	if s.config.ReadOnly {
		current, err := schemaVersion(db)
		if err != nil || current != SchemaVersion {
			_ = db.Close()
			return fmt.Errorf("%w: schema v%d", core.ErrMalformedStore, current)
		}
	} else if err := Migrate(db); err != nil {
		_ = db.Close()
		return err
	}
	s.db = db
	s.config.Logger.Debug("sqlite store ready", "path", s.config.Path)
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errors.New("sqlite store is not initialized")
	}
	return s.db, nil
}

// Load returns every record in insertion order.
func (s *Store) Load(ctx context.Context) ([]core.Record, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT id, recorded_at, category, content, target_time, status, linked_cost FROM records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	defer rows.Close()

	records := []core.Record{}
	for rows.Next() {
		var (
			rec              core.Record
			recordedAt, cost string
			category, status string
			target           sql.NullString
		)
		if err := rows.Scan(&rec.ID, &recordedAt, &category, &rec.Content, &target, &status, &cost); err != nil {
			return nil, fmt.Errorf("load records: scan: %w", err)
		}
		if rec.RecordedAt, err = s.parseTime(recordedAt); err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		if target.Valid {
			t, err := s.parseTime(target.String)
			if err != nil {
				return nil, fmt.Errorf("record %s: %w", rec.ID, err)
			}
			rec.TargetTime = &t
		}
		rec.Category = core.Category(category)
		rec.Status = core.Status(status)
		if !rec.Status.Valid() {
			return nil, fmt.Errorf("%w: record %s has status %q", core.ErrMalformedStore, rec.ID, status)
		}
		if rec.LinkedCost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("record %s: parse cost: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return records, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insert(ctx context.Context, ex execer, rec core.Record) error {
	var target any
	if rec.TargetTime != nil {
		target = s.formatTime(*rec.TargetTime)
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO records (id, recorded_at, category, content, target_time, status, linked_cost) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, s.formatTime(rec.RecordedAt), string(rec.Category), rec.Content, target, string(rec.Status), rec.LinkedCost.String(),
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", rec.ID, err)
	}
	return nil
}

// Append adds one record at the end of the store.
func (s *Store) Append(ctx context.Context, rec core.Record) error {
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}
	if rec.ID == "" {
		return fmt.Errorf("record has no ID")
	}
	db, err := s.handle()
	if err != nil {
		return err
	}
	return s.insert(ctx, db, rec)
}

// Overwrite replaces every record inside one transaction.
func (s *Store) Overwrite(ctx context.Context, records []core.Record) error {
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}
	db, err := s.handle()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("overwrite: begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("overwrite: clear: %w", err)
	}
	for _, rec := range records {
		if err := s.insert(ctx, tx, rec); err != nil {
			return fmt.Errorf("overwrite: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("overwrite: commit: %w", err)
	}
	return nil
}

// Reset discards every record and transition.
func (s *Store) Reset(ctx context.Context) error {
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}
	db, err := s.handle()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM records; DELETE FROM transitions;`); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	s.config.Logger.Warn("record store reset", "path", s.config.Path)
	return nil
}

// RecordTransitions appends entries to the transitions table.
func (s *Store) RecordTransitions(ctx context.Context, ts ...core.Transition) error {
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}
	if len(ts) == 0 {
		return nil
	}
	db, err := s.handle()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record transitions: begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	for _, t := range ts {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transitions (record_id, kind, from_value, to_value, at) VALUES (?, ?, ?, ?, ?)`,
			t.RecordID, string(t.Kind), t.From, t.To, s.formatTime(t.At),
		)
		if err != nil {
			return fmt.Errorf("record transitions: insert: %w", err)
		}
	}
	return tx.Commit()
}

// Transitions returns the journal in append order.
func (s *Store) Transitions(ctx context.Context) ([]core.Transition, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT record_id, kind, from_value, to_value, at FROM transitions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load transitions: %w", err)
	}
	defer rows.Close()

	out := []core.Transition{}
	for rows.Next() {
		var t core.Transition
		var kind, at string
		if err := rows.Scan(&t.RecordID, &kind, &t.From, &t.To, &at); err != nil {
			return nil, fmt.Errorf("load transitions: scan: %w", err)
		}
		t.Kind = core.TransitionKind(kind)
		if t.At, err = s.parseTime(at); err != nil {
			return nil, fmt.Errorf("load transitions: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func (s *Store) parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(s.config.Location), nil
}

var (
	_ core.Repository = (*Store)(nil)
	_ core.Journal    = (*Store)(nil)
)
