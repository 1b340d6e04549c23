// Package store persists dispatch state in SQLite. A single writer handle
// opens transactions with BEGIN IMMEDIATE so conflicting mutations
// serialize; a separate reader handle serves read-only snapshots without
// blocking the writer (WAL mode).
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/fleetops/tripdispatch/core/dispatch"
	"github.com/fleetops/tripdispatch/core/logger"
)

// Store implements dispatch.Store on top of SQLite.
type Store struct {
	writer *sql.DB
	reader *sql.DB
	log    logger.Logger
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string, log logger.Logger) (*Store, error) {
	writer, err := sql.Open("sqlite", "file:"+path+"?_txlock=immediate")
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY between our own transactions.
	writer.SetMaxOpenConns(1)
	reader, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		_ = writer.Close()
		return nil, err
	}
	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA foreign_keys=ON`,
		`PRAGMA busy_timeout=5000`,
	} {
		if _, err := writer.Exec(pragma); err != nil {
			_ = writer.Close()
			_ = reader.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
		if _, err := reader.Exec(pragma); err != nil {
			_ = writer.Close()
			_ = reader.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := writer.Exec(schema); err != nil {
		_ = writer.Close()
		_ = reader.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{writer: writer, reader: reader, log: log}, nil
}

// RunInTx executes fn in a writable transaction. The availability re-checks
// fn performs therefore see its own uncommitted writes and hold the write
// lock until commit.
func (s *Store) RunInTx(ctx context.Context, fn func(tx dispatch.Tx) error) error {
	return s.run(ctx, s.writer, fn)
}

// View executes fn against a read-only snapshot.
func (s *Store) View(ctx context.Context, fn func(tx dispatch.Tx) error) error {
	return s.run(ctx, s.reader, fn)
}

func (s *Store) run(ctx context.Context, db *sql.DB, fn func(tx dispatch.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&queries{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Errorf("rollback: %v (after: %v)", rbErr, err)
		}
		return err
	}
	return tx.Commit()
}

// Close closes both database handles.
func (s *Store) Close() error {
	rErr := s.reader.Close()
	wErr := s.writer.Close()
	if wErr != nil {
		return wErr
	}
	return rErr
}
