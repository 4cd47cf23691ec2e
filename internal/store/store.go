package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists document snapshots so a bound Engine can survive a
// restart without replaying its whole edit history: cmd/zeta-sync seeds
// the document's CRDT text from the last snapshot, which NewEngine's
// Normalized Document then reads, and calls ResyncNow to reconcile the
// editor with it.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the SQLite database at
// path, running WAL mode and foreign keys on, and ensures the schema is
// current.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(`
        PRAGMA foreign_keys = ON;
        PRAGMA journal_mode = WAL;
    `); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// WithTx runs fn inside a single SQLite transaction, rolling back if fn or
// the commit fails.
func (s *SQLiteStore) WithTx(fn func(Transaction) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	defer tx.Rollback()

	if err := fn(&SQLiteTx{tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	return nil
}

// GetSnapshot returns the persisted snapshot for documentID, or ErrNotFound
// if none exists.
func (s *SQLiteStore) GetSnapshot(documentID string) (*SnapshotRecord, error) {
	var rec SnapshotRecord
	var crlf int
	err := s.db.QueryRow(
		"SELECT document_id, text, crlf, version, updated_at FROM snapshots WHERE document_id = ?",
		documentID,
	).Scan(&rec.DocumentID, &rec.Text, &crlf, &rec.Version, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	rec.CRLF = crlf != 0
	return &rec, nil
}

// GetAllSnapshots returns every persisted snapshot, for use when a process
// manages more than one bound document and needs to rehydrate all of them
// at startup.
func (s *SQLiteStore) GetAllSnapshots() ([]SnapshotRecord, error) {
	rows, err := s.db.Query("SELECT document_id, text, crlf, version, updated_at FROM snapshots")
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		var rec SnapshotRecord
		var crlf int
		if err := rows.Scan(&rec.DocumentID, &rec.Text, &crlf, &rec.Version, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot record: %w", err)
		}
		rec.CRLF = crlf != 0
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot records: %w", err)
	}
	return records, nil
}

// UpsertSnapshot writes rec inside its own transaction. Callers persisting
// several documents at once should use WithTx directly instead, to keep
// the writes atomic together.
func (s *SQLiteStore) UpsertSnapshot(rec *SnapshotRecord) error {
	return s.WithTx(func(tx Transaction) error {
		return tx.UpsertSnapshot(rec)
	})
}

// DeleteSnapshot removes documentID's snapshot. Returns ErrNotFound if
// there wasn't one.
func (s *SQLiteStore) DeleteSnapshot(documentID string) error {
	result, err := s.db.Exec("DELETE FROM snapshots WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
