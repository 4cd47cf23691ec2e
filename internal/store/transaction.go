package store

import (
	"database/sql"
	"fmt"
)

// SQLiteTx is the Transaction implementation a SQLiteStore's WithTx hands
// to its closure.
type SQLiteTx struct {
	tx *sql.Tx
}

func (tx *SQLiteTx) UpsertSnapshot(rec *SnapshotRecord) error {
	_, err := tx.tx.Exec(`
        INSERT INTO snapshots (document_id, text, crlf, version, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(document_id) DO UPDATE SET
            text = excluded.text,
            crlf = excluded.crlf,
            version = excluded.version,
            updated_at = excluded.updated_at
    `, rec.DocumentID, rec.Text, boolToInt(rec.CRLF), rec.Version, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot in transaction: %w", err)
	}
	return nil
}

func (tx *SQLiteTx) DeleteSnapshot(documentID string) error {
	if _, err := tx.tx.Exec("DELETE FROM snapshots WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("failed to delete snapshot in transaction: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
