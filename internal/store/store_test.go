package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"zeta-sync/internal/store"
)

type testHelper struct {
	db   *store.SQLiteStore
	path string
}

func setupTest(t *testing.T) *testHelper {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "store_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create test store: %v", err)
	}

	return &testHelper{db: db, path: tmpDir}
}

func (h *testHelper) cleanup(t *testing.T) {
	t.Helper()
	if err := h.db.Close(); err != nil {
		t.Errorf("Failed to close store: %v", err)
	}
	if err := os.RemoveAll(h.path); err != nil {
		t.Errorf("Failed to remove test directory: %v", err)
	}
}

func TestUpsertAndGetSnapshot(t *testing.T) {
	h := setupTest(t)
	defer h.cleanup(t)

	rec := &store.SnapshotRecord{
		DocumentID: "doc1",
		Text:       "hello\nworld",
		CRLF:       false,
		Version:    1,
		UpdatedAt:  1000,
	}
	if err := h.db.UpsertSnapshot(rec); err != nil {
		t.Fatalf("UpsertSnapshot: %v", err)
	}

	got, err := h.db.GetSnapshot("doc1")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if got.Text != rec.Text || got.CRLF != rec.CRLF || got.Version != rec.Version {
		t.Fatalf("GetSnapshot = %+v, want %+v", got, rec)
	}
}

func TestUpsertSnapshotOverwrites(t *testing.T) {
	h := setupTest(t)
	defer h.cleanup(t)

	h.db.UpsertSnapshot(&store.SnapshotRecord{DocumentID: "doc1", Text: "a", Version: 1, UpdatedAt: 1})
	h.db.UpsertSnapshot(&store.SnapshotRecord{DocumentID: "doc1", Text: "a\r\nb", CRLF: true, Version: 2, UpdatedAt: 2})

	got, err := h.db.GetSnapshot("doc1")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if got.Text != "a\r\nb" || !got.CRLF || got.Version != 2 {
		t.Fatalf("GetSnapshot = %+v", got)
	}
}

func TestGetSnapshotNotFound(t *testing.T) {
	h := setupTest(t)
	defer h.cleanup(t)

	if _, err := h.db.GetSnapshot("missing"); err != store.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteSnapshot(t *testing.T) {
	h := setupTest(t)
	defer h.cleanup(t)

	h.db.UpsertSnapshot(&store.SnapshotRecord{DocumentID: "doc1", Text: "a", Version: 1, UpdatedAt: 1})
	if err := h.db.DeleteSnapshot("doc1"); err != nil {
		t.Fatalf("DeleteSnapshot: %v", err)
	}
	if _, err := h.db.GetSnapshot("doc1"); err != store.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := h.db.DeleteSnapshot("doc1"); err != store.ErrNotFound {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestGetAllSnapshots(t *testing.T) {
	h := setupTest(t)
	defer h.cleanup(t)

	h.db.UpsertSnapshot(&store.SnapshotRecord{DocumentID: "doc1", Text: "a", Version: 1, UpdatedAt: 1})
	h.db.UpsertSnapshot(&store.SnapshotRecord{DocumentID: "doc2", Text: "b", Version: 1, UpdatedAt: 1})

	all, err := h.db.GetAllSnapshots()
	if err != nil {
		t.Fatalf("GetAllSnapshots: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	h := setupTest(t)
	defer h.cleanup(t)

	boom := os.ErrClosed
	err := h.db.WithTx(func(tx store.Transaction) error {
		if err := tx.UpsertSnapshot(&store.SnapshotRecord{DocumentID: "doc1", Text: "a", Version: 1, UpdatedAt: 1}); err != nil {
			return err
		}
		return boom
	})
	if err != boom {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, err := h.db.GetSnapshot("doc1"); err != store.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound (transaction should have rolled back)", err)
	}
}
