package crdt

import zsync "zeta-sync/sync"

// Insert applies an externally-sourced insertion — one that arrived over
// the relay from another replica — directly against the sequence and fires
// a non-local event. Local edits go through Transact instead, so that a
// batch of several ops raises exactly one event tagged Local.
func (t *Text) Insert(offset int, text string) error {
	if text == "" {
		return nil
	}
	t.mu.Lock()
	t.insertText(offset, text)
	observers := t.snapshotObservers()
	t.mu.Unlock()

	notify(observers, zsync.Event{
		Delta: deltaFromOps([]rawOp{{insert: true, offset: offset, text: text}}),
		Local: false,
	})
	return nil
}

// Delete applies an externally-sourced deletion the same way Insert does.
func (t *Text) Delete(offset, length int) error {
	if length == 0 {
		return nil
	}
	t.mu.Lock()
	t.deleteText(offset, length)
	observers := t.snapshotObservers()
	t.mu.Unlock()

	notify(observers, zsync.Event{
		Delta: deltaFromOps([]rawOp{{insert: false, offset: offset, length: length}}),
		Local: false,
	})
	return nil
}

// Transact runs fn against a handle that mutates this Text directly,
// rolling every op in fn back if it returns an error, and otherwise firing
// one Local event carrying the whole batch as a single delta.
func (t *Text) Transact(fn func(tx zsync.Tx) error) error {
	t.mu.Lock()
	snapshot := cloneElems(t.elems)
	var ops []rawOp
	tx := &txHandle{text: t, ops: &ops}

	err := fn(tx)
	if err != nil {
		t.elems = snapshot
		t.mu.Unlock()
		return err
	}
	observers := t.snapshotObservers()
	t.mu.Unlock()

	if len(ops) == 0 {
		return nil
	}
	notify(observers, zsync.Event{Delta: deltaFromOps(ops), Local: true})
	return nil
}

// txHandle is the zsync.Tx handed to a Transact closure. Offsets are
// against the text as left by the ops before it in the same transaction.
type txHandle struct {
	text *Text
	ops  *[]rawOp
}

func (h *txHandle) Insert(offset int, text string) error {
	if text == "" {
		return nil
	}
	h.text.insertText(offset, text)
	*h.ops = append(*h.ops, rawOp{insert: true, offset: offset, text: text})
	return nil
}

func (h *txHandle) Delete(offset, length int) error {
	if length == 0 {
		return nil
	}
	h.text.deleteText(offset, length)
	*h.ops = append(*h.ops, rawOp{insert: false, offset: offset, length: length})
	return nil
}
