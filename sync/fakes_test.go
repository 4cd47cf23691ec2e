package sync

import (
	"context"
	stdsync "sync"
)

// rawOp is one CRDT-side mutation recorded during a fakeCRDT transaction,
// in the evolving (post-previous-ops) offset space.
type rawOp struct {
	insert bool
	offset int
	text   string
	length int
}

// fakeCRDT is an in-memory stand-in for sync.CRDTText used to drive the
// Sync Engine's state machine deterministically in tests, without a real
// CRDT adapter (internal/crdt) or network peer.
type fakeCRDT struct {
	mu        stdsync.Mutex
	text      string
	observers map[int]func(Event)
	nextID    int
}

func newFakeCRDT(text string) *fakeCRDT {
	return &fakeCRDT{text: text, observers: make(map[int]func(Event))}
}

func (c *fakeCRDT) String() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, nil
}

func (c *fakeCRDT) snapshotObservers() []func(Event) {
	out := make([]func(Event), 0, len(c.observers))
	for _, obs := range c.observers {
		out = append(out, obs)
	}
	return out
}

// Insert and Delete apply directly, outside of any transaction, firing a
// non-local event — this is how tests simulate a remote peer's edit
// arriving at the local CRDT replica.
func (c *fakeCRDT) Insert(offset int, text string) error {
	c.mu.Lock()
	c.text = c.text[:offset] + text + c.text[offset:]
	observers := c.snapshotObservers()
	c.mu.Unlock()
	ev := Event{Delta: deltaFromOps([]rawOp{{insert: true, offset: offset, text: text}}), Local: false}
	for _, obs := range observers {
		obs(ev)
	}
	return nil
}

func (c *fakeCRDT) Delete(offset, length int) error {
	c.mu.Lock()
	c.text = c.text[:offset] + c.text[offset+length:]
	observers := c.snapshotObservers()
	c.mu.Unlock()
	ev := Event{Delta: deltaFromOps([]rawOp{{insert: false, offset: offset, length: length}}), Local: false}
	for _, obs := range observers {
		obs(ev)
	}
	return nil
}

func (c *fakeCRDT) Transact(fn func(tx Tx) error) error {
	c.mu.Lock()
	original := c.text
	var ops []rawOp
	tx := &fakeTx{c: c, ops: &ops}
	err := fn(tx)
	if err != nil {
		c.text = original
		c.mu.Unlock()
		return err
	}
	observers := c.snapshotObservers()
	c.mu.Unlock()
	if len(ops) == 0 {
		return nil
	}
	ev := Event{Delta: deltaFromOps(ops), Local: true}
	for _, obs := range observers {
		obs(ev)
	}
	return nil
}

func (c *fakeCRDT) Observe(cb func(Event)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = cb
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// fakeTx is the Tx handed to a fakeCRDT.Transact closure. Offsets are
// against the text as mutated by prior ops in the same transaction.
type fakeTx struct {
	c   *fakeCRDT
	ops *[]rawOp
}

func (t *fakeTx) Insert(offset int, text string) error {
	t.c.text = t.c.text[:offset] + text + t.c.text[offset:]
	*t.ops = append(*t.ops, rawOp{insert: true, offset: offset, text: text})
	return nil
}

func (t *fakeTx) Delete(offset, length int) error {
	t.c.text = t.c.text[:offset] + t.c.text[offset+length:]
	*t.ops = append(*t.ops, rawOp{insert: false, offset: offset, length: length})
	return nil
}

// deltaFromOps converts a list of ops, each given in the offset space
// left behind by the ops before it, into a retain/insert/delete delta
// expressed against the text as it stood before any of them ran.
func deltaFromOps(ops []rawOp) []DeltaOp {
	var delta []DeltaOp
	cursor := 0
	shift := 0
	for _, op := range ops {
		orig := op.offset - shift
		if orig > cursor {
			delta = append(delta, DeltaOp{Kind: DeltaRetain, N: orig - cursor})
			cursor = orig
		}
		if op.insert {
			delta = append(delta, DeltaOp{Kind: DeltaInsert, Text: op.text})
			shift += len(op.text)
		} else {
			delta = append(delta, DeltaOp{Kind: DeltaDelete, N: op.length})
			cursor += op.length
			shift -= op.length
		}
	}
	return delta
}

// fakeEditor is an in-memory stand-in for sync.Editor.
type fakeEditor struct {
	mu         stdsync.Mutex
	text       string
	onChange   func(ChangeEvent)
	rejectNext int
	applied    [][]Edit
}

func newFakeEditor(text string) *fakeEditor {
	return &fakeEditor{text: text}
}

func (e *fakeEditor) Text() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text, nil
}

func (e *fakeEditor) OnChange(cb func(ChangeEvent)) {
	e.mu.Lock()
	e.onChange = cb
	e.mu.Unlock()
}

// rejectNextEdits makes the next n ApplyEdit calls report a moved buffer.
func (e *fakeEditor) rejectNextEdits(n int) {
	e.mu.Lock()
	e.rejectNext = n
	e.mu.Unlock()
}

func (e *fakeEditor) ApplyEdit(ctx context.Context, edits []Edit) (bool, error) {
	e.mu.Lock()
	if e.rejectNext > 0 {
		e.rejectNext--
		e.mu.Unlock()
		return false, nil
	}
	changes := make([]Change, len(edits))
	for i, ed := range edits {
		changes[i] = Change{Start: uint32(ed.Start), End: uint32(ed.End), Text: ed.Replacement}
	}
	newText, err := ApplyTextChanges(e.text, changes)
	if err != nil {
		e.mu.Unlock()
		return false, err
	}
	e.text = newText
	e.applied = append(e.applied, edits)
	cb := e.onChange
	e.mu.Unlock()

	if cb != nil {
		cb(ChangeEvent{Changes: changes})
	}
	return true, nil
}

// typeEdit simulates the user making an edit directly in the editor: the
// buffer is spliced and the registered OnChange callback fires, exactly
// as a real editor's didChange notification would.
func (e *fakeEditor) typeEdit(ch Change) {
	e.mu.Lock()
	newText, err := ApplyTextChanges(e.text, []Change{ch})
	if err != nil {
		e.mu.Unlock()
		return
	}
	e.text = newText
	cb := e.onChange
	e.mu.Unlock()
	if cb != nil {
		cb(ChangeEvent{Changes: []Change{ch}})
	}
}
