package sync

import (
	"sort"
	stdsync "sync"
)

// ApplyTextChanges splices changes into text in order and returns the
// result. Changes must be disjoint once sorted by Start; a change whose
// Start falls before the previous change's End is an OverlappingEdit.
func ApplyTextChanges(text string, changes []Change) (string, error) {
	if len(changes) == 0 {
		return text, nil
	}
	sorted := make([]Change, len(changes))
	copy(sorted, changes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].End {
			return "", ErrOverlappingEdit
		}
	}

	var b []byte
	cursor := uint32(0)
	for _, ch := range sorted {
		if ch.Start > uint32(len(text)) || ch.End > uint32(len(text)) || ch.Start > ch.End {
			return "", ErrOverlappingEdit
		}
		b = append(b, text[cursor:ch.Start]...)
		b = append(b, ch.Text...)
		cursor = ch.End
	}
	b = append(b, text[cursor:]...)
	return string(b), nil
}

// Tracker is the Change Tracker: it records ChangeSets for edits the core
// is in the process of applying to the editor, and tells the Sync Engine
// whether a candidate set of editor-reported changes is a genuine local
// edit or an echo of one of those pending remote edits.
//
// pending is read from ShouldApply synchronously on whatever goroutine the
// editor delivers its didChange notification on, while ApplyChanges/remove/
// Clear run on the Sync Engine's scheduler goroutine — two different
// goroutines touching the same backing array — so every access goes
// through mu.
type Tracker struct {
	mu      stdsync.Mutex
	pending []ChangeSet
}

// NewTracker returns an empty Change Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Pending returns a copy of the currently in-flight ChangeSets, most
// recent last.
func (t *Tracker) Pending() []ChangeSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ChangeSet, len(t.pending))
	copy(out, t.pending)
	return out
}

// ShouldApply reports whether changes, as reported by the editor, should
// be forwarded to the CRDT. It returns false when changes reproduce the
// "after" text of some currently pending ChangeSet when spliced onto that
// set's "before" text — i.e. when the editor is echoing back an edit the
// core itself just applied.
func (t *Tracker) ShouldApply(changes []Change) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, cs := range t.pending {
		candidate, err := ApplyTextChanges(cs.Before, changes)
		if err != nil {
			continue
		}
		if candidate == cs.After {
			return false
		}
	}
	return true
}

// ApplyChanges pushes cs onto the pending list, invokes fn, then removes
// cs — whether fn succeeded or not, so a failed remote-edit callback never
// leaves the tracker permanently suppressing genuine future local edits.
// fn runs with mu released, since it may call out to the editor.
func (t *Tracker) ApplyChanges(cs ChangeSet, fn func() error) error {
	t.mu.Lock()
	t.pending = append(t.pending, cs)
	t.mu.Unlock()

	err := fn()

	t.mu.Lock()
	t.remove(cs)
	t.mu.Unlock()
	return err
}

// remove must be called with mu held.
func (t *Tracker) remove(cs ChangeSet) {
	for i, p := range t.pending {
		if p == cs {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			return
		}
	}
}

// ApplyDelta converts a CRDT delta to a native-offset change list via doc,
// computes the resulting before/after ChangeSet, and routes the call
// through ApplyChanges so the tracker can suppress the editor's own echo
// of this edit. fn receives the translated native changes and is
// responsible for actually forwarding them to the editor.
func (t *Tracker) ApplyDelta(delta []DeltaOp, doc *Document, fn func(changes []Change) error) error {
	before := doc.Text()
	changes := doc.TranslateDelta(delta)
	after, err := ApplyTextChanges(before, changes)
	if err != nil {
		return err
	}
	return t.ApplyChanges(ChangeSet{Before: before, After: after}, func() error {
		return fn(changes)
	})
}

// Clear drops every pending ChangeSet. Used when a Document is disposed.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.pending = nil
	t.mu.Unlock()
}
