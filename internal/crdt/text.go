package crdt

import (
	"math/rand"
	"strings"
	stdsync "sync"

	zsync "zeta-sync/sync"
)

// element is one character in the sequence: a rune tagged with the ID that
// fixes its position and a tombstone bit. Deleted elements are kept so that
// their ID remains a valid neighbor for Between when a concurrent remote
// insert targets the same spot.
type element struct {
	id      ID
	ch      rune
	deleted bool
}

// Text is an LSEQ sequence CRDT implementing sync.CRDTText. elems is kept
// sorted ascending by ID at all times; visible (non-tombstoned) elements in
// that order are the document's text.
type Text struct {
	mu        stdsync.Mutex
	replica   uint16
	rnd       *rand.Rand
	elems     []*element
	observers map[int]func(zsync.Event)
	nextObs   int
}

// NewText creates a Text seeded with initial, whose runes are allocated IDs
// as if replica had typed them in one append at the start of time. rnd is
// the source Between draws path digits from; callers that need determinism
// (tests, or replaying a fixed seed) supply their own.
func NewText(replica uint16, rnd *rand.Rand, initial string) *Text {
	t := &Text{
		replica:   replica,
		rnd:       rnd,
		observers: make(map[int]func(zsync.Event)),
	}
	if initial != "" {
		t.insertText(0, initial)
	}
	return t
}

// String returns the visible text in ID order.
func (t *Text) String() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var b strings.Builder
	for _, e := range t.elems {
		if !e.deleted {
			b.WriteRune(e.ch)
		}
	}
	return b.String(), nil
}

func (t *Text) snapshotObservers() []func(zsync.Event) {
	out := make([]func(zsync.Event), 0, len(t.observers))
	for _, obs := range t.observers {
		out = append(out, obs)
	}
	return out
}

// Observe registers cb for every future event and returns a function that
// unregisters it. cb is never called synchronously from inside Observe.
func (t *Text) Observe(cb func(zsync.Event)) func() {
	t.mu.Lock()
	id := t.nextObs
	t.nextObs++
	t.observers[id] = cb
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.observers, id)
		t.mu.Unlock()
	}
}

func notify(observers []func(zsync.Event), ev zsync.Event) {
	for _, obs := range observers {
		obs(ev)
	}
}
