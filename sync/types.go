package sync

import (
	"context"
	"time"
)

// Position is a 0-based line/character pair. Character is counted in
// UTF-16 code units, matching the convention LSP clients use; the core
// itself never interprets the unit, it only stores and compares it.
type Position struct {
	Line      uint32
	Character uint32
}

// Change is an editor-facing replacement of the native byte range
// [Start, End) with Text.
type Change struct {
	Start uint32
	End   uint32
	Text  string
}

// DeltaKind tags a single op inside a ChangeDelta.
type DeltaKind int

const (
	DeltaRetain DeltaKind = iota
	DeltaInsert
	DeltaInsertEmbedded
	DeltaDelete
)

// DeltaOp is one operation of a CRDT-facing delta. Only Insert and Delete
// affect the core; InsertEmbedded is carried opaquely in Embedded and
// otherwise ignored, Retain just advances the cursor.
type DeltaOp struct {
	Kind     DeltaKind
	N        int
	Text     string
	Embedded any
}

// Edit is the unit the Editor capability applies: a native-offset
// replacement of [Start, End) with Replacement.
type Edit struct {
	Start       int
	End         int
	Replacement string
}

// Event is what a CRDTText observer receives. Local is true when the
// event was raised from inside a Transact call this process itself made;
// the Sync Engine relies on this flag to suppress self-echo.
type Event struct {
	Delta []DeltaOp
	Local bool
}

// ChangeEvent is what an Editor's OnChange callback receives.
type ChangeEvent struct {
	Changes []Change
}

// ChangeSet records one in-flight edit: the document text before it was
// applied and the text after. The Change Tracker uses equality of After
// against a candidate result to detect echoes.
type ChangeSet struct {
	Before string
	After  string
}

// Tx is the handle a CRDTText hands to the closure passed to Transact.
type Tx interface {
	Insert(offset int, text string) error
	Delete(offset, length int) error
}

// CRDTText is the shared-sequence capability the core requires. See
// SPEC_FULL.md §6 for the contract each method must honor.
type CRDTText interface {
	String() (string, error)
	Insert(offset int, text string) error
	Delete(offset, length int) error
	Transact(fn func(tx Tx) error) error
	Observe(cb func(Event)) (unsubscribe func())
}

// Editor is the local-buffer capability the core requires.
type Editor interface {
	Text() (string, error)
	ApplyEdit(ctx context.Context, edits []Edit) (bool, error)
	OnChange(cb func(ChangeEvent))
}

// Config holds the tunables of a bound Engine. Zero-value fields are
// replaced by their defaults in NewEngine.
type Config struct {
	ResyncDebounce time.Duration
	ResyncMaxWait  time.Duration
	MaxEditRetries int
	ResyncTimer    time.Duration
}

// DefaultConfig returns the Config described in SPEC_FULL.md §6.
func DefaultConfig() Config {
	return Config{
		ResyncDebounce: 100 * time.Millisecond,
		ResyncMaxWait:  500 * time.Millisecond,
		MaxEditRetries: 20,
		ResyncTimer:    10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ResyncDebounce <= 0 {
		c.ResyncDebounce = d.ResyncDebounce
	}
	if c.ResyncMaxWait <= 0 {
		c.ResyncMaxWait = d.ResyncMaxWait
	}
	if c.MaxEditRetries <= 0 {
		c.MaxEditRetries = d.MaxEditRetries
	}
	if c.ResyncTimer <= 0 {
		c.ResyncTimer = d.ResyncTimer
	}
	return c
}
