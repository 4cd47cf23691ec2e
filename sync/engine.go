package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"sync/atomic"
	"time"

	"zeta-sync/internal/scheduler"
)

// State is one of the four states a bound Engine occupies.
type State int32

const (
	Idle State = iota
	ApplyingRemote
	ApplyingLocal
	Resyncing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case ApplyingRemote:
		return "ApplyingRemote"
	case ApplyingLocal:
		return "ApplyingLocal"
	case Resyncing:
		return "Resyncing"
	default:
		return "Unknown"
	}
}

// Engine is the Sync Engine: it binds one Editor to one CRDTText, owns a
// Change Tracker and a Normalized Document, and drives the state machine
// that keeps the two converged. Every unit of work — applying a local
// edit to the CRDT, applying a remote edit to the editor, reconciling
// drift — is submitted as a scheduler.Task to a per-Engine Scheduler, so
// its single consumer goroutine is the one cooperative loop a bound
// document runs on.
type Engine struct {
	cfg     Config
	ctx     context.Context
	editor  Editor
	crdt    CRDTText
	doc     *Document
	tracker *Tracker
	sched   *scheduler.Scheduler

	debounce     *debouncer
	forcedTicker *time.Ticker
	stopForced   chan struct{}

	resyncMu stdsync.Mutex
	state    int32

	closed int32
	done   chan struct{}
}

// NewEngine binds editor to crdtText and starts the background machinery
// (scheduler goroutine, forced-resync ticker, editor/CRDT observers). ctx
// bounds every call into editor.ApplyEdit; cancel it to unwind the Engine
// promptly, then call Close to release its resources.
func NewEngine(ctx context.Context, editor Editor, crdtText CRDTText, cfg Config) (*Engine, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:        cfg,
		ctx:        ctx,
		editor:     editor,
		crdt:       crdtText,
		tracker:    NewTracker(),
		sched:      scheduler.NewScheduler(64),
		stopForced: make(chan struct{}),
		done:       make(chan struct{}),
	}

	doc, err := NewDocument(crdtText, e.onRemoteDelta)
	if err != nil {
		return nil, err
	}
	e.doc = doc
	// If the editor's current buffer already carries the same content as
	// the CRDT, modulo line-ending style, adopt the editor's style as the
	// mirror's hasCR rather than whatever the CRDT's LF-only content
	// implies. A genuine mismatch is left for the first Resync to settle.
	if editorText, err := editor.Text(); err == nil {
		if normalize(editorText, false) == normalize(doc.Text(), false) {
			doc.Seed(editorText)
		}
	}
	e.debounce = newDebouncer(e.sched, "resync", cfg.ResyncDebounce, cfg.ResyncMaxWait, e.resyncOnce)

	e.sched.RunScheduler()
	e.forcedTicker = time.NewTicker(cfg.ResyncTimer)
	go e.watchForcedResync()

	editor.OnChange(e.onEditorChange)
	return e, nil
}

// State returns the Engine's current state. Safe for concurrent use.
func (e *Engine) State() State {
	return State(atomic.LoadInt32(&e.state))
}

func (e *Engine) setState(s State) {
	atomic.StoreInt32(&e.state, int32(s))
}

// Document returns the bound Normalized Document.
func (e *Engine) Document() *Document {
	return e.doc
}

// Done returns a channel that is closed once Close has run. Callers that
// poll the Engine from outside its cooperative loop (e.g. a periodic
// snapshot sweep) should select on it to stop polling promptly instead of
// spinning forever after the bound document is gone.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Snapshot returns the document's current text and line-ending flag, read
// on the scheduler's own goroutine — the one cooperative loop this
// document's state is otherwise only ever touched from — so a caller
// outside that loop never races with Update/UpdateFullText. ok is false
// if the Engine is already closed.
func (e *Engine) Snapshot() (text string, hasCR bool, ok bool) {
	if atomic.LoadInt32(&e.closed) == 1 {
		return "", false, false
	}
	type result struct {
		text  string
		hasCR bool
	}
	got := make(chan result, 1)
	e.sched.ScheduleHighPriorityTask(scheduler.Task{
		Name: "snapshot",
		Execute: func() error {
			got <- result{text: e.doc.Text(), hasCR: e.doc.HasCR()}
			return nil
		},
	})
	r := <-got
	return r.text, r.hasCR, true
}

// ResyncNow submits an immediate (non-debounced) reconciliation task,
// for use right after binding a document whose snapshot may have drifted
// from the live CRDT while the process was down.
func (e *Engine) ResyncNow() {
	e.sched.ScheduleHighPriorityTask(scheduler.Task{Name: "resync-now", Execute: e.resyncOnce})
}

func (e *Engine) watchForcedResync() {
	for {
		select {
		case <-e.forcedTicker.C:
			e.sched.ScheduleHighPriorityTask(scheduler.Task{Name: "forced-resync", Execute: e.resyncOnce})
		case <-e.stopForced:
			return
		}
	}
}

// onEditorChange is invoked directly on whatever goroutine the editor
// delivers its didChange notification on. The echo check runs right here
// rather than inside the scheduled task: it must see the Change Tracker's
// pending set as it stood at notification time, before the task queue has
// a chance to drain the ChangeSet that made this very edit an echo.
func (e *Engine) onEditorChange(ev ChangeEvent) {
	if !e.tracker.ShouldApply(ev.Changes) {
		return
	}
	changes := ev.Changes
	e.sched.ScheduleHighPriorityTask(scheduler.Task{
		Name:    "local-edit",
		Execute: func() error { return e.handleLocalChange(changes) },
	})
}

func (e *Engine) onRemoteDelta(delta []DeltaOp) {
	e.sched.ScheduleHighPriorityTask(scheduler.Task{
		Name:    "remote-edit",
		Execute: func() error { return e.handleRemoteDelta(delta) },
	})
}

// handleLocalChange runs on the scheduler's goroutine for every editor
// didChange event that survived the echo check in onEditorChange. On
// success it triggers the debounced drift check (spec §4.4's periodic
// reconciliation), which is a no-op once it fires unless the editor and
// the document mirror have actually diverged by then.
func (e *Engine) handleLocalChange(changes []Change) error {
	e.setState(ApplyingLocal)
	defer e.setState(Idle)
	if err := e.doc.Update(changes, true); err != nil {
		return err
	}
	e.debounce.Trigger()
	return nil
}

// handleRemoteDelta runs on the scheduler's goroutine for every non-local
// CRDT observer event. On success it triggers the same debounced drift
// check as handleLocalChange — this is also how an editor that silently
// rejected applyToEditor's edits (see below) gets its buffer repaired,
// without handleRemoteDelta itself raising an error.
func (e *Engine) handleRemoteDelta(delta []DeltaOp) error {
	e.setState(ApplyingRemote)
	defer e.setState(Idle)

	e.doc.RefreshHasCR()
	err := e.tracker.ApplyDelta(delta, e.doc, func(changes []Change) error {
		if err := e.doc.Update(changes, false); err != nil {
			return err
		}
		return e.applyToEditor(toEdits(changes))
	})
	if err != nil {
		return err
	}
	e.debounce.Trigger()
	return nil
}

// applyToEditor pushes edits to the editor, retrying with the same edits
// up to cfg.MaxEditRetries times if the editor reports that its buffer
// moved out from under the edit. Exhausting retries returns nil instead
// of raising to the caller — handleRemoteDelta's debounced drift check
// will find and repair the resulting divergence on its own schedule.
func (e *Engine) applyToEditor(edits []Edit) error {
	for attempt := 0; attempt < e.cfg.MaxEditRetries; attempt++ {
		ok, err := e.editor.ApplyEdit(e.ctx, edits)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return nil
}

// resyncOnce compares the editor's live text against the document mirror
// (which is always kept consistent with the CRDT) and, if they differ,
// replaces the editor buffer wholesale. It never writes back to the CRDT.
func (e *Engine) resyncOnce() error {
	e.resyncMu.Lock()
	defer e.resyncMu.Unlock()

	e.setState(Resyncing)
	defer e.setState(Idle)

	editorText, err := e.editor.Text()
	if err != nil {
		return fmt.Errorf("sync: read editor text for resync: %w", err)
	}
	mirror := e.doc.Text()
	if editorText == mirror {
		return nil
	}

	edit := Edit{Start: 0, End: len(editorText), Replacement: mirror}
	return e.tracker.ApplyChanges(ChangeSet{Before: editorText, After: mirror}, func() error {
		for attempt := 0; attempt < e.cfg.MaxEditRetries; attempt++ {
			ok, err := e.editor.ApplyEdit(e.ctx, []Edit{edit})
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
		return fmt.Errorf("%w: resync exhausted retries", ErrEditorRejectedEdit)
	})
}

func toEdits(changes []Change) []Edit {
	edits := make([]Edit, len(changes))
	for i, c := range changes {
		edits[i] = Edit{Start: int(c.Start), End: int(c.End), Replacement: c.Text}
	}
	return edits
}

// Close stops the forced-resync ticker and the debouncer, drains and
// stops the Scheduler, unsubscribes from the CRDT, and clears the Change
// Tracker. Idempotent.
func (e *Engine) Close() error {
	if !atomic.CompareAndSwapInt32(&e.closed, 0, 1) {
		return nil
	}
	close(e.done)
	close(e.stopForced)
	e.forcedTicker.Stop()
	e.debounce.Stop()
	e.sched.StopScheduler()
	e.tracker.Clear()
	return e.doc.Close()
}
