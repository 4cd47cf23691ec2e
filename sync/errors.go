package sync

import "errors"

// ErrOverlappingEdit is returned when a caller submits a change list whose
// entries are not disjoint once sorted by start offset.
var ErrOverlappingEdit = errors.New("sync: overlapping edit")

// ErrCrdtTransactionFailed wraps a failure raised from inside a CRDT
// transaction. The document's text mirror is left untouched.
var ErrCrdtTransactionFailed = errors.New("sync: crdt transaction failed")

// ErrEditorRejectedEdit is returned when the editor's ApplyEdit reports that
// the buffer moved out from under the edit. The engine retries up to
// Config.MaxEditRetries before giving up and scheduling a Resync.
var ErrEditorRejectedEdit = errors.New("sync: editor rejected edit")

// ErrObserverDisposed is returned by Document.Update and
// Document.UpdateFullText after the Document has been closed. The
// Document's read-only accessors and the Engine's methods do not return
// it.
var ErrObserverDisposed = errors.New("sync: observer disposed")
