package lsp

import (
	"context"
	stdsync "sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	zsync "zeta-sync/sync"
)

// docEditor implements zsync.Editor on top of one LSP client's view of one
// open text document. It keeps its own byte-accurate mirror of the buffer
// so that it can translate between the native byte offsets the sync core
// deals in and the UTF-16 line/character positions the LSP protocol uses,
// the same translation a real editor's LSP client performs on its own
// side of the wire.
type docEditor struct {
	mu       stdsync.Mutex
	uri      string
	text     string
	ctx      *glsp.Context
	onChange func(zsync.ChangeEvent)
}

func newDocEditor(uri, text string) *docEditor {
	return &docEditor{uri: uri, text: text}
}

// setContext records the most recent glsp.Context seen for this document,
// so a later server-initiated ApplyEdit has a live connection to call
// workspace/applyEdit on.
func (e *docEditor) setContext(ctx *glsp.Context) {
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()
}

func (e *docEditor) Text() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text, nil
}

func (e *docEditor) OnChange(cb func(zsync.ChangeEvent)) {
	e.mu.Lock()
	e.onChange = cb
	e.mu.Unlock()
}

// applyLocalChange updates the mirror with an edit the client reported via
// textDocument/didChange and notifies the sync core, exactly mirroring the
// role fakeEditor.typeEdit plays in tests.
func (e *docEditor) applyLocalChange(ch zsync.Change) {
	e.mu.Lock()
	newText, err := zsync.ApplyTextChanges(e.text, []zsync.Change{ch})
	if err != nil {
		e.mu.Unlock()
		return
	}
	e.text = newText
	cb := e.onChange
	e.mu.Unlock()
	if cb != nil {
		cb(zsync.ChangeEvent{Changes: []zsync.Change{ch}})
	}
}

// ApplyEdit pushes edits to the client via workspace/applyEdit and reports
// whether the client accepted them. A false, nil return (rather than an
// error) tells the Sync Engine the buffer moved out from under the edit
// and it should retry or fall back to a Resync.
func (e *docEditor) ApplyEdit(_ context.Context, edits []zsync.Edit) (bool, error) {
	e.mu.Lock()
	text := e.text
	gctx := e.ctx
	e.mu.Unlock()

	if gctx == nil {
		return false, nil
	}

	docChanges := make([]protocol.TextEdit, len(edits))
	for i, ed := range edits {
		docChanges[i] = protocol.TextEdit{
			Range:   rangeFromOffsets(text, ed.Start, ed.End),
			NewText: ed.Replacement,
		}
	}

	edit := protocol.WorkspaceEdit{
		Changes: map[string][]protocol.TextEdit{e.uri: docChanges},
	}

	var result protocol.ApplyWorkspaceEditResponse
	gctx.Call("workspace/applyEdit", protocol.ApplyWorkspaceEditParams{Edit: edit}, &result)

	// Apply the same edits to our own mirror; a real client would send the
	// resulting didChange, but that notification is not guaranteed to
	// arrive before the Sync Engine next reads Text(), so the mirror is
	// kept in sync eagerly here too.
	e.mu.Lock()
	newText := text
	for _, ed := range edits {
		newText = newText[:ed.Start] + ed.Replacement + newText[ed.End:]
	}
	e.text = newText
	e.mu.Unlock()

	return result.Applied, nil
}

// rangeFromOffsets converts a [start,end) native byte range over text into
// an LSP Range expressed in UTF-16 line/character units, via the same
// Line-Offset Index the sync core itself uses for this conversion.
func rangeFromOffsets(text string, start, end int) protocol.Range {
	li := zsync.NewLineIndex(func() string { return text })
	return protocol.Range{
		Start: positionFromOffset(li, start),
		End:   positionFromOffset(li, end),
	}
}

func positionFromOffset(li *zsync.LineIndex, offset int) protocol.Position {
	pos := li.PositionAt(offset)
	return protocol.Position{Line: pos.Line, Character: pos.Character}
}

// offsetFromPosition converts an LSP Position back into a native byte
// offset into text, via zsync.LineIndex.OffsetAt.
func offsetFromPosition(text string, pos protocol.Position) int {
	li := zsync.NewLineIndex(func() string { return text })
	return li.OffsetAt(zsync.Position{Line: pos.Line, Character: pos.Character}, zsync.Native)
}
