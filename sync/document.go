package sync

import (
	"fmt"
	"sort"
	"strings"
)

// normalize rewrites every CRLF/LF line ending in text to CRLF (useCRLF)
// or LF. The CRDT always stores text with useCRLF=false.
func normalize(text string, useCRLF bool) string {
	if !strings.ContainsRune(text, '\r') && !useCRLF {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + len(text)/8)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\r' {
			if i+1 < len(text) && text[i+1] == '\n' {
				if useCRLF {
					b.WriteByte(c)
				}
				continue
			}
			b.WriteByte(c)
			continue
		}
		if c == '\n' && useCRLF && (i == 0 || text[i-1] != '\r') {
			b.WriteByte('\r')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Document is the Normalized Document: a local mirror of a CRDTText's
// content plus the line table and line-ending bookkeeping needed to
// translate offsets and positions between the editor's native
// representation and the CRDT's normalized one.
type Document struct {
	text        string
	lineIndex   *LineIndex
	hasCR       bool
	crdt        CRDTText
	unsubscribe func()
	closed      bool
}

// NewDocument creates a Document mirroring crdt's current content. onRemote
// is invoked for every non-local event the CRDT observer delivers; it
// receives the raw delta, still in normalized offsets — translating it and
// deciding whether to forward it to an editor is the Change Tracker's and
// Sync Engine's job, not the Document's.
func NewDocument(crdt CRDTText, onRemote func(delta []DeltaOp)) (*Document, error) {
	text, err := crdt.String()
	if err != nil {
		return nil, fmt.Errorf("sync: read initial crdt text: %w", err)
	}
	d := &Document{
		text: text,
		crdt: crdt,
	}
	d.hasCR = strings.ContainsRune(text, '\r')
	d.lineIndex = NewLineIndex(func() string { return d.text })
	d.unsubscribe = crdt.Observe(func(ev Event) {
		if ev.Local || onRemote == nil {
			return
		}
		onRemote(ev.Delta)
	})
	return d, nil
}

// Text returns the current native text mirror.
func (d *Document) Text() string {
	return d.text
}

// HasCR reports whether the native text used CRLF line endings the last
// time it was snapshotted for an inbound edit.
func (d *Document) HasCR() bool {
	return d.hasCR
}

func (d *Document) checkOpen() error {
	if d.closed {
		return ErrObserverDisposed
	}
	return nil
}

// OriginalOffset converts a normalized offset to a native offset.
func (d *Document) OriginalOffset(n int) int {
	return d.lineIndex.OriginalOffset(n)
}

// NormalizedOffset converts a native offset to a normalized offset.
func (d *Document) NormalizedOffset(o int) int {
	return d.lineIndex.NormalizedOffset(o)
}

// OriginalOffsetAt converts a position to a native offset.
func (d *Document) OriginalOffsetAt(pos Position) int {
	return d.lineIndex.OffsetAt(pos, Native)
}

// NormalizedOffsetAt converts a position to a normalized offset.
func (d *Document) NormalizedOffsetAt(pos Position) int {
	return d.lineIndex.OffsetAt(pos, Normalized)
}

// PositionAtNormalized converts a normalized offset to a position.
func (d *Document) PositionAtNormalized(n int) Position {
	return d.lineIndex.PositionAt(d.OriginalOffset(n))
}

// PositionAt converts a native offset to a position.
func (d *Document) PositionAt(nativeOffset int) Position {
	return d.lineIndex.PositionAt(nativeOffset)
}

func (d *Document) normalizedCount(nativeOffset int) int {
	if nativeOffset > len(d.text) {
		nativeOffset = len(d.text)
	}
	count := 0
	for i := 0; i < nativeOffset; i++ {
		if d.text[i] != '\r' {
			count++
		}
	}
	return count
}

// Update applies changes — sorted, non-overlapping native-offset
// replacements — to the text mirror. If push is true and a CRDT handle is
// bound, the whole batch runs inside a single CRDT transaction that
// mirrors each change as a delete followed by an insert in normalized
// offsets.
func (d *Document) Update(changes []Change, push bool) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	sorted := make([]Change, len(changes))
	copy(sorted, changes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].End {
			return ErrOverlappingEdit
		}
	}

	old := d.text
	d.lineIndex.Invalidate()

	apply := func(tx Tx) error {
		delta := 0
		for _, ch := range sorted {
			start2 := int(ch.Start) + delta
			end2 := int(ch.End) + delta
			if start2 < 0 || end2 > len(d.text) || start2 > end2 {
				return fmt.Errorf("sync: change out of range [%d,%d) over %d-byte text", start2, end2, len(d.text))
			}
			ns := d.normalizedCount(start2)
			ne := d.normalizedCount(end2)
			d.text = d.text[:start2] + ch.Text + d.text[end2:]
			delta += len(ch.Text) - (end2 - start2)
			if push && tx != nil {
				if ne > ns {
					if err := tx.Delete(ns, ne-ns); err != nil {
						return err
					}
				}
				if ins := normalize(ch.Text, false); ins != "" {
					if err := tx.Insert(ns, ins); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}

	// apply mutates d.text as it walks the batch, one change at a time, so
	// a failure on the second or later change (CRDT-side, or an out-of-
	// range change caught mid-batch) must not leave d.text holding that
	// partial mutation — restore it here, the same way UpdateFullText
	// restores on a failed transaction below.
	var err error
	if push && d.crdt != nil {
		err = d.crdt.Transact(apply)
	} else {
		err = apply(nil)
	}
	if err != nil {
		d.text = old
		d.lineIndex.Invalidate()
		if push && d.crdt != nil {
			return fmt.Errorf("%w: %v", ErrCrdtTransactionFailed, err)
		}
		return err
	}
	return nil
}

// Seed replaces the text mirror with nativeText and recomputes hasCR from
// it, without touching the CRDT. It is for use only at bind time, when
// the editor's current buffer is already known to carry the same content
// as the CRDT modulo line-ending style — picking up the editor's own
// style rather than whatever the CRDT's LF-only content would imply.
func (d *Document) Seed(nativeText string) {
	d.text = nativeText
	d.hasCR = strings.ContainsRune(nativeText, '\r')
	d.lineIndex.Invalidate()
}

// UpdateFullText replaces the entire text mirror, for use by Resync. If
// push is true the CRDT's content is replaced wholesale too, inside one
// transaction.
func (d *Document) UpdateFullText(newText string, push bool) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	old := d.text
	d.lineIndex.Invalidate()
	d.text = newText
	if !push || d.crdt == nil {
		return nil
	}
	err := d.crdt.Transact(func(tx Tx) error {
		normOld := normalize(old, false)
		if len(normOld) > 0 {
			if err := tx.Delete(0, len(normOld)); err != nil {
				return err
			}
		}
		normNew := normalize(newText, false)
		if normNew != "" {
			if err := tx.Insert(0, normNew); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		d.text = old
		d.lineIndex.Invalidate()
		return fmt.Errorf("%w: %v", ErrCrdtTransactionFailed, err)
	}
	return nil
}

// TranslateDelta converts a CRDT delta, whose retain/insert/delete counts
// are in normalized offsets against the document's current content, into
// a list of native-offset Changes. Inserted text is rewritten to the
// document's current line-ending style. InsertEmbedded ops are dropped —
// they carry no text and have no native-offset effect.
func (d *Document) TranslateDelta(delta []DeltaOp) []Change {
	var changes []Change
	pos := 0
	for _, op := range delta {
		switch op.Kind {
		case DeltaRetain:
			pos += op.N
		case DeltaInsert:
			at := d.OriginalOffset(pos)
			changes = append(changes, Change{
				Start: uint32(at),
				End:   uint32(at),
				Text:  normalize(op.Text, d.hasCR),
			})
		case DeltaDelete:
			start := d.OriginalOffset(pos)
			end := d.OriginalOffset(pos + op.N)
			changes = append(changes, Change{Start: uint32(start), End: uint32(end), Text: ""})
			pos += op.N
		case DeltaInsertEmbedded:
			// Carried opaquely by the CRDT adapter; the core has no text
			// representation for it.
		}
	}
	return changes
}

// RefreshHasCR recomputes the line-ending flag from the current text. The
// Sync Engine calls this right before translating an inbound remote delta
// so that inserted text picks up whatever style the editor most recently
// used.
func (d *Document) RefreshHasCR() {
	d.hasCR = strings.ContainsRune(d.text, '\r')
}

// Close unsubscribes the CRDT observer. After Close, Update and
// UpdateFullText return ErrObserverDisposed; Text, HasCR and the offset
// and position conversions keep answering from the last text mirror.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.unsubscribe != nil {
		d.unsubscribe()
	}
	return nil
}
