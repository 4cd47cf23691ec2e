package crdt

import "unicode/utf8"

// byteIndex returns the index into elems of the visible element currently
// occupying byte offset byteOffset of the visible text, walking elems and
// accumulating the UTF-8 length of each visible rune as it goes. If
// byteOffset lands at the end of the visible text, it returns len(elems).
// sync.CRDTText's offsets are always byte offsets into normalized (LF)
// text, so every public entry point converts through this before touching
// elems by slice index.
func byteIndex(elems []*element, byteOffset int) int {
	bytePos := 0
	for i, e := range elems {
		if e.deleted {
			continue
		}
		if bytePos == byteOffset {
			return i
		}
		bytePos += utf8.RuneLen(e.ch)
	}
	return len(elems)
}

// neighborIDs returns the IDs of the element immediately before byte
// offset pos (visible or tombstoned) and of the visible element at pos, or
// nil where there is no such neighbor.
func neighborIDs(elems []*element, pos int) (left, right *ID) {
	idx := byteIndex(elems, pos)
	if idx > 0 {
		id := elems[idx-1].id
		left = &id
	}
	if idx < len(elems) {
		id := elems[idx].id
		right = &id
	}
	return left, right
}

// insertText splices the runes of text into t.elems as new visible elements
// starting at byte offset pos, each allocated an ID strictly between its
// immediate left neighbor (the previous new element, or whatever already
// occupied that position) and the element that currently sits at pos.
func (t *Text) insertText(pos int, text string) {
	if text == "" {
		return
	}
	left, right := neighborIDs(t.elems, pos)
	insertIdx := byteIndex(t.elems, pos)

	newElems := make([]*element, 0, len(text))
	for _, r := range text {
		id := Between(left, right, t.replica, t.rnd)
		e := &element{id: id, ch: r}
		newElems = append(newElems, e)
		left = &e.id
	}

	tail := make([]*element, len(t.elems)-insertIdx)
	copy(tail, t.elems[insertIdx:])
	t.elems = append(t.elems[:insertIdx:insertIdx], append(newElems, tail...)...)
}

// deleteText marks as many consecutive visible elements starting at byte
// offset pos as tombstoned as it takes to account for length bytes. The
// element is kept, not removed, so its ID remains a valid Between neighbor
// for any insert that targets the same gap once it has been seen by every
// replica.
func (t *Text) deleteText(pos, length int) {
	remaining := length
	for remaining > 0 {
		idx := byteIndex(t.elems, pos)
		if idx >= len(t.elems) {
			return
		}
		e := t.elems[idx]
		e.deleted = true
		remaining -= utf8.RuneLen(e.ch)
	}
}

// cloneElems deep-copies elems so a failed transaction can restore exactly
// the tombstone state it started with.
func cloneElems(elems []*element) []*element {
	out := make([]*element, len(elems))
	for i, e := range elems {
		cp := *e
		out[i] = &cp
	}
	return out
}
