package sync

import "sort"

// Space selects which of the two offset spaces a LineIndex query operates
// in: the editor's native text (which may use CRLF) or the CRDT's
// normalized text (LF only).
type Space int

const (
	Native Space = iota
	Normalized
)

// lineEntry is one row of the line table: the byte offset at which a line
// starts, in both spaces. crlf records whether the newline terminating the
// *previous* line was "\r\n" rather than "\n" — needed to snap queries
// that land on the stripped "\r".
type lineEntry struct {
	nativeOffset     int
	normalizedOffset int
	crlf             bool
}

// LineIndex is a lazily computed, cheaply invalidated table mapping line
// numbers to native/normalized byte offsets. It holds no text of its own;
// textFn always returns the current native text of the owning document.
type LineIndex struct {
	textFn           func() string
	entries          []lineEntry
	nativeLength     int
	normalizedLength int
	valid            bool
}

// NewLineIndex builds a LineIndex over the text textFn returns. The table
// itself isn't computed until the first call to Offsets.
func NewLineIndex(textFn func() string) *LineIndex {
	return &LineIndex{textFn: textFn}
}

// Invalidate drops the cached table. The next call to any query method
// rebuilds it from the current text.
func (li *LineIndex) Invalidate() {
	li.valid = false
	li.entries = nil
}

// Offsets returns the cached line table, rebuilding it first if it was
// invalidated.
func (li *LineIndex) Offsets() []lineEntry {
	if !li.valid {
		li.rebuild()
	}
	return li.entries
}

func (li *LineIndex) rebuild() {
	text := li.textFn()
	entries := []lineEntry{{nativeOffset: 0, normalizedOffset: 0}}
	normOffset := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' {
			continue
		}
		crlf := i > 0 && text[i-1] == '\r'
		if crlf {
			normOffset++
		}
		entries = append(entries, lineEntry{
			nativeOffset:     i + 1,
			normalizedOffset: i + 1 - normOffset,
			crlf:             crlf,
		})
	}
	li.entries = entries
	li.nativeLength = len(text)
	li.normalizedLength = len(text) - normOffset
	li.valid = true
}

// Length returns the total length of the text in the given space.
func (li *LineIndex) Length(space Space) int {
	li.Offsets()
	if space == Native {
		return li.nativeLength
	}
	return li.normalizedLength
}

// findLine returns the index of the last entry whose offset (in the given
// space) is <= offset, clamped to the valid range of line indices.
func (li *LineIndex) findLine(offset int, space Space) int {
	entries := li.Offsets()
	get := func(e lineEntry) int {
		if space == Native {
			return e.nativeOffset
		}
		return e.normalizedOffset
	}
	idx := sort.Search(len(entries), func(i int) bool {
		return get(entries[i]) > offset
	}) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(entries) {
		idx = len(entries) - 1
	}
	return idx
}

// lineContent returns the text of line k with its terminator stripped,
// plus the native byte offset at which the line starts.
func (li *LineIndex) lineContent(k int) (content string, nativeStart int) {
	entries := li.Offsets()
	text := li.textFn()
	nativeStart = entries[k].nativeOffset
	end := li.nativeLength
	if k+1 < len(entries) {
		end = entries[k+1].nativeOffset
		if entries[k+1].crlf {
			end -= 2
		} else {
			end -= 1
		}
	}
	if end < nativeStart {
		end = nativeStart
	}
	return text[nativeStart:end], nativeStart
}

// OffsetAt returns the offset, in the given space, of a (line, character)
// position, clamped to [0, Length(space)].
func (li *LineIndex) OffsetAt(pos Position, space Space) int {
	entries := li.Offsets()
	if len(entries) == 0 {
		return 0
	}
	line := int(pos.Line)
	if line < 0 {
		return 0
	}
	if line >= len(entries) {
		return li.Length(space)
	}
	content, _ := li.lineContent(line)
	byteCol := ByteOffsetForUTF16Units(content, pos.Character)
	var lineStart int
	if space == Native {
		lineStart = entries[line].nativeOffset
	} else {
		lineStart = entries[line].normalizedOffset
	}
	total := lineStart + byteCol
	if max := li.Length(space); total > max {
		total = max
	}
	return total
}

// PositionAt converts a native byte offset to a (line, character)
// position. An offset that lands on an EOL byte (the "\r" of a CRLF
// terminator, or the "\n" itself) is pulled back to the end of the line's
// visible content, never before the start of the line.
func (li *LineIndex) PositionAt(nativeOffset int) Position {
	if nativeOffset < 0 {
		nativeOffset = 0
	}
	line := li.findLine(nativeOffset, Native)
	content, lineStart := li.lineContent(line)
	rel := nativeOffset - lineStart
	if rel < 0 {
		rel = 0
	}
	if rel > len(content) {
		rel = len(content)
	}
	character := UTF16UnitsForByteOffset(content, rel)
	return Position{Line: uint32(line), Character: character}
}

// FindLine returns the line index containing offset in the given space.
func (li *LineIndex) FindLine(offset int, space Space) int {
	return li.findLine(offset, space)
}

// OriginalOffset converts a normalized offset to the corresponding native
// offset.
func (li *LineIndex) OriginalOffset(n int) int {
	entries := li.Offsets()
	k := li.findLine(n, Normalized)
	return entries[k].nativeOffset + (n - entries[k].normalizedOffset)
}

// NormalizedOffset converts a native offset to the corresponding
// normalized offset. A native offset that lands between the stripped "\r"
// and the "\n" of a CRLF terminator has no representation in normalized
// space and snaps forward to the start of the next line.
func (li *LineIndex) NormalizedOffset(o int) int {
	entries := li.Offsets()
	k := li.findLine(o, Native)
	if k+1 < len(entries) && entries[k+1].crlf && o == entries[k+1].nativeOffset-1 {
		return entries[k+1].normalizedOffset
	}
	return entries[k].normalizedOffset + (o - entries[k].nativeOffset)
}
