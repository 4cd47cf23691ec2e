package sync

import "unicode/utf16"

// utf16Width returns the number of UTF-16 code units r encodes as: 1 for
// everything in the basic multilingual plane, 2 for anything requiring a
// surrogate pair.
func utf16Width(r rune) int {
	if r1, r2 := utf16.EncodeRune(r); r1 == 0xFFFD && r2 == 0xFFFD {
		return 1
	}
	if r > 0xFFFF {
		return 2
	}
	return 1
}

// ByteOffsetForUTF16Units walks line counting UTF-16 code units and
// returns the byte offset at which units of them have been consumed,
// clamped to len(line). This is the piece of column math a naive
// byte-counting position converter gets wrong on any line containing
// runes outside the basic multilingual plane or multi-byte UTF-8
// sequences.
func ByteOffsetForUTF16Units(line string, units uint32) int {
	var consumed uint32
	for i, r := range line {
		if consumed >= units {
			return i
		}
		consumed += uint32(utf16Width(r))
	}
	return len(line)
}

// UTF16UnitsForByteOffset is the inverse of ByteOffsetForUTF16Units: it
// returns the number of UTF-16 code units the runes in line[:byteOffset]
// encode as.
func UTF16UnitsForByteOffset(line string, byteOffset int) uint32 {
	if byteOffset > len(line) {
		byteOffset = len(line)
	}
	var units uint32
	for i, r := range line {
		if i >= byteOffset {
			break
		}
		units += uint32(utf16Width(r))
	}
	return units
}
