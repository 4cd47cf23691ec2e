// Package crdt implements sync.CRDTText with an LSEQ-style sequence CRDT:
// every element carries a fractional identifier allocated strictly between
// its neighbors' identifiers. Each replica allocates identifiers locally
// when it applies an op, so replicas converge when they apply the same ops
// in the same order; applying them in different orders can leave them
// with different texts.
package crdt

import (
	"bytes"
	"math/rand"
)

const (
	idBase    = 1 << 15
	minDigit  = 0
	maxDigit  = idBase - 1
)

// ID is a position identifier: a variable-length path of base-32768 digits
// plus the replica that allocated it, used as the tiebreaker when two
// replicas independently allocate the same path.
type ID struct {
	Digits  []uint16
	Replica uint16
}

// Compare orders two IDs by digit path first, then by replica.
func (a ID) Compare(b ID) int {
	for i := 0; i < len(a.Digits) && i < len(b.Digits); i++ {
		if a.Digits[i] != b.Digits[i] {
			if a.Digits[i] < b.Digits[i] {
				return -1
			}
			return 1
		}
	}
	if len(a.Digits) != len(b.Digits) {
		if len(a.Digits) < len(b.Digits) {
			return -1
		}
		return 1
	}
	if a.Replica != b.Replica {
		if a.Replica < b.Replica {
			return -1
		}
		return 1
	}
	return 0
}

// Between allocates a new ID that sorts strictly after lo and before hi.
// lo == nil means "before everything", hi == nil means "after everything".
// The path follows lo's digits down to the first depth at which lo and hi
// leave a gap of more than one, and the digit there is chosen uniformly at
// random within that gap, so concurrent allocations by different replicas
// rarely choose the same path, and when they do, Replica breaks the tie
// deterministically.
func Between(lo, hi *ID, replica uint16, rnd *rand.Rand) ID {
	var left, right []uint16
	if lo != nil {
		left = lo.Digits
	}
	if hi != nil {
		right = hi.Digits
	}

	var path []uint16
	for depth := 0; ; depth++ {
		l := minDigit
		if depth < len(left) {
			l = int(left[depth])
		}
		r := maxDigit
		if depth < len(right) {
			r = int(right[depth])
		}
		if r-l > 1 {
			path = append(path, uint16(l+1+rnd.Intn(r-l-1)))
			break
		}
		path = append(path, uint16(l))
		if l != r {
			continue
		}
	}
	return ID{Digits: path, Replica: replica}
}

// Key returns a byte-string encoding of id suitable for use as a map key.
func Key(id ID) string {
	var buf bytes.Buffer
	for _, d := range id.Digits {
		buf.WriteByte(byte(d >> 8))
		buf.WriteByte(byte(d))
	}
	buf.WriteByte(byte(id.Replica >> 8))
	buf.WriteByte(byte(id.Replica))
	return buf.String()
}
