package crdt

import zsync "zeta-sync/sync"

// rawOp is one mutation recorded while a batch of inserts/deletes runs,
// expressed in the offset space left behind by the ops before it — the
// same convention the rest of the module uses to describe a delta before
// it is folded into retain/insert/delete form.
type rawOp struct {
	insert bool
	offset int
	text   string
	length int
}

// deltaFromOps folds a list of sequential ops into a delta expressed
// against the text as it stood before any of them ran.
func deltaFromOps(ops []rawOp) []zsync.DeltaOp {
	var delta []zsync.DeltaOp
	cursor := 0
	shift := 0
	for _, op := range ops {
		orig := op.offset - shift
		if orig > cursor {
			delta = append(delta, zsync.DeltaOp{Kind: zsync.DeltaRetain, N: orig - cursor})
			cursor = orig
		}
		if op.insert {
			delta = append(delta, zsync.DeltaOp{Kind: zsync.DeltaInsert, Text: op.text})
			shift += len(op.text)
		} else {
			delta = append(delta, zsync.DeltaOp{Kind: zsync.DeltaDelete, N: op.length})
			cursor += op.length
			shift -= op.length
		}
	}
	return delta
}
