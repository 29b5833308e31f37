package coinbase

type seqResult int

const (
	seqOK seqResult = iota
	seqDuplicate
	seqGap
)

// sequenceTracker validates stream contiguity for a single connection. The
// feed numbers every message of a product, so anything other than last+1
// means duplicated or lost messages.
type sequenceTracker struct {
	last uint64
}

// Observe records seq and classifies it. For a gap it returns the last
// contiguous sequence seen before the jump; the tracker re-anchors at seq
// either way, since recovery is a full reseed rather than a replay.
func (t *sequenceTracker) Observe(seq uint64) (seqResult, uint64) {
	switch {
	case t.last == 0:
		t.last = seq
		return seqOK, 0
	case seq <= t.last:
		return seqDuplicate, t.last
	case seq == t.last+1:
		t.last = seq
		return seqOK, 0
	default:
		prev := t.last
		t.last = seq
		return seqGap, prev
	}
}
