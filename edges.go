package relmem

import "fmt"

// maxEdges is the per-side cap on an edge set, matching libsc's 16-bit
// capacity field: it turns a runaway reference count into a reported
// AllocationFailure instead of silent unbounded growth.
const maxEdges = 65535

// edgeSet is an unordered multiset of Block references, including
// possibly-repeated nil entries (a nil entry represents the "null
// parent" root edge). Distinct entries pointing at the same Block are
// independent: two increfs from one parent create two entries, and one
// decref removes exactly one of them.
//
// Go's append already performs the amortized-doubling growth libsc's
// push() implements by hand over a realloc'd C array; edgeSet only adds
// the 65535 saturation check append doesn't know about.
type edgeSet struct {
	chunks []*Block
}

func (s *edgeSet) used() int { return len(s.chunks) }

func (s *edgeSet) push(b *Block) error {
	if len(s.chunks) >= maxEdges {
		return fmt.Errorf("relmem: edge set at capacity (%d): %w", maxEdges, ErrAllocationFailure)
	}
	s.chunks = append(s.chunks, b)
	return nil
}

// pop removes one occurrence of b, reporting whether one was found. It is
// a swap-remove: the matched slot is overwritten with the last entry, so
// iteration order over an edgeSet carries no meaning and must never be
// relied upon.
func (s *edgeSet) pop(b *Block) bool {
	for i, c := range s.chunks {
		if c == b {
			last := len(s.chunks) - 1
			s.chunks[i] = s.chunks[last]
			s.chunks[last] = nil
			s.chunks = s.chunks[:last]
			return true
		}
	}
	return false
}

func (s *edgeSet) contains(b *Block) bool {
	for _, c := range s.chunks {
		if c == b {
			return true
		}
	}
	return false
}

// countTag returns the number of entries whose far-end Block has tag set
// as its current tag. A nil far-end Block (a root edge) never matches.
func (s *edgeSet) countTag(tag string) int {
	n := 0
	for _, c := range s.chunks {
		if c == nil {
			continue
		}
		if got, ok := c.TagGet(); ok && got == tag {
			n++
		}
	}
	return n
}
