package engine

import "sync/atomic"

// sequence numbers events in arrival order. Edges that arrive in the same
// millisecond still get distinct, ordered values, so a log reader can
// reconstruct the order the dispatcher saw them in.
type sequence struct {
	n atomic.Int64
}

// next returns the next number. The first call returns 1.
func (s *sequence) next() int64 {
	return s.n.Add(1)
}

// last returns the most recently issued number, or 0 if none.
func (s *sequence) last() int64 {
	return s.n.Load()
}
