package viewmodel

import "sync/atomic"

// Sequence numbers the fetches issued by one view-model so that a
// response arriving after a newer request was issued can be dropped.
type Sequence struct {
	last atomic.Uint64
}

// Next issues a new request number.
func (s *Sequence) Next() uint64 {
	return s.last.Add(1)
}

// Current reports whether n is the latest issued number.
func (s *Sequence) Current(n uint64) bool {
	return s.last.Load() == n
}
