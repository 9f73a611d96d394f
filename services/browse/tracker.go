package browse

import "sync/atomic"

// Tracker numbers outgoing requests so that a response can be dropped when a
// newer request was issued after it.
type Tracker struct {
	generation atomic.Uint64
}

// Next starts a new generation and returns its number.
func (t *Tracker) Next() uint64 {
	return t.generation.Add(1)
}

func (t *Tracker) IsLatest(generation uint64) bool {
	return t.generation.Load() == generation
}
