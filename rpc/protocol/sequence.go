package protocol

import "sync/atomic"

// SequenceGenerator hands out sequence ids. The first id is 1, after
// 2^32-1 ids the counter wraps around.
type SequenceGenerator struct {
	last atomic.Uint32
}

// Next returns the next id, safe for concurrent use
func (g *SequenceGenerator) Next() uint32 {
	return g.last.Add(1)
}

var defaultSequence SequenceGenerator

// NextSequenceID returns the next id of the process wide generator
func NextSequenceID() uint32 {
	return defaultSequence.Next()
}
