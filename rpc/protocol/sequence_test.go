package protocol

import (
	"math"
	"sync"
	"testing"
)

// TestSequenceUnique tests that concurrent callers never receive the same id
func TestSequenceUnique(t *testing.T) {
	const goroutines = 1000
	const perGoroutine = 20

	var g SequenceGenerator
	var seen sync.Map
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id := g.Next()
				if _, dup := seen.LoadOrStore(id, struct{}{}); dup {
					t.Errorf("Duplicate sequence id %d", id)
				}
			}
		}()
	}
	wg.Wait()

	if last := g.Next(); last != goroutines*perGoroutine+1 {
		t.Errorf("Expected next id %d, got %d", goroutines*perGoroutine+1, last)
	}
}

// TestSequenceStartsAtOne tests the first id
func TestSequenceStartsAtOne(t *testing.T) {
	var g SequenceGenerator
	if id := g.Next(); id != 1 {
		t.Errorf("Expected first id 1, got %d", id)
	}
}

// TestSequenceWraps tests that the counter wraps around at 2^32
func TestSequenceWraps(t *testing.T) {
	var g SequenceGenerator
	g.last.Store(math.MaxUint32 - 1)

	if id := g.Next(); id != math.MaxUint32 {
		t.Errorf("Expected %d, got %d", uint32(math.MaxUint32), id)
	}
	if id := g.Next(); id != 0 {
		t.Errorf("Expected wrap to 0, got %d", id)
	}
}

// TestNextSequenceID tests the process wide generator
func TestNextSequenceID(t *testing.T) {
	a, b := NextSequenceID(), NextSequenceID()
	if a == b {
		t.Errorf("Expected distinct ids, got %d twice", a)
	}
}
