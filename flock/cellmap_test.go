package flock

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func randomAgents(rng *rand.Rand, n int, spread float64) []Agent {
	agents := make([]Agent, n)
	for i := range agents {
		agents[i] = Agent{
			Position: r3.Vec{
				X: (rng.Float64()*2 - 1) * spread,
				Y: (rng.Float64()*2 - 1) * spread,
				Z: (rng.Float64()*2 - 1) * spread,
			},
			Heading: r3.Vec{Z: 1},
		}
	}
	return agents
}

// checkMembership verifies every agent sits in exactly one bucket exactly once.
func checkMembership(t *testing.T, n int, forEach func(func(CellID, *Bucket))) {
	t.Helper()
	seen := make([]int, n)
	forEach(func(_ CellID, b *Bucket) {
		for _, idx := range b.Members {
			seen[idx]++
		}
	})
	for i, c := range seen {
		if c != 1 {
			t.Fatalf("agent %d appears %d times", i, c)
		}
	}
}

func TestCellMapConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, n := range []int{0, 1, 17, 1000} {
		for _, radius := range []float64{0.5, 4, 50, 1e6} {
			agents := randomAgents(rng, n, 100)
			h, _ := NewHasher(radius)
			pool := NewBucketPool(n+1, 8)
			m := NewCellMap(h, pool)

			for i := range agents {
				if err := m.Insert(int32(i), agents[i].Position); err != nil {
					t.Fatalf("insert: %v", err)
				}
			}
			if m.Members() != n {
				t.Fatalf("n=%d radius=%v: members = %d", n, radius, m.Members())
			}
			checkMembership(t, n, m.ForEachCell)
			if pool.Idle()+m.Len() != pool.Capacity() {
				t.Fatalf("idle %d + cells %d != capacity %d", pool.Idle(), m.Len(), pool.Capacity())
			}

			m.Clear()
			if pool.Idle() != pool.Capacity() || m.Len() != 0 {
				t.Fatalf("after clear: idle=%d len=%d", pool.Idle(), m.Len())
			}
		}
	}
}

func TestCellMapSameCellSharesBucket(t *testing.T) {
	h, _ := NewHasher(10)
	m := NewCellMap(h, NewBucketPool(4, 4))
	_ = m.Insert(0, r3.Vec{X: 1, Y: 1, Z: 1})
	_ = m.Insert(1, r3.Vec{X: 9, Y: 2, Z: 0.5})
	_ = m.Insert(2, r3.Vec{X: 11})

	cells := m.AppendCells(nil)
	if len(cells) != 2 {
		t.Fatalf("cells = %d, want 2", len(cells))
	}
	sizes := map[int]bool{}
	for _, c := range cells {
		sizes[c.Bucket.Len()] = true
	}
	if !sizes[1] || !sizes[2] {
		t.Errorf("bucket sizes = %v, want {1,2}", sizes)
	}
}

func TestCellMapPoolExhausted(t *testing.T) {
	h, _ := NewHasher(1)
	pool := NewBucketPool(1, 4)
	m := NewCellMap(h, pool)

	if err := m.Insert(0, r3.Vec{X: 0.5}); err != nil {
		t.Fatal(err)
	}
	if err := m.Insert(1, r3.Vec{X: 5.5}); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("want ErrPoolExhausted, got %v", err)
	}
	if err := m.Insert(2, r3.Vec{X: 5.7}); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("want ErrPoolExhausted, got %v", err)
	}

	d := m.Dropped()
	if d.Cells != 1 || d.Agents != 2 {
		t.Errorf("dropped = %+v, want 1 cell, 2 agents", d)
	}
	if m.Members() != 1 {
		t.Errorf("members = %d, want 1", m.Members())
	}

	m.Clear()
	if m.Dropped() != (Drops{}) || pool.Idle() != 1 {
		t.Errorf("clear did not reset: %+v idle=%d", m.Dropped(), pool.Idle())
	}
}

func TestConcurrentCellMapConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const n = 5000
	agents := randomAgents(rng, n, 60)

	for _, radius := range []float64{1, 8, 1000} {
		h, _ := NewHasher(radius)
		pool := NewSyncPool(NewBucketPool(n, 8))
		m := NewConcurrentCellMap(h, pool, 16)

		const workers = 8
		var wg sync.WaitGroup
		chunk := (n + workers - 1) / workers
		for w := 0; w < workers; w++ {
			start, end := w*chunk, min((w+1)*chunk, n)
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := start; i < end; i++ {
					if err := m.Insert(int32(i), agents[i].Position); err != nil {
						t.Errorf("insert: %v", err)
					}
				}
			}()
		}
		wg.Wait()

		if m.Members() != n {
			t.Fatalf("radius %v: members = %d, want %d", radius, m.Members(), n)
		}
		checkMembership(t, n, m.ForEachCell)
		if pool.Idle()+m.Len() != pool.Capacity() {
			t.Fatalf("idle %d + cells %d != capacity %d", pool.Idle(), m.Len(), pool.Capacity())
		}

		m.Clear()
		if pool.Idle() != pool.Capacity() {
			t.Fatalf("after clear idle = %d", pool.Idle())
		}
	}
}

// Every goroutine races to create the same cell; exactly one bucket must win
// and all losers' buckets must return to the pool.
func TestConcurrentCellMapFirstWriterWins(t *testing.T) {
	h, _ := NewHasher(100)
	pool := NewSyncPool(NewBucketPool(64, 4))
	m := NewConcurrentCellMap(h, pool, 4)

	const goroutines = 32
	var start sync.WaitGroup
	var done sync.WaitGroup
	start.Add(1)
	for g := 0; g < goroutines; g++ {
		done.Add(1)
		go func(idx int32) {
			defer done.Done()
			start.Wait()
			if err := m.Insert(idx, r3.Vec{X: 1, Y: 2, Z: 3}); err != nil {
				t.Errorf("insert: %v", err)
			}
		}(int32(g))
	}
	start.Done()
	done.Wait()

	if m.Len() != 1 {
		t.Fatalf("cells = %d, want 1", m.Len())
	}
	if m.Members() != goroutines {
		t.Fatalf("members = %d, want %d", m.Members(), goroutines)
	}
	if pool.Idle() != pool.Capacity()-1 {
		t.Errorf("idle = %d, want %d (losers must release)", pool.Idle(), pool.Capacity()-1)
	}
}

func TestConcurrentCellMapPoolExhausted(t *testing.T) {
	h, _ := NewHasher(1)
	pool := NewSyncPool(NewBucketPool(1, 4))
	m := NewConcurrentCellMap(h, pool, 2)

	if err := m.Insert(0, r3.Vec{X: 0.5}); err != nil {
		t.Fatal(err)
	}
	if err := m.Insert(1, r3.Vec{X: 9.5}); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("want ErrPoolExhausted, got %v", err)
	}
	if err := m.Insert(2, r3.Vec{X: 0.1}); err != nil {
		t.Fatalf("existing cell should still accept: %v", err)
	}
	if d := m.Dropped(); d.Cells != 1 || d.Agents != 1 {
		t.Errorf("dropped = %+v", d)
	}
}

// An insert that acquired a bucket must not revive a cell another insert
// already marked exhausted while the first was between Acquire and the lock.
func TestConcurrentCellMapExhaustedCellStaysSkipped(t *testing.T) {
	h, _ := NewHasher(1)
	arena := NewBucketPool(1, 4)
	pool := NewSyncPool(arena)
	m := NewConcurrentCellMap(h, pool, 2)

	var interleaved bool
	var innerErr error
	m.acquired = func(CellID) {
		if interleaved {
			return
		}
		interleaved = true
		// The outer insert holds the only bucket, so this one finds the pool
		// empty and marks the cell exhausted before the outer one locks.
		innerErr = m.Insert(1, r3.Vec{X: 0.2})
	}

	err := m.Insert(0, r3.Vec{X: 0.5})
	if !errors.Is(innerErr, ErrPoolExhausted) {
		t.Fatalf("interleaved insert: want ErrPoolExhausted, got %v", innerErr)
	}
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("outer insert: want ErrPoolExhausted, got %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("exhausted cell holds a bucket: len = %d", m.Len())
	}
	if d := m.Dropped(); d.Cells != 1 || d.Agents != 2 {
		t.Errorf("dropped = %+v, want 1 cell and 2 agents", d)
	}
	if arena.Idle() != 1 {
		t.Errorf("idle = %d, want the acquired bucket returned", arena.Idle())
	}

	m.acquired = nil
	m.Clear()
	if err := m.Insert(2, r3.Vec{X: 0.5}); err != nil {
		t.Errorf("cell should be usable after Clear: %v", err)
	}
}

func TestConcurrentCellMapShardsPowerOfTwo(t *testing.T) {
	h, _ := NewHasher(1)
	m := NewConcurrentCellMap(h, NewSyncPool(NewBucketPool(1, 1)), 5)
	if m.Shards() != 8 {
		t.Errorf("shards = %d, want 8", m.Shards())
	}
}

func BenchmarkCellMapInsert(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	agents := randomAgents(rng, 8192, 75)
	h, _ := NewHasher(8)
	m := NewCellMap(h, NewBucketPool(8192, 16))
	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		for i := range agents {
			_ = m.Insert(int32(i), agents[i].Position)
		}
		m.Clear()
	}
}
