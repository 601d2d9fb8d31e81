package flock

import (
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"
)

// cellShard is one independently locked slice of the cell space.
type cellShard struct {
	mu        sync.RWMutex
	cells     map[CellID]*Bucket
	exhausted map[CellID]struct{}
	dropped   Drops

	// pad keeps neighbouring shard locks off the same cache line.
	_ [64]byte
}

// ConcurrentCellMap is a sharded CellMap whose Insert may be called from many
// goroutines during the population phase. First writer wins when two
// goroutines create the same cell.
type ConcurrentCellMap struct {
	hasher Hasher
	pool   *SyncPool
	shards []cellShard
	mask   uint64

	raceLosses atomic.Int64

	// acquired runs between Acquire and the shard write lock. Tests use it to
	// interleave inserts.
	acquired func(id CellID)
}

// NewConcurrentCellMap creates a map with shards rounded up to a power of two.
func NewConcurrentCellMap(h Hasher, pool *SyncPool, shards int) *ConcurrentCellMap {
	n := 1
	for n < shards {
		n <<= 1
	}
	m := &ConcurrentCellMap{
		hasher: h,
		pool:   pool,
		shards: make([]cellShard, n),
		mask:   uint64(n - 1),
	}
	per := defaultCellMapCapacity/n + 1
	for i := range m.shards {
		m.shards[i].cells = make(map[CellID]*Bucket, per)
		m.shards[i].exhausted = make(map[CellID]struct{})
	}
	return m
}

// Shards returns the shard count.
func (m *ConcurrentCellMap) Shards() int {
	return len(m.shards)
}

func (m *ConcurrentCellMap) shard(id CellID) *cellShard {
	return &m.shards[mix64(uint64(id)^0x2545F4914F6CDD1D)&m.mask]
}

// Insert hashes pos and appends idx to that cell's bucket.
// Safe for concurrent use. Returns ErrPoolExhausted when the cell was skipped.
func (m *ConcurrentCellMap) Insert(idx int32, pos r3.Vec) error {
	id := m.hasher.Hash(pos)
	s := m.shard(id)

	s.mu.RLock()
	b, ok := s.cells[id]
	s.mu.RUnlock()
	if ok {
		b.AppendLocked(idx)
		return nil
	}

	b, err := m.install(s, id)
	if err != nil {
		return err
	}
	b.AppendLocked(idx)
	return nil
}

// install returns the bucket associated with id, creating the association if
// needed. The pool is touched outside the shard lock.
func (m *ConcurrentCellMap) install(s *cellShard, id CellID) (*Bucket, error) {
	s.mu.RLock()
	_, skipped := s.exhausted[id]
	s.mu.RUnlock()

	var fresh *Bucket
	var acquireErr error
	if !skipped {
		fresh, acquireErr = m.pool.Acquire()
	}

	if m.acquired != nil {
		m.acquired(id)
	}

	s.mu.Lock()
	if winner, ok := s.cells[id]; ok {
		s.mu.Unlock()
		if fresh != nil {
			// Lost the race: hand our bucket back and join the winner's.
			m.pool.Release(fresh)
			m.raceLosses.Add(1)
		}
		return winner, nil
	}
	_, already := s.exhausted[id]
	if fresh == nil || already {
		// Once a cell is skipped it stays skipped for the tick, even if a
		// bucket came free after the first failed Acquire.
		if !already {
			s.exhausted[id] = struct{}{}
			s.dropped.Cells++
		}
		s.dropped.Agents++
		s.mu.Unlock()
		if fresh != nil {
			m.pool.Release(fresh)
		}
		if acquireErr == nil {
			acquireErr = ErrPoolExhausted
		}
		return nil, acquireErr
	}
	s.cells[id] = fresh
	s.mu.Unlock()
	return fresh, nil
}

// ForEachCell calls fn once per non-empty cell. It must only run after the
// population phase has finished; it takes no locks.
func (m *ConcurrentCellMap) ForEachCell(fn func(id CellID, b *Bucket)) {
	for i := range m.shards {
		for id, b := range m.shards[i].cells {
			if b.Len() == 0 {
				continue
			}
			fn(id, b)
		}
	}
}

// AppendCells appends every non-empty cell to dst, for dispatching one cell
// per work item across workers.
func (m *ConcurrentCellMap) AppendCells(dst []Cell) []Cell {
	for i := range m.shards {
		for id, b := range m.shards[i].cells {
			if b.Len() > 0 {
				dst = append(dst, Cell{ID: id, Bucket: b})
			}
		}
	}
	return dst
}

// Len returns the number of cells holding a bucket.
func (m *ConcurrentCellMap) Len() int {
	n := 0
	for i := range m.shards {
		n += len(m.shards[i].cells)
	}
	return n
}

// Members returns the number of agents across all buckets.
func (m *ConcurrentCellMap) Members() int {
	n := 0
	m.ForEachCell(func(_ CellID, b *Bucket) { n += b.Len() })
	return n
}

// Dropped reports cells and agents skipped since the last Clear.
func (m *ConcurrentCellMap) Dropped() Drops {
	var d Drops
	for i := range m.shards {
		d.Cells += m.shards[i].dropped.Cells
		d.Agents += m.shards[i].dropped.Agents
	}
	return d
}

// RaceLosses returns how many inserts lost a cell-creation race since the last Clear.
func (m *ConcurrentCellMap) RaceLosses() int64 {
	return m.raceLosses.Load()
}

// Clear releases every bucket and empties all shards. Single goroutine only.
func (m *ConcurrentCellMap) Clear() {
	for i := range m.shards {
		s := &m.shards[i]
		for _, b := range s.cells {
			m.pool.Release(b)
		}
		clear(s.cells)
		clear(s.exhausted)
		s.dropped = Drops{}
	}
	m.raceLosses.Store(0)
}
