package flock

import "gonum.org/v1/gonum/spatial/r3"

// defaultCellMapCapacity sizes the map for a typical population so early
// ticks do not rehash.
const defaultCellMapCapacity = 4096

// Cell is one populated grid cell for the current tick.
type Cell struct {
	ID     CellID
	Bucket *Bucket
}

// Drops counts what a tick lost to pool exhaustion.
type Drops struct {
	Cells  int
	Agents int
}

// CellMap groups agents by cell. Rebuilt every tick, single goroutine only.
type CellMap struct {
	hasher Hasher
	pool   Pool
	cells  map[CellID]*Bucket

	// exhausted remembers cells that could not get a bucket this tick so each
	// is reported once and later agents skip the pool.
	exhausted map[CellID]struct{}
	dropped   Drops
}

// NewCellMap creates a map drawing buckets from pool.
func NewCellMap(h Hasher, pool Pool) *CellMap {
	return &CellMap{
		hasher:    h,
		pool:      pool,
		cells:     make(map[CellID]*Bucket, defaultCellMapCapacity),
		exhausted: make(map[CellID]struct{}),
	}
}

// Insert hashes pos and appends idx to that cell's bucket, checking out a
// bucket on first use. Returns ErrPoolExhausted when the cell had to be skipped.
func (m *CellMap) Insert(idx int32, pos r3.Vec) error {
	id := m.hasher.Hash(pos)
	b, ok := m.cells[id]
	if !ok {
		if _, skipped := m.exhausted[id]; skipped {
			m.dropped.Agents++
			return ErrPoolExhausted
		}
		var err error
		b, err = m.pool.Acquire()
		if err != nil {
			m.exhausted[id] = struct{}{}
			m.dropped.Cells++
			m.dropped.Agents++
			return err
		}
		m.cells[id] = b
	}
	b.Append(idx)
	return nil
}

// ForEachCell calls fn once per non-empty cell, in unspecified order.
func (m *CellMap) ForEachCell(fn func(id CellID, b *Bucket)) {
	for id, b := range m.cells {
		if b.Len() == 0 {
			continue
		}
		fn(id, b)
	}
}

// AppendCells appends every non-empty cell to dst.
func (m *CellMap) AppendCells(dst []Cell) []Cell {
	for id, b := range m.cells {
		if b.Len() > 0 {
			dst = append(dst, Cell{ID: id, Bucket: b})
		}
	}
	return dst
}

// Len returns the number of cells holding a bucket.
func (m *CellMap) Len() int {
	return len(m.cells)
}

// Members returns the number of agents across all buckets.
func (m *CellMap) Members() int {
	n := 0
	for _, b := range m.cells {
		n += b.Len()
	}
	return n
}

// Dropped reports cells and agents skipped since the last Clear.
func (m *CellMap) Dropped() Drops {
	return m.dropped
}

// Clear releases every bucket back to the pool and empties the map.
// The builtin clear keeps the map's storage for the next tick.
func (m *CellMap) Clear() {
	for _, b := range m.cells {
		m.pool.Release(b)
	}
	clear(m.cells)
	clear(m.exhausted)
	m.dropped = Drops{}
}
