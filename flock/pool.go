package flock

import "sync"

// Bucket holds the indices of the agents sharing one cell.
// It belongs to the pool while idle and to exactly one cell while checked out.
type Bucket struct {
	mu      sync.Mutex
	slot    int32
	out     bool
	Members []int32
}

// Len returns the number of members.
func (b *Bucket) Len() int {
	return len(b.Members)
}

// Append adds an agent index. Not safe for concurrent use.
func (b *Bucket) Append(idx int32) {
	b.Members = append(b.Members, idx)
}

// AppendLocked adds an agent index under the bucket's own lock.
func (b *Bucket) AppendLocked(idx int32) {
	b.mu.Lock()
	b.Members = append(b.Members, idx)
	b.mu.Unlock()
}

// Pool hands out and takes back buckets.
type Pool interface {
	Acquire() (*Bucket, error)
	Release(b *Bucket)
	Idle() int
	Capacity() int
}

// BucketPool is a fixed arena of buckets plus a stack of free slot indices.
// Acquire and Release are O(1) and never allocate. Not safe for concurrent use;
// wrap it in a SyncPool for that.
type BucketPool struct {
	buckets []Bucket
	free    []int32
}

// NewBucketPool pre-allocates capacity buckets, each able to hold bucketCap
// members before growing.
func NewBucketPool(capacity, bucketCap int) *BucketPool {
	if capacity < 0 {
		capacity = 0
	}
	if bucketCap < 1 {
		bucketCap = 1
	}
	p := &BucketPool{
		buckets: make([]Bucket, capacity),
		free:    make([]int32, capacity),
	}
	for i := range p.buckets {
		p.buckets[i].slot = int32(i)
		p.buckets[i].Members = make([]int32, 0, bucketCap)
		// Pop order hands out slot 0 first.
		p.free[i] = int32(capacity - 1 - i)
	}
	return p
}

// Acquire removes one idle bucket from the pool.
func (p *BucketPool) Acquire() (*Bucket, error) {
	n := len(p.free)
	if n == 0 {
		return nil, ErrPoolExhausted
	}
	slot := p.free[n-1]
	p.free = p.free[:n-1]
	b := &p.buckets[slot]
	b.out = true
	return b, nil
}

// Release clears b and returns it to the idle set.
// Nil, foreign and already-idle buckets are ignored.
func (p *BucketPool) Release(b *Bucket) {
	if b == nil || !b.out || !p.owns(b) {
		return
	}
	b.Members = b.Members[:0]
	b.out = false
	p.free = append(p.free, b.slot)
}

func (p *BucketPool) owns(b *Bucket) bool {
	return int(b.slot) < len(p.buckets) && &p.buckets[b.slot] == b
}

// Idle returns the number of buckets available to Acquire.
func (p *BucketPool) Idle() int {
	return len(p.free)
}

// Capacity returns the total number of buckets.
func (p *BucketPool) Capacity() int {
	return len(p.buckets)
}

// SyncPool serializes access to a BucketPool.
type SyncPool struct {
	mu   sync.Mutex
	pool *BucketPool
}

// NewSyncPool wraps p. Callers must not use p directly while the SyncPool is shared.
func NewSyncPool(p *BucketPool) *SyncPool {
	return &SyncPool{pool: p}
}

// Acquire removes one idle bucket from the pool.
func (s *SyncPool) Acquire() (*Bucket, error) {
	s.mu.Lock()
	b, err := s.pool.Acquire()
	s.mu.Unlock()
	return b, err
}

// Release clears b and returns it to the idle set.
func (s *SyncPool) Release(b *Bucket) {
	s.mu.Lock()
	s.pool.Release(b)
	s.mu.Unlock()
}

// Idle returns the number of idle buckets.
func (s *SyncPool) Idle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool.Idle()
}

// Capacity returns the total number of buckets.
func (s *SyncPool) Capacity() int {
	return s.pool.Capacity()
}
