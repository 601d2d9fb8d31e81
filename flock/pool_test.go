package flock

import (
	"errors"
	"sync"
	"testing"
)

func TestBucketPoolAcquireRelease(t *testing.T) {
	p := NewBucketPool(3, 4)
	if p.Capacity() != 3 || p.Idle() != 3 {
		t.Fatalf("capacity=%d idle=%d, want 3/3", p.Capacity(), p.Idle())
	}

	var got []*Bucket
	for i := 0; i < 3; i++ {
		b, err := p.Acquire()
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		b.Append(int32(i))
		got = append(got, b)
	}
	if _, err := p.Acquire(); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}
	if p.Idle() != 0 {
		t.Errorf("idle = %d, want 0", p.Idle())
	}

	for _, b := range got {
		p.Release(b)
		if b.Len() != 0 {
			t.Error("released bucket not cleared")
		}
	}
	if p.Idle() != 3 {
		t.Errorf("idle after release = %d, want 3", p.Idle())
	}
}

func TestBucketPoolIgnoresBadRelease(t *testing.T) {
	p := NewBucketPool(2, 1)
	other := NewBucketPool(1, 1)

	b, _ := p.Acquire()
	p.Release(b)
	p.Release(b) // double
	p.Release(nil)
	ob, _ := other.Acquire()
	p.Release(ob) // foreign

	if p.Idle() != 2 {
		t.Errorf("idle = %d, want 2", p.Idle())
	}
}

func TestBucketPoolReusesStorage(t *testing.T) {
	p := NewBucketPool(1, 2)
	b, _ := p.Acquire()
	for i := 0; i < 100; i++ {
		b.Append(int32(i))
	}
	c := cap(b.Members)
	p.Release(b)
	b2, _ := p.Acquire()
	if b2 != b || cap(b2.Members) != c {
		t.Error("pool should hand back the same bucket with its grown storage")
	}
}

func TestSyncPoolConcurrent(t *testing.T) {
	const capacity = 64
	sp := NewSyncPool(NewBucketPool(capacity, 1))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				b, err := sp.Acquire()
				if err != nil {
					continue
				}
				b.AppendLocked(1)
				sp.Release(b)
			}
		}()
	}
	wg.Wait()

	if sp.Idle() != capacity {
		t.Errorf("idle = %d, want %d", sp.Idle(), capacity)
	}
}

func BenchmarkBucketPoolAcquireRelease(b *testing.B) {
	p := NewBucketPool(1024, 16)
	b.ReportAllocs()
	for n := 0; n < b.N; n++ {
		bk, _ := p.Acquire()
		p.Release(bk)
	}
}
