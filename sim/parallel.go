package sim

import (
	"sync"
)

// parallelThreshold is the minimum item count to dispatch to workers.
// Below this, running on the calling goroutine is faster than the handoff.
const parallelThreshold = 64

// chunksPerWorker splits work finer than one chunk per worker so a few
// crowded cells do not leave the other workers idle.
const chunksPerWorker = 4

// chunkFunc processes items [start, end) on behalf of the given worker.
type chunkFunc func(worker, start, end int)

// workChunk represents a range of items for a worker to process.
type workChunk struct {
	start, end int
	fn         chunkFunc
}

// workerPool runs chunked phases on persistent goroutines. Each call to run
// is a full barrier: it returns only after every chunk has completed.
type workerPool struct {
	numWorkers int

	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool
}

func newWorkerPool(numWorkers int) *workerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &workerPool{numWorkers: numWorkers}
}

// start launches the worker goroutines.
func (p *workerPool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers*chunksPerWorker)
	p.doneChan = make(chan struct{}, p.numWorkers*chunksPerWorker)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// stop signals all workers to exit and waits for them.
func (p *workerPool) stop() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *workerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			chunk.fn(id, chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// run splits [0, n) into chunks, dispatches them and waits for all of them.
func (p *workerPool) run(n int, fn chunkFunc) {
	if n == 0 {
		return
	}
	if n < parallelThreshold || p.numWorkers == 1 {
		fn(0, 0, n)
		return
	}
	if !p.running {
		p.start()
	}

	chunks := min(p.numWorkers*chunksPerWorker, n)
	chunkSize := (n + chunks - 1) / chunks

	dispatched := 0
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		p.workChan <- workChunk{start: start, end: end, fn: fn}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}
