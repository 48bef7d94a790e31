// Package worker provides the fixed-size goroutine pool that executes
// pipeline runs off the HTTP request path.
package worker

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Pool runs submitted jobs on a fixed number of goroutines fed by a bounded
// queue. Submission never blocks the caller: when the queue is full the job
// is dropped and logged, and the durable job record (stuck in running past
// its TTL) surfaces the loss to polling clients.
type Pool struct {
	jobs chan func()
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool starts workers goroutines consuming from a queue of queueSize
// pending jobs. Both values are clamped to at least 1.
func NewPool(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	p := &Pool{jobs: make(chan func(), queueSize)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for job := range p.jobs {
				p.runOne(id, job)
			}
		}(i)
	}
	return p
}

// Submit enqueues job for execution. Submitting to a closed pool or a full
// queue drops the job.
func (p *Pool) Submit(job func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		log.Warn().Msg("job submitted to a closed worker pool, dropping")
		return
	}
	select {
	case p.jobs <- job:
	default:
		log.Warn().Int("queue_cap", cap(p.jobs)).Msg("worker queue full, dropping job")
	}
}

// Shutdown stops accepting new jobs and blocks until queued and in-flight
// jobs finish.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

// runOne isolates a single job so one panicking run cannot take down its
// worker goroutine.
func (p *Pool) runOne(workerID int, job func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Int("worker_id", workerID).Interface("panic", r).Msg("job panicked")
		}
	}()
	job()
}
