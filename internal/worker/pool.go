package worker

import (
	"context"
	"runtime"
	"sync"
)

// Job represents a unit of work to be processed
type Job interface {
	Process(ctx context.Context) error
	ID() string
}

// Result contains the outcome of processing a job
type Result struct {
	JobID string
	Error error
}

// Pool manages a pool of worker goroutines
type Pool struct {
	workerCount int
	jobs        chan Job
	results     chan Result
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewPool creates a new worker pool bound to ctx. Once ctx is cancelled,
// queued jobs are skipped and reported with the context error.
func NewPool(ctx context.Context, workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workerCount: workerCount,
		jobs:        make(chan Job, workerCount*2),
		results:     make(chan Result, workerCount*2),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins processing jobs
func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop waits for queued jobs to finish and closes the results channel.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
	p.cancel()
}

// Submit adds a job to the processing queue. Results must be drained
// concurrently, otherwise Submit blocks once the buffers fill. Every
// submitted job yields exactly one Result, including after cancellation.
func (p *Pool) Submit(job Job) {
	if err := p.ctx.Err(); err != nil {
		p.results <- Result{
			JobID: job.ID(),
			Error: err,
		}
		return
	}
	p.jobs <- job
}

// Results returns the results channel
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Run submits jobs, waits for all of them and returns their results in
// completion order.
func (p *Pool) Run(jobs []Job) []Result {
	p.Start()
	go func() {
		for _, job := range jobs {
			p.Submit(job)
		}
		p.Stop()
	}()

	results := make([]Result, 0, len(jobs))
	for result := range p.results {
		results = append(results, result)
	}
	return results
}

// worker processes jobs until the queue is closed. Jobs dequeued after
// cancellation are reported with the context error instead of running.
func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobs {
		if err := p.ctx.Err(); err != nil {
			p.results <- Result{
				JobID: job.ID(),
				Error: err,
			}
			continue
		}

		p.results <- Result{
			JobID: job.ID(),
			Error: job.Process(p.ctx),
		}
	}
}

// WorkerCount returns the number of workers in the pool
func (p *Pool) WorkerCount() int {
	return p.workerCount
}
