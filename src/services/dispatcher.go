// backend/src/services/dispatcher.go
package services

import (
	"sync"

	"github.com/google/uuid"

	"github.com/statify/backend/src/logger"
)

// ingestionJob is one unit of upload-processing work.
type ingestionJob struct {
	uploadID uuid.UUID
	content  []byte
}

// Dispatcher is a bounded worker pool for ingestion jobs. Callers enqueue
// and walk away; the upload's persisted status is the only completion
// signal. An upload id already in flight cannot be enqueued again until its
// job finishes, which guards against double-dispatch.
type Dispatcher struct {
	jobs    chan ingestionJob
	handler func(uploadID uuid.UUID, content []byte)
	wg      sync.WaitGroup

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
	closed   bool
}

// NewDispatcher creates a dispatcher with the given worker count and queue
// depth and starts its workers.
func NewDispatcher(workers, queueSize int, handler func(uploadID uuid.UUID, content []byte)) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		jobs:     make(chan ingestionJob, queueSize),
		handler:  handler,
		inFlight: make(map[uuid.UUID]struct{}),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Enqueue submits an upload for processing. It never blocks: a full queue
// returns ErrQueueFull, and an id still in flight returns
// ErrAlreadyProcessing.
func (d *Dispatcher) Enqueue(uploadID uuid.UUID, content []byte) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrQueueFull
	}
	if _, busy := d.inFlight[uploadID]; busy {
		d.mu.Unlock()
		return ErrAlreadyProcessing
	}
	d.inFlight[uploadID] = struct{}{}
	d.mu.Unlock()

	select {
	case d.jobs <- ingestionJob{uploadID: uploadID, content: content}:
		return nil
	default:
		d.release(uploadID)
		logger.L.Warn("Ingestion queue full, rejecting job", "uploadID", uploadID)
		return ErrQueueFull
	}
}

// Close stops accepting work and waits for in-flight jobs to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()
	close(d.jobs)
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.handler(job.uploadID, job.content)
		d.release(job.uploadID)
	}
}

func (d *Dispatcher) release(uploadID uuid.UUID) {
	d.mu.Lock()
	delete(d.inFlight, uploadID)
	d.mu.Unlock()
}
