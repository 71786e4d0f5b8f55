package device

import "sync"

// Queue is an ordered stream of asynchronous device operations, the Go
// rendering of a CUDA stream / OpenCL command queue. Operations enqueued on
// the same queue run in issue order; operations on different queues have no
// ordering relationship. Sync is the only call that blocks.
//
// Errors from enqueued operations are sticky: the first failure since the
// last Sync is retained and returned (then cleared) by the next Sync.
type Queue struct {
	dev Device
	ops chan queueOp

	mu  sync.Mutex
	err error
}

type queueOp struct {
	run  func() error
	done chan struct{} // non-nil only for sync markers
}

// NewQueue creates an independent command queue issuing work against dev.
func NewQueue(dev Device) *Queue {
	q := &Queue{
		dev: dev,
		ops: make(chan queueOp, 64),
	}
	go q.worker()
	return q
}

func (q *Queue) worker() {
	for op := range q.ops {
		if op.run != nil {
			if err := op.run(); err != nil {
				q.mu.Lock()
				if q.err == nil {
					q.err = err
				}
				q.mu.Unlock()
			}
		}
		if op.done != nil {
			close(op.done)
		}
	}
}

// Device returns the device this queue issues work against.
func (q *Queue) Device() Device {
	return q.dev
}

// Enqueue schedules op to run after all previously enqueued operations.
// It returns without waiting for op to complete.
func (q *Queue) Enqueue(op func() error) {
	q.ops <- queueOp{run: op}
}

// Sync blocks until every operation enqueued before the call has completed,
// then reports the first error any of them produced.
func (q *Queue) Sync() error {
	done := make(chan struct{})
	q.ops <- queueOp{done: done}
	<-done

	q.mu.Lock()
	err := q.err
	q.err = nil
	q.mu.Unlock()
	return err
}

// Close drains the queue and stops its worker. The queue must not be used
// after Close.
func (q *Queue) Close() {
	close(q.ops)
}
