// Package queue provides a serialized task queue. The client runs every
// socket write through one queue so frames never interleave.
package queue

import (
	"sync"
)

type Error uint8

const (
	ErrQueueIsFull Error = iota + 1
	ErrQueueIsStopped
)

func (e Error) Error() string {
	switch e {
	case ErrQueueIsFull:
		return "queue is full"
	case ErrQueueIsStopped:
		return "queue is stopped"
	default:
		return "unknown error"
	}
}

type Queue struct {
	mu    sync.Mutex
	tasks chan func()
}

// New creates a queue executing tasks one at a time in submission order.
// length bounds how many tasks may be waiting at once.
func New(length int) *Queue {
	if length < 1 {
		panic("queue length must be at least 1")
	}
	q := &Queue{
		tasks: make(chan func(), length),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	for task := range q.tasks {
		task()
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close stops the worker once queued tasks drain. Push fails afterwards.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tasks != nil {
		close(q.tasks)
		q.tasks = nil
	}
}

// Push appends a task. It never blocks: a full queue returns ErrQueueIsFull.
func (q *Queue) Push(task func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tasks == nil {
		return ErrQueueIsStopped
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueIsFull
	}
}
