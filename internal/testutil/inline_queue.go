package testutil

import (
	"context"
	"sync"

	"github.com/settlehq/settle/internal/worker"
)

// InlineQueue runs submitted jobs synchronously and keeps their errors
type InlineQueue struct {
	mu     sync.Mutex
	Jobs   []string
	Errors []error
	// Attempts is how often a job failing with a retryable error runs, once when zero
	Attempts int
}

var _ worker.Queue = (*InlineQueue)(nil)

func NewInlineQueue() *InlineQueue {
	return &InlineQueue{}
}

func (q *InlineQueue) Submit(ctx context.Context, job *worker.Job) error {
	var err error
	for attempt := 0; attempt < max(q.Attempts, 1); attempt++ {
		if err = job.Run(ctx); err == nil || !worker.Retryable(err) {
			break
		}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Jobs = append(q.Jobs, job.Name)
	if err != nil {
		q.Errors = append(q.Errors, err)
	}
	return nil
}
