package relay

import (
	"context"
	"log/slog"
)

// Queue hands work from the webhook handler to the worker over a buffered
// channel. The handler enqueues and acknowledges the platform immediately;
// the single worker drains jobs in order, which keeps side effects of one
// delivery observably sequential.
type Queue struct {
	jobs   chan Job
	logger *slog.Logger
}

// NewQueue creates a queue with the given buffer size.
func NewQueue(log *slog.Logger, buffer int) *Queue {
	if log == nil {
		log = slog.Default()
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Queue{
		jobs:   make(chan Job, buffer),
		logger: log.With(slog.String("component", "queue")),
	}
}

// Enqueue offers a job without blocking. A full queue drops the job with a
// warning rather than stalling the webhook response past the platform's
// delivery timeout.
func (q *Queue) Enqueue(job Job) bool {
	select {
	case q.jobs <- job:
		return true
	default:
		q.logger.Warn("queue full, dropping event",
			slog.String("message_id", job.Event.MessageID),
			slog.String("kind", string(job.Event.Kind)))
		return false
	}
}

// Run drains the queue until ctx is cancelled, invoking process for each job.
// A failed job is logged and does not stop the worker: failures are contained
// per event.
func (q *Queue) Run(ctx context.Context, process func(context.Context, Job) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			if err := process(ctx, job); err != nil {
				q.logger.Error("relay failed",
					slog.String("message_id", job.Event.MessageID),
					slog.String("kind", string(job.Event.Kind)),
					slog.Any("error", err))
			}
		}
	}
}

// Close stops Run once the remaining jobs are drained.
func (q *Queue) Close() {
	close(q.jobs)
}
