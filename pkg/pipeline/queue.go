// Package pipeline carries detected commands across the boundary to the
// external execution subsystem. The relay only hands requests over; running
// them is someone else's job.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"chatrelay/pkg/chat"
)

const defaultQueueDepth = 64

// Queue is a bounded handoff buffer implementing chat.PipelineInitializer.
//
// Submit transfers ownership of the request; the execution subsystem drains
// Requests at its own pace.
type Queue struct {
	requests chan chat.PipelineRequest

	done      chan struct{}
	closeOnce sync.Once
}

func NewQueue(depth int) *Queue {
	if depth <= 0 {
		depth = defaultQueueDepth
	}

	return &Queue{
		requests: make(chan chat.PipelineRequest, depth),
		done:     make(chan struct{}),
	}
}

// Submit enqueues one pipeline request without waiting for execution.
//
// A full queue is an error: blocking here would stall the router's message
// loop behind a slow pipeline consumer.
func (q *Queue) Submit(ctx context.Context, request chat.PipelineRequest) error {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return errors.New("pipeline queue is closed")
	default:
	}

	select {
	case q.requests <- request:
		return nil
	default:
		return errors.New("pipeline queue is full")
	}
}

// Requests exposes the drain side of the queue to the execution subsystem.
func (q *Queue) Requests() <-chan chat.PipelineRequest {
	return q.requests
}

// Close stops accepting new requests.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}
