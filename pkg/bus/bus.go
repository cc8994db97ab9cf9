package bus

import (
	"context"
	"sync"
)

const defaultBufferSize = 100

// MessageBus is the in-process delivery path between providers and the router.
//
// Providers publish onto the messages and events topics; the router is the
// single consumer of both, which preserves delivery order per topic.
type MessageBus struct {
	messages chan Envelope
	events   chan Envelope

	done      chan struct{}
	closeOnce sync.Once
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		messages: make(chan Envelope, defaultBufferSize),
		events:   make(chan Envelope, defaultBufferSize),
		done:     make(chan struct{}),
	}
}

// PublishMessage enqueues one chat message envelope.
func (mb *MessageBus) PublishMessage(ctx context.Context, envelope Envelope) bool {
	return mb.publish(ctx, mb.channelFor(TopicMessages), envelope)
}

// ConsumeMessage blocks for the next chat message envelope.
func (mb *MessageBus) ConsumeMessage(ctx context.Context) (Envelope, bool) {
	return mb.consume(ctx, mb.channelFor(TopicMessages))
}

// PublishEvent enqueues one provider event envelope.
func (mb *MessageBus) PublishEvent(ctx context.Context, envelope Envelope) bool {
	return mb.publish(ctx, mb.channelFor(TopicEvents), envelope)
}

// ConsumeEvent blocks for the next provider event envelope.
func (mb *MessageBus) ConsumeEvent(ctx context.Context) (Envelope, bool) {
	return mb.consume(ctx, mb.channelFor(TopicEvents))
}

func (mb *MessageBus) channelFor(topic Topic) chan Envelope {
	if topic == TopicEvents {
		return mb.events
	}

	return mb.messages
}

func (mb *MessageBus) publish(ctx context.Context, topic chan Envelope, envelope Envelope) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return false
	case <-mb.done:
		return false
	default:
	}

	select {
	case <-ctx.Done():
		return false
	case <-mb.done:
		return false
	case topic <- envelope:
		return true
	}
}

func (mb *MessageBus) consume(ctx context.Context, topic chan Envelope) (Envelope, bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return Envelope{}, false
	case <-mb.done:
		return Envelope{}, false
	case envelope := <-topic:
		return envelope, true
	}
}

// Close stops all publish and consume operations.
func (mb *MessageBus) Close() {
	mb.closeOnce.Do(func() {
		close(mb.done)
	})
}
