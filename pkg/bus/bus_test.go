package bus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMessageRoundTrip(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	in := Envelope{Provider: "telegram", Payload: json.RawMessage(`{"text":"hello"}`)}
	if ok := mb.PublishMessage(context.Background(), in); !ok {
		t.Fatal("expected message publish to succeed")
	}

	out, ok := mb.ConsumeMessage(context.Background())
	if !ok {
		t.Fatal("expected message consume to succeed")
	}
	if out.Provider != in.Provider {
		t.Fatalf("provider = %q, want %q", out.Provider, in.Provider)
	}
	if string(out.Payload) != string(in.Payload) {
		t.Fatalf("payload = %s, want %s", out.Payload, in.Payload)
	}
}

func TestEventRoundTrip(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	in := Envelope{Provider: "webhook", Payload: json.RawMessage(`{"event":"init"}`)}
	if ok := mb.PublishEvent(context.Background(), in); !ok {
		t.Fatal("expected event publish to succeed")
	}

	out, ok := mb.ConsumeEvent(context.Background())
	if !ok {
		t.Fatal("expected event consume to succeed")
	}
	if string(out.Payload) != string(in.Payload) {
		t.Fatalf("payload = %s, want %s", out.Payload, in.Payload)
	}
}

func TestTopicsAreIndependent(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	if ok := mb.PublishEvent(context.Background(), Envelope{Provider: "telegram"}); !ok {
		t.Fatal("expected event publish to succeed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, ok := mb.ConsumeMessage(ctx); ok {
		t.Fatal("expected no delivery on the messages topic")
	}
}

func TestMessageOrderPreserved(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	for _, id := range []string{"1", "2", "3"} {
		if ok := mb.PublishMessage(context.Background(), Envelope{Provider: id}); !ok {
			t.Fatalf("publish %s failed", id)
		}
	}

	for _, want := range []string{"1", "2", "3"} {
		out, ok := mb.ConsumeMessage(context.Background())
		if !ok {
			t.Fatal("expected consume to succeed")
		}
		if out.Provider != want {
			t.Fatalf("provider = %q, want %q", out.Provider, want)
		}
	}
}

func TestCloseStopsBusOperations(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()

	if ok := mb.PublishMessage(context.Background(), Envelope{}); ok {
		t.Fatal("expected message publish to fail after close")
	}
	if ok := mb.PublishEvent(context.Background(), Envelope{}); ok {
		t.Fatal("expected event publish to fail after close")
	}
	if _, ok := mb.ConsumeMessage(context.Background()); ok {
		t.Fatal("expected message consume to stop after close")
	}
	if _, ok := mb.ConsumeEvent(context.Background()); ok {
		t.Fatal("expected event consume to stop after close")
	}
}

func TestContextCancellation(t *testing.T) {
	mb := NewMessageBus()
	t.Cleanup(mb.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if ok := mb.PublishMessage(ctx, Envelope{}); ok {
		t.Fatal("expected publish to fail on canceled context")
	}
	if _, ok := mb.ConsumeMessage(ctx); ok {
		t.Fatal("expected consume to fail on canceled context")
	}
}

func TestConsumeUnblocksOnClose(t *testing.T) {
	mb := NewMessageBus()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = mb.ConsumeMessage(context.Background())
	}()

	mb.Close()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("consume did not unblock after close")
	}
}
