package kafka

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingHandler struct {
	topic   string
	handled atomic.Int64
}

func (h *countingHandler) Topic() string { return h.topic }

func (h *countingHandler) Handle(context.Context, []byte) error {
	h.handled.Add(1)
	return nil
}

func TestConsumerStopDrainsQueuedMessages(t *testing.T) {
	handler := &countingHandler{topic: "scan-requests"}

	// The broker address is unreachable; readers spin on dial errors until
	// stopped, which is all this test needs.
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"127.0.0.1:1"}),
		WithConsumerGroupID("test"),
		WithConsumerWorkers(2),
		WithConsumerBufferSize(4),
	)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	c.RegisterHandler(handler)

	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	// A message already handed off by a reader must still be processed
	// during shutdown.
	c.msgChan <- &message{topic: "scan-requests", data: []byte(`{"instruments":[]}`)}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if got := handler.handled.Load(); got != 1 {
		t.Fatalf("expected queued message to be handled once, got %d", got)
	}

	// Stop is idempotent.
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
