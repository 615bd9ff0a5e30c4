package bus

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"codebot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestInMemoryBus_PublishSubscribe(t *testing.T) {
	b := New(Config{BufferSize: 2, Logger: testLogger()})
	b.Publish(domain.IncomingMessage{ID: 1, ChatID: 10, Text: "hi"})

	select {
	case msg := <-b.Subscribe():
		if msg.ID != 1 || msg.Text != "hi" {
			t.Fatalf("unexpected message %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestInMemoryBus_PreservesOrder(t *testing.T) {
	b := New(Config{BufferSize: 10, Logger: testLogger()})
	for i := 1; i <= 5; i++ {
		b.Publish(domain.IncomingMessage{ID: i})
	}
	for i := 1; i <= 5; i++ {
		if msg := <-b.Subscribe(); msg.ID != i {
			t.Fatalf("expected id %d, got %d", i, msg.ID)
		}
	}
}

func TestInMemoryBus_DropsAfterTimeoutWhenFull(t *testing.T) {
	b := New(Config{BufferSize: 1, PublishTimeout: 10 * time.Millisecond, Logger: testLogger()})

	b.Publish(domain.IncomingMessage{ID: 1})
	start := time.Now()
	b.Publish(domain.IncomingMessage{ID: 2}) // full: waits then drops
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("publish on a full bus should wait for the timeout")
	}

	if msg := <-b.Subscribe(); msg.ID != 1 {
		t.Fatalf("expected first message, got %d", msg.ID)
	}
	select {
	case msg := <-b.Subscribe():
		t.Fatalf("dropped message should not arrive, got %+v", msg)
	default:
	}
}

func TestInMemoryBus_CloseIsIdempotent(t *testing.T) {
	b := New(Config{BufferSize: 1, Logger: testLogger()})
	b.Close()
	b.Close()
	b.Publish(domain.IncomingMessage{ID: 1}) // must not panic

	if _, ok := <-b.Subscribe(); ok {
		t.Fatal("subscription should be closed")
	}
}

func TestNew_Defaults(t *testing.T) {
	b := New(Config{})
	if cap(b.inbound) != DefaultBufferSize || b.publishTimeout != DefaultPublishTimeout {
		t.Fatalf("unexpected defaults: cap=%d timeout=%v", cap(b.inbound), b.publishTimeout)
	}
}
