package event

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus(testLogger())
	var received Event

	bus.Subscribe(TopicAlertAppended, func(ctx context.Context, e Event) {
		received = e
	})

	event := Event{
		Topic:     TopicAlertAppended,
		Source:    "state",
		Timestamp: time.Now(),
		Payload:   "ALR-001",
	}

	if err := bus.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if received.Topic != TopicAlertAppended {
		t.Errorf("received.Topic = %q, want %q", received.Topic, TopicAlertAppended)
	}
	if received.Payload != "ALR-001" {
		t.Errorf("received.Payload = %v, want %q", received.Payload, "ALR-001")
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := NewBus(testLogger())
	var count int32

	bus.SubscribeAll(func(ctx context.Context, e Event) {
		atomic.AddInt32(&count, 1)
	})

	bus.Publish(context.Background(), Event{Topic: TopicDevicesReplaced})
	bus.Publish(context.Background(), Event{Topic: TopicNoticePosted})

	if got := atomic.LoadInt32(&count); got != 2 {
		t.Errorf("SubscribeAll handler called %d times, want 2", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(testLogger())
	var count int32

	unsub := bus.Subscribe(TopicNoticePosted, func(ctx context.Context, e Event) {
		atomic.AddInt32(&count, 1)
	})

	bus.Publish(context.Background(), Event{Topic: TopicNoticePosted})
	unsub()
	bus.Publish(context.Background(), Event{Topic: TopicNoticePosted})

	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("handler called %d times after unsubscribe, want 1", got)
	}
}

func TestUnsubscribeAll(t *testing.T) {
	bus := NewBus(testLogger())
	var count int32

	unsub := bus.SubscribeAll(func(ctx context.Context, e Event) {
		atomic.AddInt32(&count, 1)
	})

	bus.Publish(context.Background(), Event{Topic: TopicNoticePosted})
	unsub()
	bus.Publish(context.Background(), Event{Topic: TopicNoticePosted})

	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("handler called %d times after unsubscribe, want 1", got)
	}
}

func TestPublishAsync(t *testing.T) {
	bus := NewBus(testLogger())
	var wg sync.WaitGroup
	var count int32

	wg.Add(2)
	bus.Subscribe(TopicConnectionChanged, func(ctx context.Context, e Event) {
		atomic.AddInt32(&count, 1)
		wg.Done()
	})
	bus.SubscribeAll(func(ctx context.Context, e Event) {
		atomic.AddInt32(&count, 1)
		wg.Done()
	})

	bus.PublishAsync(context.Background(), Event{Topic: TopicConnectionChanged})

	wg.Wait()
	if got := atomic.LoadInt32(&count); got != 2 {
		t.Errorf("async handlers called %d times, want 2", got)
	}
}

func TestHandlerPanicRecovery(t *testing.T) {
	bus := NewBus(testLogger())
	var count int32

	bus.Subscribe(TopicFilterChanged, func(ctx context.Context, e Event) {
		panic("test panic")
	})
	bus.Subscribe(TopicFilterChanged, func(ctx context.Context, e Event) {
		atomic.AddInt32(&count, 1)
	})

	// Should not panic, and second handler should still run.
	bus.Publish(context.Background(), Event{Topic: TopicFilterChanged})

	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("second handler called %d times, want 1", got)
	}
}

func TestNoSubscribersOK(t *testing.T) {
	bus := NewBus(testLogger())

	// Publishing with no subscribers should not error.
	if err := bus.Publish(context.Background(), Event{Topic: "unused.topic"}); err != nil {
		t.Fatalf("Publish() with no subscribers error = %v", err)
	}
}

func TestPublishFillsTimestamp(t *testing.T) {
	bus := NewBus(nil)
	var got Event
	bus.SubscribeAll(func(ctx context.Context, e Event) { got = e })

	_ = bus.Publish(context.Background(), Event{Topic: TopicDevicesReplaced})
	if got.Timestamp.IsZero() {
		t.Error("Publish left Timestamp zero")
	}
}

func TestUnsubscribeOnlyRemovesOwnHandler(t *testing.T) {
	bus := NewBus(testLogger())
	var a, b int32

	unsubA := bus.Subscribe(TopicAlertAppended, func(ctx context.Context, e Event) { atomic.AddInt32(&a, 1) })
	bus.Subscribe(TopicAlertAppended, func(ctx context.Context, e Event) { atomic.AddInt32(&b, 1) })
	unsubA()
	unsubA()

	_ = bus.Publish(context.Background(), Event{Topic: TopicAlertAppended})
	if atomic.LoadInt32(&a) != 0 || atomic.LoadInt32(&b) != 1 {
		t.Errorf("handler counts a=%d b=%d, want 0 and 1", atomic.LoadInt32(&a), atomic.LoadInt32(&b))
	}
}
