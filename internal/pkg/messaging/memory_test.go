package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

type collector struct {
	mu   sync.Mutex
	msgs []Message
}

func (c *collector) handle(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

// startConsumer runs Consume in the background and waits until the group is registered.
func startConsumer(t *testing.T, m *Memory, topic string, h Handler, opts ...ConsumeOption) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Consume(ctx, topic, h, opts...)
	}()
	group := newConsumeOptions(opts...).groupName()
	waitFor(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		_, ok := m.topics[topic][group]
		return ok
	})
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestMemory_PublishConsume(t *testing.T) {
	// Arrange
	m := NewMemory()
	t.Cleanup(func() { _ = m.Close() })
	c := &collector{}
	startConsumer(t, m, "otp_delivery", c.handle, WithQueueGroup("otp_delivery_email"), WithAutoAck(true))

	// Act
	err := m.Publish(context.Background(), "otp_delivery", OutgoingMessage{
		Body:    []byte(`{"email":"a@b.co"}`),
		Headers: []Header{{Key: "cID", Value: []byte("cid-1")}},
	})

	// Assert
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	waitFor(t, func() bool { return c.len() == 1 })
	c.mu.Lock()
	got := c.msgs[0]
	c.mu.Unlock()
	if string(got.Body()) != `{"email":"a@b.co"}` {
		t.Fatalf("body = %s", got.Body())
	}
	if got.Header("cid") != "cid-1" {
		t.Fatalf("header lookup = %q", got.Header("cid"))
	}
	if got.Topic() != "otp_delivery" || got.ID() == "" {
		t.Fatalf("unexpected topic/id: %q %q", got.Topic(), got.ID())
	}
}

func TestMemory_FanOutAcrossGroups(t *testing.T) {
	m := NewMemory()
	t.Cleanup(func() { _ = m.Close() })
	a, b := &collector{}, &collector{}
	startConsumer(t, m, "otp_audit_event", a.handle, WithGroup("recorder"))
	startConsumer(t, m, "otp_audit_event", b.handle, WithGroup("other"))

	for range 3 {
		if err := m.Publish(context.Background(), "otp_audit_event", OutgoingMessage{Body: []byte("x")}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	waitFor(t, func() bool { return a.len() == 3 && b.len() == 3 })
}

func TestMemory_NackRedelivers(t *testing.T) {
	m := NewMemory()
	t.Cleanup(func() { _ = m.Close() })

	var (
		mu       sync.Mutex
		attempts int
	)
	startConsumer(t, m, "t", func(context.Context, Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithAutoAck(true))

	if err := m.Publish(context.Background(), "t", OutgoingMessage{Body: []byte("x")}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts == 3
	})
}

func TestMemory_PanicIsRecovered(t *testing.T) {
	m := NewMemory()
	t.Cleanup(func() { _ = m.Close() })

	c := &collector{}
	var once sync.Once
	startConsumer(t, m, "t", func(ctx context.Context, msg Message) error {
		panicked := false
		once.Do(func() { panicked = true })
		if panicked {
			panic("boom")
		}
		return c.handle(ctx, msg)
	}, WithAutoAck(true))

	if err := m.Publish(context.Background(), "t", OutgoingMessage{Body: []byte("x")}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	// The panic nacks, so the message comes back and succeeds.
	waitFor(t, func() bool { return c.len() == 1 })
}

func TestMemory_Delay(t *testing.T) {
	m := NewMemory()
	t.Cleanup(func() { _ = m.Close() })
	c := &collector{}
	startConsumer(t, m, "t", c.handle)

	start := time.Now()
	if err := m.Publish(context.Background(), "t", OutgoingMessage{Body: []byte("x"), Delay: 50 * time.Millisecond}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	waitFor(t, func() bool { return c.len() == 1 })
	if time.Since(start) < 50*time.Millisecond {
		t.Fatalf("delayed message arrived early")
	}
}

func TestMemory_ClosedAndValidation(t *testing.T) {
	m := NewMemory()

	if err := m.Publish(context.Background(), "", OutgoingMessage{}); !errors.Is(err, ErrTopicRequired) {
		t.Fatalf("Publish() error = %v, want ErrTopicRequired", err)
	}
	if err := m.Consume(context.Background(), "t", nil); !errors.Is(err, ErrHandlerRequired) {
		t.Fatalf("Consume() error = %v, want ErrHandlerRequired", err)
	}

	_ = m.Close()
	if err := m.Publish(context.Background(), "t", OutgoingMessage{}); err == nil {
		t.Fatalf("expected error publishing on closed broker")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestDelivery_AckOnce(t *testing.T) {
	var acks, nacks int
	d := &delivery{
		ack:  func(context.Context) error { acks++; return nil },
		nack: func(context.Context) error { nacks++; return nil },
	}

	_ = d.Ack(context.Background())
	_ = d.Ack(context.Background())
	_ = d.Nack(context.Background())

	if acks != 1 || nacks != 0 {
		t.Fatalf("acks=%d nacks=%d, want 1 and 0", acks, nacks)
	}
}

func TestNewFromDriver(t *testing.T) {
	m, err := NewFromDriver("memory", FactoryOptions{})
	if err != nil {
		t.Fatalf("NewFromDriver(memory) error = %v", err)
	}
	if _, ok := m.(*Memory); !ok {
		t.Fatalf("got %T, want *Memory", m)
	}

	if _, err := NewFromDriver("rabbit", FactoryOptions{}); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("error = %v, want ErrUnknownDriver", err)
	}
	if _, err := NewFromDriver("kafka", FactoryOptions{}); !errors.Is(err, ErrKafkaBrokersRequired) {
		t.Fatalf("error = %v, want ErrKafkaBrokersRequired", err)
	}
	if _, err := NewFromDriver("nats", FactoryOptions{}); !errors.Is(err, ErrNATSURLRequired) {
		t.Fatalf("error = %v, want ErrNATSURLRequired", err)
	}
}
