package messaging

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/atomic"
)

const memoryBuffer = 256

// Memory is an in-process broker. Every consumer group on a topic receives
// each message once; consumers in the same group compete. Nack redelivers.
type Memory struct {
	mu     sync.Mutex
	topics map[string]map[string]chan *delivery
	closed bool
	done   chan struct{}
	seq    *atomic.Uint64
}

// NewMemory returns an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{
		topics: make(map[string]map[string]chan *delivery),
		done:   make(chan struct{}),
		seq:    atomic.NewUint64(0),
	}
}

// Close stops every running Consume call.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Publish fans msg out to every group subscribed to destination. Messages
// published to a topic with no consumers are dropped.
func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrTopicRequired
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return io.ErrClosedPipe
	}
	groups := make([]chan *delivery, 0, len(m.topics[destination]))
	for _, ch := range m.topics[destination] {
		groups = append(groups, ch)
	}
	m.mu.Unlock()

	id := fmt.Sprintf("mem-%d", m.seq.Inc())
	for _, ch := range groups {
		d := m.newDelivery(destination, id, msg, ch)
		if msg.Delay > 0 {
			time.AfterFunc(msg.Delay, func() { m.enqueue(context.Background(), ch, d) })
			continue
		}
		if err := m.enqueue(ctx, ch, d); err != nil {
			return err
		}
	}

	return nil
}

func (m *Memory) newDelivery(topic, id string, msg OutgoingMessage, ch chan *delivery) *delivery {
	d := &delivery{
		body:    append([]byte(nil), msg.Body...),
		key:     msg.Key,
		headers: append([]Header(nil), msg.Headers...),
		id:      id,
		topic:   topic,
		ts:      time.Now(),
	}
	d.ack = func(context.Context) error { return nil }
	d.nack = func(context.Context) error {
		again := m.newDelivery(topic, id, OutgoingMessage{Body: d.body, Key: d.key, Headers: d.headers}, ch)
		go func() { _ = m.enqueue(context.Background(), ch, again) }()
		return nil
	}
	return d
}

func (m *Memory) enqueue(ctx context.Context, ch chan *delivery, d *delivery) error {
	select {
	case ch <- d:
		return nil
	case <-m.done:
		return io.ErrClosedPipe
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	ch, err := m.subscribe(source, co.groupName())
	if err != nil {
		return err
	}

	in := make(chan *delivery)
	wg := runWorkers(ctx, "memory", co.concurrency, in, handler, co.autoAck)
	defer func() {
		close(in)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return nil
		case d := <-ch:
			select {
			case in <- d:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (m *Memory) subscribe(topic, group string) (chan *delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, io.ErrClosedPipe
	}
	if m.topics[topic] == nil {
		m.topics[topic] = make(map[string]chan *delivery)
	}
	ch, ok := m.topics[topic][group]
	if !ok {
		ch = make(chan *delivery, memoryBuffer)
		m.topics[topic][group] = ch
	}
	return ch, nil
}
