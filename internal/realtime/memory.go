package realtime

import (
	"context"
	"sync"
)

// MemoryBroker is the single-process Broker used when redis is not
// configured and in tests.
type MemoryBroker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]*memorySub
}

type memorySub struct {
	ch   chan Change
	done chan struct{}

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[int]*memorySub)}
}

func (b *MemoryBroker) Publish(ctx context.Context, change Change) error {
	b.mu.RLock()
	targets := make([]*memorySub, 0, len(b.subs[change.Topic]))
	for _, sub := range b.subs[change.Topic] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		if err := sub.send(ctx, change); err != nil {
			return err
		}
	}
	return nil
}

func (s *memorySub) send(ctx context.Context, change Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- change:
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, topic string) (<-chan Change, func(), error) {
	sub := &memorySub{
		ch:   make(chan Change, 64),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]*memorySub)
	}
	b.subs[topic][id] = sub
	b.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			// unblock a publisher parked on a full buffer before taking its lock
			close(sub.done)

			b.mu.Lock()
			delete(b.subs[topic], id)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			b.mu.Unlock()

			sub.mu.Lock()
			sub.closed = true
			close(sub.ch)
			sub.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()

	return sub.ch, cancel, nil
}

// Subscribers reports how many live subscriptions topic has.
func (b *MemoryBroker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
