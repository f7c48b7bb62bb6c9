package syncchannel

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/campus-console/internal/events"
)

// Memory is an in-process transport. It delivers every published envelope,
// whatever the room; filtering happens in the Channel.
type Memory struct {
	msgs    chan []byte
	closing chan struct{}

	mu        sync.RWMutex
	closed    bool
	connects  int
	rooms     map[string]struct{}
	closeOnce sync.Once
}

// NewMemory creates a transport buffering up to buffer envelopes.
func NewMemory(buffer int) *Memory {
	if buffer < 0 {
		buffer = 0
	}
	return &Memory{
		msgs:    make(chan []byte, buffer),
		closing: make(chan struct{}),
		rooms:   make(map[string]struct{}),
	}
}

func (m *Memory) Connect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrTransportClosed
	}
	m.connects++
	return nil
}

// Connects returns how many times Connect succeeded.
func (m *Memory) Connects() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connects
}

func (m *Memory) Subscribe(_ context.Context, room string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room] = struct{}{}
	return nil
}

func (m *Memory) Unsubscribe(_ context.Context, room string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, room)
	return nil
}

// Rooms lists the subscribed rooms in order.
func (m *Memory) Rooms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.rooms))
	for r := range m.rooms {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func (m *Memory) Messages() <-chan []byte { return m.msgs }

// Publish encodes ev and delivers it.
func (m *Memory) Publish(ctx context.Context, ev events.Event) error {
	raw, err := ev.Encode()
	if err != nil {
		return err
	}
	return m.PublishRaw(ctx, raw)
}

// PublishRaw delivers an envelope as is.
func (m *Memory) PublishRaw(ctx context.Context, raw []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrTransportClosed
	}
	select {
	case m.msgs <- raw:
		return nil
	case <-m.closing:
		return ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.closing)
		m.mu.Lock()
		m.closed = true
		close(m.msgs)
		m.mu.Unlock()
	})
	return nil
}
