// Package notification implements the stack of ephemeral, timed messages shown
// to the console user.
package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-console/internal/observability"
)

// DefaultTTL is how long a notification lives when no ttl is given.
const DefaultTTL = 4000 * time.Millisecond

// Kind is the severity of a notification.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindInfo, KindSuccess, KindWarning, KindError:
		return true
	default:
		return false
	}
}

// Handle identifies one enqueued notification.
type Handle uuid.UUID

// String returns the handle in canonical uuid form.
func (h Handle) String() string {
	return uuid.UUID(h).String()
}

// ParseHandle parses the canonical form produced by Handle.String.
func ParseHandle(s string) (Handle, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return Handle{}, err
	}
	return Handle(id), nil
}

// Notification is one entry of the stack.
type Notification struct {
	Handle    Handle
	Message   string
	Kind      Kind
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Timer is the subset of *time.Timer the bus needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. It must not call f synchronously.
type AfterFunc func(d time.Duration, f func()) Timer

// Listener receives the full stack after every change.
type Listener func([]Notification)

// Option configures a Bus.
type Option func(*Bus)

// WithDefaultTTL overrides DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(b *Bus) {
		if ttl > 0 {
			b.defaultTTL = ttl
		}
	}
}

// WithAfterFunc replaces the timer source, mostly for tests.
func WithAfterFunc(fn AfterFunc) Option {
	return func(b *Bus) {
		if fn != nil {
			b.afterFunc = fn
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger logs every enqueued notification.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics counts enqueued notifications by kind.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Bus) {
		b.metrics = m
	}
}

type entry struct {
	n     Notification
	timer Timer
}

// Bus keeps notifications in insertion order and expires each on its own timer.
// Identical messages are not deduplicated.
type Bus struct {
	defaultTTL time.Duration
	afterFunc  AfterFunc
	now        func() time.Time
	logger     *zap.Logger
	metrics    *observability.Metrics

	mu        sync.Mutex
	entries   []*entry
	listeners []Listener
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		defaultTTL: DefaultTTL,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Enqueue pushes a notification that expires after ttl, or the default ttl
// when ttl is not positive. Unknown kinds are treated as info.
func (b *Bus) Enqueue(message string, kind Kind, ttl time.Duration) Handle {
	if !kind.Valid() {
		kind = KindInfo
	}
	if ttl <= 0 {
		ttl = b.defaultTTL
	}
	now := b.now()
	h := Handle(uuid.New())
	e := &entry{n: Notification{
		Handle:    h,
		Message:   message,
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}}

	b.mu.Lock()
	b.entries = append(b.entries, e)
	e.timer = b.afterFunc(ttl, func() { b.expire(h) })
	snapshot, listeners := b.stateLocked()
	b.mu.Unlock()

	b.logger.Debug("notification enqueued",
		zap.String("handle", h.String()),
		zap.String("kind", string(kind)),
		zap.String("message", message))
	b.metrics.RecordNotification(string(kind))
	publish(listeners, snapshot)
	return h
}

// Dismiss removes a notification before it expires. Returns false when the
// handle is unknown or already expired.
func (b *Bus) Dismiss(h Handle) bool {
	e, snapshot, listeners := b.remove(h)
	if e == nil {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	publish(listeners, snapshot)
	return true
}

// List returns the live notifications in insertion order.
func (b *Bus) List() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out, _ := b.stateLocked()
	return out
}

// Subscribe registers fn for stack changes.
func (b *Bus) Subscribe(fn Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

func (b *Bus) expire(h Handle) {
	e, snapshot, listeners := b.remove(h)
	if e == nil {
		return
	}
	publish(listeners, snapshot)
}

func (b *Bus) remove(h Handle) (*entry, []Notification, []Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.entries {
		if e.n.Handle == h {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			snapshot, listeners := b.stateLocked()
			return e, snapshot, listeners
		}
	}
	return nil, nil, nil
}

func (b *Bus) stateLocked() ([]Notification, []Listener) {
	out := make([]Notification, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e.n)
	}
	return out, append([]Listener(nil), b.listeners...)
}

func publish(listeners []Listener, snapshot []Notification) {
	for _, fn := range listeners {
		fn(snapshot)
	}
}
