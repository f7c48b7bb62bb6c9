// Package syncchannel turns room-scoped push events into entity store writes.
//
// A Channel owns one transport and one consumer goroutine, so events are
// handled strictly in arrival order. Handlers registered with On decide the
// policy for each event; Binding provides the policies for one store.
package syncchannel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-console/internal/events"
	"github.com/spec-kit/campus-console/internal/notification"
	"github.com/spec-kit/campus-console/internal/observability"
)

// Notifier surfaces failed push handlers to the user.
type Notifier interface {
	Enqueue(message string, kind notification.Kind, ttl time.Duration) notification.Handle
}

// Option configures a Channel.
type Option func(*Channel)

// WithNotifier enqueues a warning for every push event whose handler fails.
func WithNotifier(n Notifier) Option {
	return func(c *Channel) { c.notifier = n }
}

// Dispositions recorded in console_push_events_total.
const (
	DispositionApplied   = "applied"
	DispositionDeferred  = "deferred"
	DispositionStale     = "stale"
	DispositionRegressed = "regressed"
	DispositionMissing   = "missing"
	DispositionRefetched = "refetched"
	DispositionRemoved   = "removed"
	DispositionRoom      = "dropped_room"
	DispositionUnhandled = "unhandled"
	DispositionMalformed = "malformed"
	DispositionFailed    = "failed"
)

// Channel receives push events for the joined rooms.
type Channel struct {
	transport Transport
	registry  *events.Registry
	logger    *zap.Logger
	metrics   *observability.Metrics
	notifier  Notifier

	mu        sync.Mutex
	connected bool
	rooms     map[string]struct{}
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a disconnected channel over t.
func New(t Transport, logger *zap.Logger, metrics *observability.Metrics, opts ...Option) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Channel{
		transport: t,
		registry:  events.NewRegistry(),
		logger:    logger,
		metrics:   metrics,
		rooms:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens the transport, subscribes the rooms joined so far and starts
// consuming. Calling it on a connected channel is a no-op.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}
	if err := c.transport.Connect(ctx); err != nil {
		return err
	}
	for room := range c.rooms {
		if err := c.transport.Subscribe(ctx, room); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.connected = true
	go c.consume(runCtx, c.done)
	c.logger.Info("push channel connected")
	return nil
}

// Connected reports whether Connect has succeeded and Close has not run.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// JoinRoom starts delivering events for room.
func (c *Channel) JoinRoom(ctx context.Context, room string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rooms[room]; ok {
		return nil
	}
	if c.connected {
		if err := c.transport.Subscribe(ctx, room); err != nil {
			return err
		}
	}
	c.rooms[room] = struct{}{}
	return nil
}

// LeaveRoom stops delivering events for room.
func (c *Channel) LeaveRoom(ctx context.Context, room string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rooms[room]; !ok {
		return nil
	}
	delete(c.rooms, room)
	if c.connected {
		return c.transport.Unsubscribe(ctx, room)
	}
	return nil
}

// InRoom reports whether room is joined.
func (c *Channel) InRoom(room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rooms[room]
	return ok
}

// On registers handler for name and returns the token for Off.
func (c *Channel) On(name events.Name, handler events.HandlerFunc) *events.Subscription {
	return c.registry.On(name, handler)
}

// Off unregisters exactly the subscription returned by On.
func (c *Channel) Off(sub *events.Subscription) bool {
	return c.registry.Off(sub)
}

// Dispatch handles one event synchronously. Events for rooms not joined and
// events nobody listens to are dropped.
func (c *Channel) Dispatch(ctx context.Context, ev events.Event) error {
	if !c.InRoom(ev.Room) {
		c.metrics.RecordPushEvent(string(ev.Name), DispositionRoom)
		return nil
	}
	if c.registry.Count(ev.Name) == 0 {
		c.metrics.RecordPushEvent(string(ev.Name), DispositionUnhandled)
		c.logger.Debug("push event without handler", zap.String("event", string(ev.Name)))
		return nil
	}
	if err := c.registry.Publish(ctx, ev); err != nil {
		c.metrics.RecordPushEvent(string(ev.Name), DispositionFailed)
		return err
	}
	return nil
}

func (c *Channel) consume(ctx context.Context, done chan struct{}) {
	defer close(done)
	msgs := c.transport.Messages()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-msgs:
			if !ok {
				return
			}
			ev, err := events.Decode(raw)
			if err != nil {
				c.metrics.RecordPushEvent("unknown", DispositionMalformed)
				c.logger.Warn("dropping malformed push event", zap.Error(err))
				continue
			}
			if err := c.Dispatch(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("push event handler failed",
					zap.String("event", string(ev.Name)),
					zap.String("room", ev.Room),
					zap.Error(err))
				c.reportFailure(ev, err)
			}
		}
	}
}

func (c *Channel) reportFailure(ev events.Event, err error) {
	if c.notifier == nil {
		return
	}
	c.notifier.Enqueue(fmt.Sprintf("live update %s could not be applied, the list may be out of date: %v", ev.Name, err),
		notification.KindWarning, 0)
}

// Close stops the consumer and closes the transport.
func (c *Channel) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.connected = false
	c.mu.Unlock()

	err := c.transport.Close()
	if cancel != nil {
		cancel()
		<-done
	}
	return err
}
