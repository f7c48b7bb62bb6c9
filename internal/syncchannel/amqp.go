package syncchannel

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQP consumes push envelopes from a topic exchange. Each joined room is a
// binding of an exclusive, auto-deleted queue with the room as routing key.
// A lost connection is re-dialed with doubling backoff and the bindings are
// restored.
type AMQP struct {
	url      string
	exchange string
	logger   *zap.Logger
	dial     func(url string) (*amqp.Connection, error)
	out      chan []byte

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	rooms  map[string]struct{}
	closed bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAMQP builds a transport for the broker at url.
func NewAMQP(url, exchange string, logger *zap.Logger) *AMQP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQP{
		url:      url,
		exchange: exchange,
		logger:   logger,
		dial:     amqp.Dial,
		out:      make(chan []byte, 64),
		rooms:    make(map[string]struct{}),
	}
}

func (a *AMQP) Connect(ctx context.Context) error {
	a.mu.Lock()
	switch {
	case a.closed:
		a.mu.Unlock()
		return ErrTransportClosed
	case a.conn != nil:
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	deliveries, err := a.establish(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	if a.closed {
		conn := a.conn
		a.conn, a.ch = nil, nil
		a.mu.Unlock()
		cancel()
		if conn != nil {
			_ = conn.Close()
		}
		return ErrTransportClosed
	}
	a.cancel = cancel
	a.done = make(chan struct{})
	done := a.done
	a.mu.Unlock()

	go a.run(runCtx, deliveries, done)
	return nil
}

// establish dials until the broker answers or ctx ends, then declares the
// topology and starts consuming.
func (a *AMQP) establish(ctx context.Context) (<-chan amqp.Delivery, error) {
	var backoff time.Duration
	for {
		conn, err := a.dial(a.url)
		if err == nil {
			deliveries, err := a.setup(conn)
			if err == nil {
				return deliveries, nil
			}
			_ = conn.Close()
			a.logger.Warn("amqp topology setup failed", zap.Error(err))
		} else {
			a.logger.Warn("amqp dial failed", zap.Error(err))
		}
		backoff = nextBackoff(backoff)
		a.logger.Info("retrying amqp connection", zap.Duration("backoff", backoff))
		if err := sleep(ctx, backoff); err != nil {
			return nil, fmt.Errorf("amqp connect: %w", err)
		}
	}
}

func (a *AMQP) setup(conn *amqp.Connection) (<-chan amqp.Delivery, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := ch.ExchangeDeclare(a.exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("exchange declare: %w", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue declare: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for room := range a.rooms {
		if err := ch.QueueBind(q.Name, room, a.exchange, false, nil); err != nil {
			return nil, fmt.Errorf("queue bind %s: %w", room, err)
		}
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume: %w", err)
	}
	a.conn = conn
	a.ch = ch
	a.queue = q.Name
	return deliveries, nil
}

func (a *AMQP) run(ctx context.Context, deliveries <-chan amqp.Delivery, done chan struct{}) {
	defer close(done)
	defer close(a.out)
	for {
		for d := range deliveries {
			select {
			case a.out <- d.Body:
			case <-ctx.Done():
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		a.logger.Warn("amqp deliveries closed, reconnecting")
		a.mu.Lock()
		a.ch = nil
		a.mu.Unlock()

		next, err := a.establish(ctx)
		if err != nil {
			return
		}
		deliveries = next
	}
}

func (a *AMQP) Subscribe(_ context.Context, room string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rooms[room] = struct{}{}
	if a.ch == nil {
		return nil
	}
	return a.ch.QueueBind(a.queue, room, a.exchange, false, nil)
}

func (a *AMQP) Unsubscribe(_ context.Context, room string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.rooms, room)
	if a.ch == nil {
		return nil
	}
	return a.ch.QueueUnbind(a.queue, room, a.exchange, nil)
}

func (a *AMQP) Messages() <-chan []byte { return a.out }

func (a *AMQP) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	cancel, done, conn := a.cancel, a.done, a.conn
	a.cancel, a.conn, a.ch = nil, nil, nil
	a.closed = true
	a.mu.Unlock()

	if cancel == nil {
		close(a.out)
		if conn != nil {
			return conn.Close()
		}
		return nil
	}
	cancel()
	var err error
	if conn != nil {
		err = conn.Close()
	}
	<-done
	return err
}
