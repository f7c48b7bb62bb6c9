package syncchannel

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis reads push envelopes from one pub/sub channel per room, named
// prefix+room. Reconnection is handled by the go-redis PubSub.
type Redis struct {
	client  *redis.Client
	prefix  string
	logger  *zap.Logger
	out     chan []byte
	closing chan struct{}

	mu     sync.Mutex
	pubsub *redis.PubSub
	closed bool
}

// NewRedis builds a transport on an existing client.
func NewRedis(client *redis.Client, prefix string, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{
		client:  client,
		prefix:  prefix,
		logger:  logger,
		out:     make(chan []byte, 64),
		closing: make(chan struct{}),
	}
}

func (r *Redis) channel(room string) string {
	return r.prefix + room
}

func (r *Redis) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.closed:
		return ErrTransportClosed
	case r.pubsub != nil:
		return nil
	}
	if err := r.client.Ping(ctx).Err(); err != nil {
		return err
	}
	r.pubsub = r.client.Subscribe(ctx)
	go r.forward(r.pubsub.Channel())
	r.logger.Info("redis push transport connected", zap.String("prefix", r.prefix))
	return nil
}

// forward owns r.out once Connect succeeds and closes it on exit.
func (r *Redis) forward(in <-chan *redis.Message) {
	defer close(r.out)
	for {
		select {
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case r.out <- []byte(msg.Payload):
			case <-r.closing:
				return
			}
		case <-r.closing:
			return
		}
	}
}

func (r *Redis) Subscribe(ctx context.Context, room string) error {
	ps, err := r.active()
	if err != nil {
		return err
	}
	return ps.Subscribe(ctx, r.channel(room))
}

func (r *Redis) Unsubscribe(ctx context.Context, room string) error {
	ps, err := r.active()
	if err != nil {
		return err
	}
	return ps.Unsubscribe(ctx, r.channel(room))
}

func (r *Redis) active() (*redis.PubSub, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.pubsub == nil {
		return nil, ErrTransportClosed
	}
	return r.pubsub, nil
}

func (r *Redis) Messages() <-chan []byte { return r.out }

// Close is safe to call more than once and before Connect.
func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.closing)
	ps := r.pubsub
	r.mu.Unlock()

	if ps == nil {
		close(r.out)
		return nil
	}
	return ps.Close()
}
