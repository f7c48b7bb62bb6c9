package syncchannel

import (
	"context"
	"errors"
	"time"
)

// ErrTransportClosed is returned by transports used after Close.
var ErrTransportClosed = errors.New("push transport closed")

// Transport carries raw push envelopes for the rooms it is subscribed to.
// Messages is closed once the transport is closed.
type Transport interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, room string) error
	Unsubscribe(ctx context.Context, room string) error
	Messages() <-chan []byte
	Close() error
}

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

func nextBackoff(d time.Duration) time.Duration {
	if d <= 0 {
		return initialBackoff
	}
	if d *= 2; d > maxBackoff {
		return maxBackoff
	}
	return d
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
