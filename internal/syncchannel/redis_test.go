package syncchannel

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOfflineRedis(t *testing.T) *Redis {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "console:", nil)
}

func TestRedisCloseBeforeConnect(t *testing.T) {
	r := newOfflineRedis(t)

	require.NoError(t, r.Close())
	assert.NotPanics(t, func() {
		assert.ErrorIs(t, r.Connect(context.Background()), ErrTransportClosed)
		assert.NoError(t, r.Close())
	})

	_, open := <-r.Messages()
	assert.False(t, open)
	assert.ErrorIs(t, r.Subscribe(context.Background(), "admin"), ErrTransportClosed)
}

func TestRedisConnectFailsWithoutServer(t *testing.T) {
	r := newOfflineRedis(t)

	assert.Error(t, r.Connect(context.Background()))
	assert.ErrorIs(t, r.Subscribe(context.Background(), "admin"), ErrTransportClosed)
	require.NoError(t, r.Close())

	_, open := <-r.Messages()
	assert.False(t, open)
}

func TestRedisForwardStopsWhenClosingWithFullBuffer(t *testing.T) {
	r := newOfflineRedis(t)
	in := make(chan *redis.Message, 2*cap(r.out))
	for i := 0; i < cap(in); i++ {
		in <- &redis.Message{Channel: "console:admin", Payload: fmt.Sprintf(`{"n":%d}`, i)}
	}

	done := make(chan struct{})
	go func() {
		r.forward(in)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(r.out) == cap(r.out) }, time.Second, 5*time.Millisecond)

	close(r.closing)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forward still blocked after closing")
	}
	assert.Len(t, r.out, cap(r.out))
}
