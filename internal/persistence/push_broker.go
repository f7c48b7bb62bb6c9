package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-console/internal/config"
)

// ErrNoPushBroker is returned by a nil PushBroker.
var ErrNoPushBroker = errors.New("redis push broker not configured")

// PushBroker holds the Redis client the pub/sub push transport reads from.
type PushBroker struct {
	Client *redis.Client
}

// NewPushBroker builds the client and checks the broker once. An unreachable
// broker is logged, not fatal: the push channel keeps retrying and the
// console serves its last snapshot meanwhile.
func NewPushBroker(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *PushBroker {
	client := redis.NewClient(pushClientOptions(cfg))
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("push broker unreachable; live updates wait for reconnect",
			zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("push broker reachable", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}
	return &PushBroker{Client: client}
}

func pushClientOptions(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: "campus-console-push",
	}
}

func (b *PushBroker) Ping(ctx context.Context) error {
	if b == nil || b.Client == nil {
		return ErrNoPushBroker
	}
	return b.Client.Ping(ctx).Err()
}

func (b *PushBroker) Close() {
	if b != nil && b.Client != nil {
		_ = b.Client.Close()
	}
}
