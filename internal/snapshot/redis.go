package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// ChannelChanges は変更イベントを流すRedisのPub/Subチャネル名。
const ChannelChanges = "planneredu:changes"

// RedisBroker はRedis Pub/Subを介して複数インスタンス間で変更イベントを共有するBroker。
// PublishはRedisに送信し、Runが受信したイベントをローカルのMemoryBrokerへ中継する。
type RedisBroker struct {
	client *redis.Client
	local  *MemoryBroker
	logger *slog.Logger
}

// NewRedisClient はREDIS_URL形式（redis://[:password@]host:port/db）からクライアントを生成する。
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// NewRedisBroker はRedisBrokerを生成する。
func NewRedisBroker(client *redis.Client, local *MemoryBroker, logger *slog.Logger) *RedisBroker {
	if local == nil {
		local = NewMemoryBroker(DefaultBufferSize)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBroker{client: client, local: local, logger: logger}
}

// Publish はイベントをJSONにしてRedisへ発行する。
func (b *RedisBroker) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := b.client.Publish(ctx, ChannelChanges, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe はローカルのMemoryBrokerに購読を登録する。
func (b *RedisBroker) Subscribe(ctx context.Context, filter Filter) (<-chan Event, func()) {
	return b.local.Subscribe(ctx, filter)
}

// Run はRedisのチャネルを購読し、受信したイベントをローカルの購読者へ中継する。
// ctxが終了するまでブロックする。
func (b *RedisBroker) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, ChannelChanges)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", ChannelChanges, err)
	}
	b.logger.Info("snapshot relay started", slog.String("channel", ChannelChanges))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("subscription closed")
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("malformed snapshot event",
					slog.String("error", err.Error()),
				)
				continue
			}
			_ = b.local.Publish(ctx, event)
		}
	}
}

// Ping はRedisへの疎通を確認する。
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

var _ Broker = (*RedisBroker)(nil)
