package redisstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/Index24/live-docs/internal/domain"
)

// RedisRevalidator 通过 Redis Pub/Sub 广播缓存失效信号，
// 多个服务实例上的 Hub 都会收到并转发给各自的 WebSocket 客户端。
type RedisRevalidator struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// NewRedisRevalidator 创建 RedisRevalidator 实例
func NewRedisRevalidator(client *redis.Client, keyPrefix string) *RedisRevalidator {
	if client == nil {
		panic("redis client cannot be nil for RedisRevalidator")
	}
	if keyPrefix == "" {
		keyPrefix = "ld:" // 默认前缀 "ld:" (live docs)
	}
	return &RedisRevalidator{client: client, keyPrefix: keyPrefix, now: time.Now}
}

// Channel 返回失效信号使用的频道名
func (r *RedisRevalidator) Channel() string {
	return r.keyPrefix + "revalidate"
}

// Revalidate 发布 path 的失效信号
func (r *RedisRevalidator) Revalidate(ctx context.Context, path string) error {
	payload, err := encodeEvent(domain.RevalidationEvent{
		Type: domain.RevalidationEventType,
		Path: path,
		At:   r.now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.Channel(), payload).Err(); err != nil {
		return fmt.Errorf("redis: failed to publish revalidation for %s to %s: %w", path, r.Channel(), err)
	}
	logrus.WithField("path", path).Debug("Revalidation published")
	return nil
}

// Subscribe 订阅失效信号，返回的通道在 ctx 取消或订阅关闭后关闭。
func (r *RedisRevalidator) Subscribe(ctx context.Context) (<-chan domain.RevalidationEvent, error) {
	pubsub := r.client.Subscribe(ctx, r.Channel())
	// 等待订阅确认，尽早暴露连接错误
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: failed to subscribe to %s: %w", r.Channel(), err)
	}

	out := make(chan domain.RevalidationEvent, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()
		log := logrus.WithField("channel", r.Channel())
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				log.Info("Revalidation subscription stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					log.Warn("Revalidation subscription channel closed")
					return
				}
				event, err := decodeEvent(msg.Payload)
				if err != nil {
					log.WithError(err).Warn("Dropping malformed revalidation message")
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func encodeEvent(event domain.RevalidationEvent) (string, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal revalidation event: %w", err)
	}
	return string(b), nil
}

func decodeEvent(payload string) (domain.RevalidationEvent, error) {
	var event domain.RevalidationEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal revalidation event: %w", err)
	}
	if event.Type != domain.RevalidationEventType || event.Path == "" {
		return event, fmt.Errorf("unexpected revalidation event %q", payload)
	}
	return event, nil
}
