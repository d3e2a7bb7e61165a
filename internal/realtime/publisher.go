package realtime

import (
	"context"
	"encoding/json"

	"github.com/lumipos/internal/cache"
)

// Publisher 订单变更事件发布端
type Publisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// RedisPublisher 基于 Redis 发布/订阅的实现。
// 状态引擎是订单的唯一写入方，变更事件都从这里流出。
type RedisPublisher struct{}

// NewRedisPublisher 创建发布端
func NewRedisPublisher() *RedisPublisher {
	return &RedisPublisher{}
}

// PublishOrderEvent 发布订单变更事件。缓存未启用时静默跳过。
func (p *RedisPublisher) PublishOrderEvent(ctx context.Context, event OrderEvent) error {
	client := cache.Client()
	if client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return client.Publish(ctx, cache.Key(ChannelName(event.BusinessID)), payload).Err()
}
