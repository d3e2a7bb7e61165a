package realtime

import (
	"context"
	"encoding/json"

	"github.com/lumipos/internal/cache"
	"github.com/lumipos/internal/logger"
)

// Feed 订单变更事件源。
// Subscribe 返回事件通道与取消函数；事件源关闭或出错时通道被关闭。
type Feed interface {
	Subscribe(ctx context.Context, businessID uint) (<-chan OrderEvent, func(), error)
}

// RedisFeed 基于 Redis 发布/订阅的事件源
type RedisFeed struct{}

// NewRedisFeed 创建事件源
func NewRedisFeed() *RedisFeed {
	return &RedisFeed{}
}

// Subscribe 订阅商家订单变更频道
func (f *RedisFeed) Subscribe(ctx context.Context, businessID uint) (<-chan OrderEvent, func(), error) {
	client := cache.Client()
	if client == nil {
		return nil, nil, ErrFeedUnavailable
	}

	pubsub := client.Subscribe(ctx, cache.Key(ChannelName(businessID)))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	events := make(chan OrderEvent, 64)
	go func() {
		defer close(events)
		for msg := range pubsub.Channel() {
			var event OrderEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warnw("realtime_event_unmarshal_failed",
					"business_id", businessID,
					"error", err,
				)
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		_ = pubsub.Close()
	}
	return events, cancel, nil
}
