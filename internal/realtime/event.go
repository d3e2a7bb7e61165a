package realtime

import (
	"fmt"

	"github.com/lumipos/internal/models"
)

// EventKind 订单变更事件类型
type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// OrderEvent 订单变更事件，delete 事件只保证 Order.ID 有效
type OrderEvent struct {
	Kind       EventKind    `json:"kind"`
	BusinessID uint         `json:"business_id"`
	Order      models.Order `json:"order"`
}

// ChannelName 返回商家订单变更频道名（未加缓存前缀）
func ChannelName(businessID uint) string {
	return fmt.Sprintf("orders:changed:%d", businessID)
}
