package queue

import (
	"encoding/json"

	"github.com/lumipos/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskNotificationDispatch 订单事件通知派发任务
	TaskNotificationDispatch = constants.TaskNotificationDispatch
	// TaskNotificationRetry 失败通知重试扫描任务
	TaskNotificationRetry = constants.TaskNotificationRetry
	// TaskOrderOverdueCheck 超时订单巡检任务
	TaskOrderOverdueCheck = constants.TaskOrderOverdueCheck
)

// NotificationDispatchPayload 通知派发任务载荷。
// AllChannels 仅对 order_ready 生效：true 时向全部可用渠道扇出，
// 其余事件只发顾客的首选渠道。
type NotificationDispatchPayload struct {
	OrderID     uint   `json:"order_id"`
	Event       string `json:"event"` // order_created / order_ready / order_cancelled / order_reminder
	AllChannels bool   `json:"all_channels,omitempty"`
}

// NotificationRetryPayload 失败重试任务载荷（business_id 为 0 表示全部商家）
type NotificationRetryPayload struct {
	BusinessID uint `json:"business_id"`
}

// OrderOverdueCheckPayload 超时巡检任务载荷（business_id 为 0 表示全部商家）
type OrderOverdueCheckPayload struct {
	BusinessID uint `json:"business_id"`
}

// NewNotificationDispatchTask 创建通知派发任务
func NewNotificationDispatchTask(payload NotificationDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDispatch, body), nil
}

// NewNotificationRetryTask 创建失败重试任务
func NewNotificationRetryTask(payload NotificationRetryPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationRetry, body), nil
}

// NewOrderOverdueCheckTask 创建超时巡检任务
func NewOrderOverdueCheckTask(payload OrderOverdueCheckPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderOverdueCheck, body), nil
}
