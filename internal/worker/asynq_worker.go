package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/lumipos/internal/constants"
	"github.com/lumipos/internal/logger"
	"github.com/lumipos/internal/provider"
	"github.com/lumipos/internal/queue"
	"github.com/lumipos/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	container *provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(container *provider.Container) *Consumer {
	return &Consumer{container: container}
}

// Register 注册任务处理器
func (c *Consumer) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(queue.TaskNotificationDispatch, c.handleNotificationDispatch)
	mux.HandleFunc(queue.TaskNotificationRetry, c.handleNotificationRetry)
	mux.HandleFunc(queue.TaskOrderOverdueCheck, c.handleOrderOverdueCheck)
}

// handleNotificationDispatch 派发订单事件通知
func (c *Consumer) handleNotificationDispatch(ctx context.Context, task *asynq.Task) error {
	var payload queue.NotificationDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("notification_dispatch_payload_invalid", "error", err)
		return err
	}

	var err error
	switch payload.Event {
	case constants.NotificationEventOrderCreated:
		err = c.container.NotificationService.SendOrderCreated(ctx, payload.OrderID)
	case constants.NotificationEventOrderReady:
		err = c.container.NotificationService.SendOrderReady(ctx, payload.OrderID, payload.AllChannels)
	case constants.NotificationEventOrderCancelled:
		err = c.container.NotificationService.SendOrderCancelled(ctx, payload.OrderID)
	case constants.NotificationEventOrderReminder:
		err = c.container.NotificationService.SendPickupReminder(ctx, payload.OrderID)
	default:
		logger.Warnw("notification_dispatch_unknown_event", "event", payload.Event, "order_id", payload.OrderID)
		return nil
	}

	if err != nil {
		// 订单已不存在时直接丢弃任务，不再重试
		if errors.Is(err, service.ErrOrderNotFound) || errors.Is(err, service.ErrBusinessNotFound) {
			logger.Debugw("notification_dispatch_skip",
				"order_id", payload.OrderID,
				"event", payload.Event,
				"reason", err.Error(),
			)
			return nil
		}
		logger.Warnw("notification_dispatch_failed",
			"order_id", payload.OrderID,
			"event", payload.Event,
			"error", err,
		)
		// 发送失败已落库为 failed，由重试扫描兜底，这里不让 asynq 再重复派发
		return nil
	}
	return nil
}

// handleNotificationRetry 扫描并重试失败的通知
func (c *Consumer) handleNotificationRetry(ctx context.Context, task *asynq.Task) error {
	var payload queue.NotificationRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("notification_retry_payload_invalid", "error", err)
		return err
	}

	result, err := c.container.NotificationService.RetryFailedNotifications(ctx, payload.BusinessID)
	if err != nil {
		logger.Warnw("notification_retry_sweep_failed", "business_id", payload.BusinessID, "error", err)
		return err
	}
	if result.Retried > 0 || result.Errors > 0 {
		logger.Infow("notification_retry_result",
			"business_id", payload.BusinessID,
			"retried", result.Retried,
			"skipped", result.Skipped,
			"errors", result.Errors,
		)
	}
	return nil
}

// handleOrderOverdueCheck 巡检超时未取的订单
func (c *Consumer) handleOrderOverdueCheck(ctx context.Context, task *asynq.Task) error {
	var payload queue.OrderOverdueCheckPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("order_overdue_payload_invalid", "error", err)
		return err
	}

	orders, err := c.container.OrderService.GetOverdueOrders(payload.BusinessID)
	if err != nil {
		if errors.Is(err, service.ErrBusinessNotFound) {
			logger.Debugw("order_overdue_skip", "business_id", payload.BusinessID)
			return nil
		}
		logger.Warnw("order_overdue_check_failed", "business_id", payload.BusinessID, "error", err)
		return err
	}

	for _, order := range orders {
		logger.Warnw("order_pickup_overdue",
			"business_id", order.BusinessID,
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"status", order.Status,
		)
		// 只对已出餐的订单提醒，且每个订单只提醒一次
		if order.Status != constants.OrderStatusReady || order.ReminderSent {
			continue
		}
		if err := c.container.NotificationService.SendPickupReminder(ctx, order.ID); err != nil {
			logger.Warnw("order_pickup_reminder_failed",
				"order_id", order.ID,
				"order_no", order.OrderNo,
				"error", err,
			)
		}
	}
	return nil
}
