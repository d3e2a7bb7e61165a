package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/lumipos/internal/constants"
	"github.com/lumipos/internal/logger"
	"github.com/lumipos/internal/models"
	"github.com/lumipos/internal/notify"
	"github.com/lumipos/internal/queue"
	"github.com/lumipos/internal/realtime"
	"github.com/lumipos/internal/repository"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
)

// NotificationEnqueuer 订单事件通知入队接口，由队列客户端实现
type NotificationEnqueuer interface {
	EnqueueNotificationDispatch(payload queue.NotificationDispatchPayload, opts ...asynq.Option) error
}

// OrderService 订单状态引擎
type OrderService struct {
	orderRepo     repository.OrderRepository
	historyRepo   repository.StatusHistoryRepository
	businessRepo  repository.BusinessRepository
	enqueuer      NotificationEnqueuer
	publisher     realtime.Publisher
	pickupSLAMins int
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	historyRepo repository.StatusHistoryRepository,
	businessRepo repository.BusinessRepository,
	enqueuer NotificationEnqueuer,
	publisher realtime.Publisher,
	pickupSLAMins int,
) *OrderService {
	if pickupSLAMins <= 0 {
		pickupSLAMins = constants.OrderPickupSLAMinutesDefault
	}
	return &OrderService{
		orderRepo:     orderRepo,
		historyRepo:   historyRepo,
		businessRepo:  businessRepo,
		enqueuer:      enqueuer,
		publisher:     publisher,
		pickupSLAMins: pickupSLAMins,
	}
}

// CreateOrderItemInput 创建订单项输入
type CreateOrderItemInput struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateOrderInput 创建订单输入
type CreateOrderInput struct {
	BusinessID       uint
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	CustomerChatID   string
	PreferredChannel string
	Locale           string
	PickupAt         *time.Time
	Note             string
	TaxAmount        decimal.Decimal
	TipAmount        decimal.Decimal
	Items            []CreateOrderItemInput
}

// UpdateStatusInput 状态推进选项。
// Reason 只在进入 cancelled 且调用方提供时写入；
// SkipNotification 为 true 时本次流转不派发任何通知。
type UpdateStatusInput struct {
	Target           string
	ChangedBy        string
	Reason           string
	SkipNotification bool
}

// BulkStatusResult 批量更新单条结果
type BulkStatusResult struct {
	OrderID uint   `json:"order_id"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CreateOrder 创建订单（null -> pending），写入首条审计记录并发布插入事件
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	business, err := s.businessRepo.GetByID(input.BusinessID)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, ErrBusinessNotFound
	}
	if len(input.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" || item.Quantity <= 0 {
			return nil, ErrEmptyOrder
		}
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, models.OrderItem{
			Name:       name,
			Quantity:   item.Quantity,
			UnitPrice:  models.NewMoneyFromDecimal(item.UnitPrice),
			TotalPrice: models.NewMoneyFromDecimal(lineTotal),
		})
	}
	total := subtotal.Add(input.TaxAmount).Add(input.TipAmount)

	locale := strings.TrimSpace(input.Locale)
	if locale == "" {
		locale = business.DefaultLocale
	}

	order := &models.Order{
		BusinessID:       business.ID,
		OrderNo:          generateOrderNo(),
		CustomerName:     strings.TrimSpace(input.CustomerName),
		CustomerEmail:    strings.TrimSpace(input.CustomerEmail),
		CustomerPhone:    strings.TrimSpace(input.CustomerPhone),
		CustomerChatID:   strings.TrimSpace(input.CustomerChatID),
		PreferredChannel: normalizePreferredChannel(input.PreferredChannel),
		Locale:           locale,
		Status:           constants.OrderStatusPending,
		Subtotal:         models.NewMoneyFromDecimal(subtotal),
		TaxAmount:        models.NewMoneyFromDecimal(input.TaxAmount),
		TipAmount:        models.NewMoneyFromDecimal(input.TipAmount),
		TotalAmount:      models.NewMoneyFromDecimal(total),
		PickupAt:         input.PickupAt,
		Note:             strings.TrimSpace(input.Note),
	}

	if err := s.orderRepo.Create(order, items); err != nil {
		return nil, err
	}

	// 创建记录的审计条目 old_status 为 null
	s.appendHistory(order.ID, nil, constants.OrderStatusPending, "system", "")
	s.publishEvent(ctx, realtime.EventInsert, order)
	s.enqueueNotification(order.ID, constants.NotificationEventOrderCreated, false)
	return order, nil
}

// normalizePreferredChannel 归一化首选渠道，未知取值按未设置处理
func normalizePreferredChannel(channel string) string {
	normalized := notify.ChannelType(strings.ToLower(strings.TrimSpace(channel)))
	if !normalized.Valid() {
		return ""
	}
	return normalized.String()
}

// GetOrder 获取订单详情
func (s *OrderService) GetOrder(businessID, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(businessID, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrderByOrderNo 按订单编号获取订单
func (s *OrderService) GetOrderByOrderNo(businessID uint, orderNo string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(businessID, strings.TrimSpace(orderNo))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders 订单列表
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// GetStatusHistory 返回订单的审计记录（时间正序）
func (s *OrderService) GetStatusHistory(businessID, orderID uint) ([]models.OrderStatusHistory, error) {
	order, err := s.orderRepo.GetByID(businessID, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.historyRepo.ListByOrder(order.ID)
}

// UpdateStatus 推进订单状态。
// 状态写入使用乐观并发（条件更新），写入成功后追加审计记录、
// 发布实时事件，必要时派发通知；三者都是尽力而为，不回滚状态变更。
func (s *OrderService) UpdateStatus(ctx context.Context, businessID, orderID uint, input UpdateStatusInput) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(businessID, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	target := NormalizeStatus(input.Target)
	reason := strings.TrimSpace(input.Reason)
	if err := ValidateTransition(order.Status, target); err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"updated_at": now,
	}
	if column := statusTimestampColumn(target); column != "" && !lifecycleTimestampSet(order, target) {
		updates[column] = now
	}
	// 取消原因可选，提供时才写入
	if target == constants.OrderStatusCancelled && reason != "" {
		updates["cancel_reason"] = reason
	}

	previous := order.Status
	updated, err := s.orderRepo.UpdateStatusIf(order.ID, previous, target, updates)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrOrderConflict
	}

	applyStatusLocally(order, target, reason, now)
	s.appendHistory(order.ID, &previous, target, input.ChangedBy, reason)
	s.publishEvent(ctx, realtime.EventUpdate, order)

	if !input.SkipNotification {
		switch target {
		case constants.OrderStatusReady:
			if notifyReady, allChannels := s.readyNotifyPolicy(order.BusinessID); notifyReady {
				s.enqueueNotification(order.ID, constants.NotificationEventOrderReady, allChannels)
			}
		case constants.OrderStatusCancelled:
			s.enqueueNotification(order.ID, constants.NotificationEventOrderCancelled, false)
		}
	}
	return order, nil
}

// BulkUpdateStatus 批量推进状态，单条失败不影响其余订单
func (s *OrderService) BulkUpdateStatus(ctx context.Context, businessID uint, orderIDs []uint, input UpdateStatusInput) []BulkStatusResult {
	results := make([]BulkStatusResult, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		order, err := s.UpdateStatus(ctx, businessID, orderID, input)
		if err != nil {
			results = append(results, BulkStatusResult{OrderID: orderID, Error: err.Error()})
			continue
		}
		results = append(results, BulkStatusResult{OrderID: orderID, Status: order.Status})
	}
	return results
}

// CanCancelOrder 判断订单能否取消
func (s *OrderService) CanCancelOrder(businessID, orderID uint) (bool, error) {
	order, err := s.orderRepo.GetByID(businessID, orderID)
	if err != nil {
		return false, err
	}
	if order == nil {
		return false, ErrOrderNotFound
	}
	return CanCancelStatus(order.Status), nil
}

// GetOrderStats 订单统计
func (s *OrderService) GetOrderStats(businessID uint, from, to *time.Time) (*repository.OrderStats, error) {
	return s.orderRepo.Stats(businessID, from, to)
}

// GetOverdueOrders 返回超时未取的订单，最久的在前
func (s *OrderService) GetOverdueOrders(businessID uint) ([]models.Order, error) {
	slaMinutes := s.pickupSLAMins
	if businessID != 0 {
		business, err := s.businessRepo.GetByID(businessID)
		if err != nil {
			return nil, err
		}
		if business == nil {
			return nil, ErrBusinessNotFound
		}
		if business.PickupSLAMinutes > 0 {
			slaMinutes = business.PickupSLAMinutes
		}
	}
	return s.orderRepo.ListOverdue(businessID, time.Now(), slaMinutes)
}

func (s *OrderService) appendHistory(orderID uint, oldStatus *string, newStatus, changedBy, reason string) {
	entry := &models.OrderStatusHistory{
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ChangedBy: strings.TrimSpace(changedBy),
		Reason:    reason,
	}
	if err := s.historyRepo.Append(entry); err != nil {
		// 审计是尽力而为：失败只记日志，已提交的状态变更不回滚
		logger.Warnw("order_status_history_append_failed",
			"order_id", orderID,
			"new_status", newStatus,
			"error", err,
		)
	}
}

func (s *OrderService) publishEvent(ctx context.Context, kind realtime.EventKind, order *models.Order) {
	if s.publisher == nil || order == nil {
		return
	}
	event := realtime.OrderEvent{
		Kind:       kind,
		BusinessID: order.BusinessID,
		Order:      *order,
	}
	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		logger.Warnw("order_event_publish_failed",
			"order_id", order.ID,
			"kind", kind,
			"error", err,
		)
	}
}

func (s *OrderService) enqueueNotification(orderID uint, event string, allChannels bool) {
	if s.enqueuer == nil {
		return
	}
	if err := s.enqueuer.EnqueueNotificationDispatch(queue.NotificationDispatchPayload{
		OrderID:     orderID,
		Event:       event,
		AllChannels: allChannels,
	}); err != nil {
		logger.Warnw("order_notification_enqueue_failed",
			"order_id", orderID,
			"event", event,
			"error", err,
		)
	}
}

// readyNotifyPolicy 返回商家的就绪通知开关与扇出策略
func (s *OrderService) readyNotifyPolicy(businessID uint) (bool, bool) {
	business, err := s.businessRepo.GetByID(businessID)
	if err != nil {
		logger.Warnw("order_notify_business_fetch_failed", "business_id", businessID, "error", err)
		return false, false
	}
	if business == nil || !business.NotifyOnReady {
		return false, false
	}
	return true, business.NotifyAllChannels
}

// lifecycleTimestampSet 判断目标状态的时间戳是否已写入（只写一次）
func lifecycleTimestampSet(order *models.Order, status string) bool {
	switch NormalizeStatus(status) {
	case constants.OrderStatusConfirmed:
		return order.ConfirmedAt != nil
	case constants.OrderStatusPreparing:
		return order.PreparingAt != nil
	case constants.OrderStatusReady:
		return order.ReadyAt != nil
	case constants.OrderStatusPickedUp:
		return order.PickedUpAt != nil
	case constants.OrderStatusCancelled:
		return order.CancelledAt != nil
	default:
		return false
	}
}

func applyStatusLocally(order *models.Order, status, reason string, now time.Time) {
	order.Status = status
	order.UpdatedAt = now
	switch status {
	case constants.OrderStatusConfirmed:
		if order.ConfirmedAt == nil {
			order.ConfirmedAt = &now
		}
	case constants.OrderStatusPreparing:
		if order.PreparingAt == nil {
			order.PreparingAt = &now
		}
	case constants.OrderStatusReady:
		if order.ReadyAt == nil {
			order.ReadyAt = &now
		}
	case constants.OrderStatusPickedUp:
		if order.PickedUpAt == nil {
			order.PickedUpAt = &now
		}
	case constants.OrderStatusCancelled:
		if order.CancelledAt == nil {
			order.CancelledAt = &now
		}
		order.CancelReason = reason
	}
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("LP%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
