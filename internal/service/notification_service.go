package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lumipos/internal/cache"
	"github.com/lumipos/internal/constants"
	"github.com/lumipos/internal/logger"
	"github.com/lumipos/internal/models"
	"github.com/lumipos/internal/notify"
	"github.com/lumipos/internal/repository"
)

// NotificationService 通知派发器。
// 每次发送先落库为 pending 记录，再调用渠道发送器，
// 按结果标记 sent / failed；发送失败不会丢失记录，可由重试任务扫回。
type NotificationService struct {
	logRepo      repository.NotificationLogRepository
	orderRepo    repository.OrderRepository
	businessRepo repository.BusinessRepository
	senders      map[notify.ChannelType]notify.Sender

	batchConcurrency int
	maxRetries       int
	retryMaxAge      time.Duration
	dedupeTTL        time.Duration
}

// NewNotificationService 创建通知服务
func NewNotificationService(
	logRepo repository.NotificationLogRepository,
	orderRepo repository.OrderRepository,
	businessRepo repository.BusinessRepository,
	senders []notify.Sender,
	batchConcurrency, maxRetries int,
	retryMaxAge, dedupeTTL time.Duration,
) *NotificationService {
	if batchConcurrency <= 0 {
		batchConcurrency = constants.NotificationBatchConcurrency
	}
	if maxRetries <= 0 {
		maxRetries = constants.NotificationMaxRetriesDefault
	}
	if retryMaxAge <= 0 {
		retryMaxAge = time.Duration(constants.NotificationRetryMaxAgeHoursDefault) * time.Hour
	}
	byType := make(map[notify.ChannelType]notify.Sender, len(senders))
	for _, sender := range senders {
		if sender != nil {
			byType[sender.Type()] = sender
		}
	}
	return &NotificationService{
		logRepo:          logRepo,
		orderRepo:        orderRepo,
		businessRepo:     businessRepo,
		senders:          byType,
		batchConcurrency: batchConcurrency,
		maxRetries:       maxRetries,
		retryMaxAge:      retryMaxAge,
		dedupeTTL:        dedupeTTL,
	}
}

// SendInput 单条通知发送输入
type SendInput struct {
	BusinessID uint
	OrderID    uint
	Channel    notify.ChannelType
	Event      string
	Recipient  string
	Locale     string
	Subject    string
	Body       string
	Priority   int
}

// BatchSendResult 批量发送单条结果
type BatchSendResult struct {
	LogID uint   `json:"log_id,omitempty"`
	Error string `json:"error,omitempty"`
}

// Send 发送单条通知：先创建 pending 记录，再投递并标记结果。
// 返回的记录反映最终状态；投递失败时记录保留为 failed 并返回错误。
func (s *NotificationService) Send(ctx context.Context, input SendInput) (*models.NotificationLog, error) {
	if !input.Channel.Valid() {
		return nil, ErrUnknownChannel
	}
	entry := &models.NotificationLog{
		BusinessID: input.BusinessID,
		OrderID:    input.OrderID,
		Channel:    input.Channel.String(),
		Event:      input.Event,
		Recipient:  strings.TrimSpace(input.Recipient),
		Locale:     normalizeNotificationLocale(input.Locale),
		Subject:    input.Subject,
		Body:       input.Body,
		Status:     constants.NotificationStatusPending,
		Priority:   input.Priority,
	}
	if err := s.logRepo.Create(entry); err != nil {
		return nil, err
	}
	if err := s.deliver(ctx, entry); err != nil {
		return entry, err
	}
	return entry, nil
}

// deliver 投递一条已落库的通知并更新其状态
func (s *NotificationService) deliver(ctx context.Context, entry *models.NotificationLog) error {
	sender, ok := s.senders[notify.ChannelType(entry.Channel)]
	if !ok {
		s.markFailed(entry, ErrUnknownChannel.Error())
		return fmt.Errorf("%w: %s", ErrUnknownChannel, entry.Channel)
	}

	result, err := sender.Send(ctx, notify.Message{
		Recipient: entry.Recipient,
		Subject:   entry.Subject,
		Body:      entry.Body,
	})
	if err != nil {
		s.markFailed(entry, err.Error())
		return fmt.Errorf("%w: %v", ErrNotificationSendFailed, err)
	}

	now := time.Now()
	if dbErr := s.logRepo.MarkSent(entry.ID, result.ProviderMessageID, now); dbErr != nil {
		logger.Warnw("notification_mark_sent_failed", "log_id", entry.ID, "error", dbErr)
	}
	entry.Status = constants.NotificationStatusSent
	entry.ProviderMessageID = result.ProviderMessageID
	entry.Error = ""
	entry.SentAt = &now
	if result.Stubbed {
		logger.Infow("notification_sent_stubbed",
			"log_id", entry.ID,
			"channel", entry.Channel,
			"event", entry.Event,
		)
	}
	return nil
}

func (s *NotificationService) markFailed(entry *models.NotificationLog, sendErr string) {
	if dbErr := s.logRepo.MarkFailed(entry.ID, sendErr); dbErr != nil {
		logger.Warnw("notification_mark_failed_failed", "log_id", entry.ID, "error", dbErr)
	}
	entry.Status = constants.NotificationStatusFailed
	entry.Error = sendErr
	entry.RetryCount++
}

// SendEmail 发送单条邮件通知
func (s *NotificationService) SendEmail(ctx context.Context, input SendInput) (*models.NotificationLog, error) {
	input.Channel = notify.ChannelEmail
	return s.Send(ctx, input)
}

// SendSMS 发送单条短信通知
func (s *NotificationService) SendSMS(ctx context.Context, input SendInput) (*models.NotificationLog, error) {
	input.Channel = notify.ChannelSMS
	return s.Send(ctx, input)
}

// SendTelegram 发送单条 Telegram 通知
func (s *NotificationService) SendTelegram(ctx context.Context, input SendInput) (*models.NotificationLog, error) {
	input.Channel = notify.ChannelTelegram
	return s.Send(ctx, input)
}

// SendOrderCreated 订单创建后的复合通知，只发顾客的首选渠道
func (s *NotificationService) SendOrderCreated(ctx context.Context, orderID uint) error {
	return s.sendOrderEvent(ctx, orderID, constants.NotificationEventOrderCreated, false)
}

// SendOrderReady 订单就绪后的复合通知。
// allChannels 为 true 时向全部可用渠道扇出，否则只发顾客的首选渠道。
func (s *NotificationService) SendOrderReady(ctx context.Context, orderID uint, allChannels bool) error {
	return s.sendOrderEvent(ctx, orderID, constants.NotificationEventOrderReady, allChannels)
}

// SendOrderCancelled 订单取消后的复合通知，只发顾客的首选渠道
func (s *NotificationService) SendOrderCancelled(ctx context.Context, orderID uint) error {
	return s.sendOrderEvent(ctx, orderID, constants.NotificationEventOrderCancelled, false)
}

// SendPickupReminder 超时未取的提醒通知，只发顾客的首选渠道
func (s *NotificationService) SendPickupReminder(ctx context.Context, orderID uint) error {
	return s.sendOrderEvent(ctx, orderID, constants.NotificationEventOrderReminder, false)
}

// sendOrderEvent 发送某个订单事件的通知。
// 单渠道失败只记日志并继续其余渠道，最终返回首个错误。
func (s *NotificationService) sendOrderEvent(ctx context.Context, orderID uint, event string, allChannels bool) error {
	order, err := s.orderRepo.GetByID(0, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	business, err := s.businessRepo.GetByID(order.BusinessID)
	if err != nil {
		return err
	}
	if business == nil {
		return ErrBusinessNotFound
	}

	// 同一订单同一事件只派发一次
	dedupeKey := fmt.Sprintf("notify:dispatched:%d:%s", order.ID, event)
	first, err := cache.SetNX(ctx, dedupeKey, s.dedupeTTL)
	if err != nil {
		logger.Warnw("notification_dedupe_check_failed", "order_id", order.ID, "event", event, "error", err)
	} else if !first {
		logger.Debugw("notification_skip_duplicate", "order_id", order.ID, "event", event)
		return nil
	}

	locale := order.Locale
	if locale == "" {
		locale = business.DefaultLocale
	}
	input := TemplateInput{
		OrderNo:      order.OrderNo,
		CustomerName: order.CustomerName,
		BusinessName: business.Name,
		PickupAt:     order.PickupAt,
		CancelReason: order.CancelReason,
		Total:        order.TotalAmount.String(),
	}

	targets := availableTargets(business, order)
	if !allChannels {
		targets = pickPreferredTarget(targets, order.PreferredChannel)
	}

	var firstErr error
	sent := 0
	for _, target := range targets {
		subject, body := buildNotificationContent(event, target.channel, input, locale)
		_, sendErr := s.Send(ctx, SendInput{
			BusinessID: business.ID,
			OrderID:    order.ID,
			Channel:    target.channel,
			Event:      event,
			Recipient:  target.recipient,
			Locale:     locale,
			Subject:    subject,
			Body:       body,
		})
		if sendErr != nil {
			logger.Warnw("notification_channel_send_failed",
				"order_id", order.ID,
				"event", event,
				"channel", target.channel,
				"error", sendErr,
			)
			if firstErr == nil {
				firstErr = sendErr
			}
			continue
		}
		sent++
	}
	if sent > 0 {
		s.markOrderNotified(order, event)
	}
	return firstErr
}

// markOrderNotified 尽力而为地回写订单上的通知标记
func (s *NotificationService) markOrderNotified(order *models.Order, event string) {
	var err error
	switch event {
	case constants.NotificationEventOrderReady:
		err = s.orderRepo.MarkNotificationSent(order.ID)
		order.NotificationSent = true
	case constants.NotificationEventOrderReminder:
		err = s.orderRepo.MarkReminderSent(order.ID)
		order.ReminderSent = true
	default:
		return
	}
	if err != nil {
		logger.Warnw("order_notification_flag_update_failed",
			"order_id", order.ID,
			"event", event,
			"error", err,
		)
	}
}

type notificationTarget struct {
	channel   notify.ChannelType
	recipient string
}

// availableTargets 按商家渠道开关与可用收件人列出可达渠道。
// Telegram 优先用顾客自己的会话 ID，缺失时退回商家会话。
func availableTargets(business *models.Business, order *models.Order) []notificationTarget {
	var targets []notificationTarget
	if business.EmailEnabled && strings.TrimSpace(order.CustomerEmail) != "" {
		targets = append(targets, notificationTarget{notify.ChannelEmail, order.CustomerEmail})
	}
	if business.SMSEnabled && strings.TrimSpace(order.CustomerPhone) != "" {
		targets = append(targets, notificationTarget{notify.ChannelSMS, order.CustomerPhone})
	}
	if business.TelegramEnabled {
		chatID := strings.TrimSpace(order.CustomerChatID)
		if chatID == "" {
			chatID = strings.TrimSpace(business.TelegramChatID)
		}
		if chatID != "" {
			targets = append(targets, notificationTarget{notify.ChannelTelegram, chatID})
		}
	}
	return targets
}

// pickPreferredTarget 收敛到顾客的首选渠道。
// 首选渠道不可达（未启用或缺联系方式）时退回第一个可达渠道。
func pickPreferredTarget(targets []notificationTarget, preferred string) []notificationTarget {
	if len(targets) == 0 {
		return nil
	}
	channel := notify.ChannelType(strings.ToLower(strings.TrimSpace(preferred)))
	for _, target := range targets {
		if target.channel == channel {
			return []notificationTarget{target}
		}
	}
	return targets[:1]
}

// BatchSend 批量发送：高优先级在前，按固定并发度投递。
// 单条失败不影响其余条目，结果与排序后的输入一一对应。
func (s *NotificationService) BatchSend(ctx context.Context, inputs []SendInput) []BatchSendResult {
	sorted := make([]SendInput, len(inputs))
	copy(sorted, inputs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	results := make([]BatchSendResult, len(sorted))
	sem := make(chan struct{}, s.batchConcurrency)
	var wg sync.WaitGroup
	for i := range sorted {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			entry, err := s.Send(ctx, sorted[idx])
			if entry != nil {
				results[idx].LogID = entry.ID
			}
			if err != nil {
				results[idx].Error = err.Error()
			}
		}(i)
	}
	wg.Wait()
	return results
}

// RetrySweepResult 失败重试扫描的结果计数
type RetrySweepResult struct {
	Retried int `json:"retried"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// RetryFailedNotifications 重试失败的通知。
// 只处理重试次数未达上限且未过期的记录，边界由查询谓词保证。
// 没有对应发送器的记录跳过且不消耗重试次数。
func (s *NotificationService) RetryFailedNotifications(ctx context.Context, businessID uint) (RetrySweepResult, error) {
	var result RetrySweepResult
	since := time.Now().Add(-s.retryMaxAge)
	entries, err := s.logRepo.ListRetryable(businessID, s.maxRetries, since, 0)
	if err != nil {
		return result, err
	}

	for i := range entries {
		entry := entries[i]
		if _, ok := s.senders[notify.ChannelType(entry.Channel)]; !ok {
			logger.Debugw("notification_retry_skip_channel", "log_id", entry.ID, "channel", entry.Channel)
			result.Skipped++
			continue
		}
		if err := s.deliver(ctx, &entry); err != nil {
			logger.Warnw("notification_retry_failed",
				"log_id", entry.ID,
				"channel", entry.Channel,
				"retry_count", entry.RetryCount,
				"error", err,
			)
			result.Errors++
			continue
		}
		result.Retried++
	}
	if len(entries) > 0 {
		logger.Infow("notification_retry_sweep_done",
			"business_id", businessID,
			"scanned", len(entries),
			"retried", result.Retried,
			"skipped", result.Skipped,
			"errors", result.Errors,
		)
	}
	return result, nil
}

// GetNotificationHistory 返回订单的通知历史，最新在前。
// channel 非空时只返回该渠道的记录。
func (s *NotificationService) GetNotificationHistory(orderID uint, channel string) ([]models.NotificationLog, error) {
	return s.logRepo.ListByOrder(orderID, strings.TrimSpace(channel))
}

// ListNotifications 通知记录列表
func (s *NotificationService) ListNotifications(filter repository.NotificationLogListFilter) ([]models.NotificationLog, int64, error) {
	return s.logRepo.List(filter)
}

// MarkAsDelivered 标记通知已送达（通常来自渠道回执）。
// 记录不存在返回 ErrNotificationNotFound，持久化失败原样上抛。
func (s *NotificationService) MarkAsDelivered(notificationID uint) (*models.NotificationLog, error) {
	entry, err := s.logRepo.GetByID(notificationID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotificationNotFound
	}
	now := time.Now()
	if err := s.logRepo.MarkDelivered(entry.ID, now); err != nil {
		return nil, err
	}
	entry.Status = constants.NotificationStatusDelivered
	entry.DeliveredAt = &now
	return entry, nil
}
