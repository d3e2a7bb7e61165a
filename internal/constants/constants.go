package constants

// 订单状态常量
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusPickedUp  = "picked_up"
	OrderStatusCancelled = "cancelled"
)

// 通知事件常量
const (
	NotificationEventOrderCreated   = "order_created"
	NotificationEventOrderReady     = "order_ready"
	NotificationEventOrderCancelled = "order_cancelled"
	NotificationEventOrderReminder  = "order_reminder"
)

// 通知状态常量
const (
	NotificationStatusPending   = "pending"
	NotificationStatusSent      = "sent"
	NotificationStatusFailed    = "failed"
	NotificationStatusDelivered = "delivered"
)

// 通知渠道常量
const (
	NotificationChannelEmail    = "email"
	NotificationChannelSMS      = "sms"
	NotificationChannelTelegram = "telegram"
)

// 队列常量
const (
	QueueDefault             = "default"
	TaskNotificationDispatch = "notification:dispatch"
	TaskNotificationRetry    = "notification:retry"
	TaskOrderOverdueCheck    = "order:overdue_check"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "lp"
)

// 站点语言常量
const (
	LocaleZhCN = "zh-CN"
	LocaleEnUS = "en-US"
)

// 支持的站点语言顺序（含回退顺序）
var SupportedLocales = []string{LocaleEnUS, LocaleZhCN}

// 通知默认配置常量
const (
	NotificationMaxRetriesDefault       = 3
	NotificationRetryMaxAgeHoursDefault = 24
	NotificationBatchConcurrency        = 5
)

// 订单默认配置常量
const (
	OrderPickupSLAMinutesDefault = 30
)
