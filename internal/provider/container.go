package provider

import (
	"time"

	"github.com/lumipos/internal/cache"
	"github.com/lumipos/internal/config"
	"github.com/lumipos/internal/logger"
	"github.com/lumipos/internal/models"
	"github.com/lumipos/internal/notify"
	"github.com/lumipos/internal/queue"
	"github.com/lumipos/internal/realtime"
	"github.com/lumipos/internal/repository"
	"github.com/lumipos/internal/service"
)

// Container 依赖注入容器，聚合仓库与服务实例
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// 仓库
	BusinessRepo        repository.BusinessRepository
	OrderRepo           repository.OrderRepository
	HistoryRepo         repository.StatusHistoryRepository
	NotificationLogRepo repository.NotificationLogRepository

	// 实时层
	Publisher realtime.Publisher
	Feed      realtime.Feed

	// 服务
	OrderService        *service.OrderService
	NotificationService *service.NotificationService
}

// NewContainer 创建并初始化容器
func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	if err := cache.InitRedis(&cfg.Redis); err != nil {
		return nil, err
	}

	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		return nil, err
	}
	c.QueueClient = queueClient
	if !queueClient.Enabled() {
		logger.Warnw("queue_disabled", "hint", "notification dispatch runs only via direct calls")
	}

	c.initRepositories()
	c.initServices()
	return c, nil
}

func (c *Container) initRepositories() {
	c.BusinessRepo = repository.NewBusinessRepository(models.DB)
	c.OrderRepo = repository.NewOrderRepository(models.DB)
	c.HistoryRepo = repository.NewStatusHistoryRepository(models.DB)
	c.NotificationLogRepo = repository.NewNotificationLogRepository(models.DB)
}

func (c *Container) initServices() {
	cfg := c.Config

	c.Publisher = realtime.NewRedisPublisher()
	c.Feed = realtime.NewRedisFeed()

	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.HistoryRepo,
		c.BusinessRepo,
		c.QueueClient,
		c.Publisher,
		cfg.Order.PickupSLAMinutes,
	)

	senders := []notify.Sender{
		notify.NewEmailSender(&cfg.Email),
		notify.NewSMSSender(&cfg.SMS),
		notify.NewTelegramSender(&cfg.Telegram),
	}
	c.NotificationService = service.NewNotificationService(
		c.NotificationLogRepo,
		c.OrderRepo,
		c.BusinessRepo,
		senders,
		cfg.Notification.BatchConcurrency,
		cfg.Notification.MaxRetries,
		cfg.Notification.RetryMaxAge(),
		time.Duration(cfg.Notification.DedupeTTLSeconds)*time.Second,
	)
}

// Close 释放容器持有的资源
func (c *Container) Close() {
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("queue_client_close_failed", "error", err)
		}
	}
}
