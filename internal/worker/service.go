package worker

import (
	"context"
	"time"

	"github.com/lumipos/internal/logger"
	"github.com/lumipos/internal/provider"
	"github.com/lumipos/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 后台任务服务：消费异步队列并驱动周期性巡检
type Service struct {
	container *provider.Container
	server    *asynq.Server
}

// NewService 创建后台任务服务
func NewService(container *provider.Container) *Service {
	return &Service{container: container}
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 启动消费者与巡检循环，阻塞直到 ctx 取消
func (s *Service) Start(ctx context.Context) error {
	cfg := s.container.Config
	if !cfg.Queue.Enabled {
		logger.Warnw("worker_disabled", "reason", "queue not enabled")
		<-ctx.Done()
		return nil
	}

	opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
	s.server = asynq.NewServer(opt, serverCfg)

	mux := asynq.NewServeMux()
	NewConsumer(s.container).Register(mux)

	if err := s.server.Start(mux); err != nil {
		return err
	}
	logger.Infow("worker_started",
		"concurrency", serverCfg.Concurrency,
		"retry_sweep_seconds", cfg.Notification.RetrySweepSeconds,
		"overdue_sweep_seconds", cfg.Order.OverdueSweepSeconds,
	)

	s.runSweepLoops(ctx)
	return nil
}

// runSweepLoops 周期性推送重试扫描与超时巡检任务
func (s *Service) runSweepLoops(ctx context.Context) {
	cfg := s.container.Config

	retryInterval := time.Duration(cfg.Notification.RetrySweepSeconds) * time.Second
	if retryInterval <= 0 {
		retryInterval = 5 * time.Minute
	}
	overdueInterval := time.Duration(cfg.Order.OverdueSweepSeconds) * time.Second
	if overdueInterval <= 0 {
		overdueInterval = time.Minute
	}

	retryTicker := time.NewTicker(retryInterval)
	overdueTicker := time.NewTicker(overdueInterval)
	defer retryTicker.Stop()
	defer overdueTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-retryTicker.C:
			if err := s.container.QueueClient.EnqueueNotificationRetry(queue.NotificationRetryPayload{}); err != nil {
				logger.Warnw("notification_retry_enqueue_failed", "error", err)
			}
		case <-overdueTicker.C:
			if err := s.container.QueueClient.EnqueueOrderOverdueCheck(queue.OrderOverdueCheckPayload{}); err != nil {
				logger.Warnw("order_overdue_enqueue_failed", "error", err)
			}
		}
	}
}

// Stop 优雅停止
func (s *Service) Stop(ctx context.Context) error {
	if s.server != nil {
		s.server.Shutdown()
	}
	logger.Infow("worker_stopped")
	return nil
}
