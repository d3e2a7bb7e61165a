package repository

import (
	"errors"
	"time"

	"github.com/lumipos/internal/constants"
	"github.com/lumipos/internal/models"

	"gorm.io/gorm"
)

// NotificationLogRepository 通知记录数据访问接口
type NotificationLogRepository interface {
	Create(entry *models.NotificationLog) error
	GetByID(id uint) (*models.NotificationLog, error)
	ListByOrder(orderID uint, channel string) ([]models.NotificationLog, error)
	List(filter NotificationLogListFilter) ([]models.NotificationLog, int64, error)
	ListRetryable(businessID uint, maxRetries int, since time.Time, limit int) ([]models.NotificationLog, error)
	MarkSent(id uint, providerMessageID string, sentAt time.Time) error
	MarkFailed(id uint, sendErr string) error
	MarkDelivered(id uint, deliveredAt time.Time) error
	WithTx(tx *gorm.DB) *GormNotificationLogRepository
}

// GormNotificationLogRepository GORM 实现
type GormNotificationLogRepository struct {
	db *gorm.DB
}

// NewNotificationLogRepository 创建通知记录仓库
func NewNotificationLogRepository(db *gorm.DB) *GormNotificationLogRepository {
	return &GormNotificationLogRepository{db: db}
}

// WithTx 绑定事务
func (r *GormNotificationLogRepository) WithTx(tx *gorm.DB) *GormNotificationLogRepository {
	if tx == nil {
		return r
	}
	return &GormNotificationLogRepository{db: tx}
}

// Create 创建通知记录
func (r *GormNotificationLogRepository) Create(entry *models.NotificationLog) error {
	return r.db.Create(entry).Error
}

// GetByID 根据 ID 获取通知记录
func (r *GormNotificationLogRepository) GetByID(id uint) (*models.NotificationLog, error) {
	var entry models.NotificationLog
	if err := r.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListByOrder 按时间倒序返回订单的通知历史，channel 非空时只看单一渠道
func (r *GormNotificationLogRepository) ListByOrder(orderID uint, channel string) ([]models.NotificationLog, error) {
	var entries []models.NotificationLog
	query := r.db.Where("order_id = ?", orderID)
	if channel != "" {
		query = query.Where("channel = ?", channel)
	}
	if err := query.Order("id desc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// List 通知记录列表
func (r *GormNotificationLogRepository) List(filter NotificationLogListFilter) ([]models.NotificationLog, int64, error) {
	var entries []models.NotificationLog
	query := r.db.Model(&models.NotificationLog{})

	if filter.BusinessID != 0 {
		query = query.Where("business_id = ?", filter.BusinessID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if filter.Event != "" {
		query = query.Where("event = ?", filter.Event)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("id desc").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListRetryable 查询可重试的失败通知。
// 重试边界（次数与时效）在查询谓词中收紧，而不是取出后再过滤。
func (r *GormNotificationLogRepository) ListRetryable(businessID uint, maxRetries int, since time.Time, limit int) ([]models.NotificationLog, error) {
	if maxRetries <= 0 {
		maxRetries = constants.NotificationMaxRetriesDefault
	}
	var entries []models.NotificationLog
	query := r.db.
		Where("status = ?", constants.NotificationStatusFailed).
		Where("retry_count < ?", maxRetries).
		Where("created_at >= ?", since)
	if businessID != 0 {
		query = query.Where("business_id = ?", businessID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("id asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkSent 标记发送成功
func (r *GormNotificationLogRepository) MarkSent(id uint, providerMessageID string, sentAt time.Time) error {
	return r.db.Model(&models.NotificationLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":              constants.NotificationStatusSent,
			"provider_message_id": providerMessageID,
			"error":               "",
			"sent_at":             sentAt,
		}).Error
}

// MarkFailed 标记发送失败并累加重试计数
func (r *GormNotificationLogRepository) MarkFailed(id uint, sendErr string) error {
	return r.db.Model(&models.NotificationLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      constants.NotificationStatusFailed,
			"error":       sendErr,
			"retry_count": gorm.Expr("retry_count + 1"),
		}).Error
}

// MarkDelivered 标记已送达
func (r *GormNotificationLogRepository) MarkDelivered(id uint, deliveredAt time.Time) error {
	return r.db.Model(&models.NotificationLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       constants.NotificationStatusDelivered,
			"delivered_at": deliveredAt,
		}).Error
}
