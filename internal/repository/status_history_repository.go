package repository

import (
	"github.com/lumipos/internal/models"

	"gorm.io/gorm"
)

// StatusHistoryRepository 订单状态审计记录数据访问接口
type StatusHistoryRepository interface {
	Append(entry *models.OrderStatusHistory) error
	ListByOrder(orderID uint) ([]models.OrderStatusHistory, error)
	WithTx(tx *gorm.DB) *GormStatusHistoryRepository
}

// GormStatusHistoryRepository GORM 实现
type GormStatusHistoryRepository struct {
	db *gorm.DB
}

// NewStatusHistoryRepository 创建状态审计仓库
func NewStatusHistoryRepository(db *gorm.DB) *GormStatusHistoryRepository {
	return &GormStatusHistoryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormStatusHistoryRepository) WithTx(tx *gorm.DB) *GormStatusHistoryRepository {
	if tx == nil {
		return r
	}
	return &GormStatusHistoryRepository{db: tx}
}

// Append 追加一条审计记录
func (r *GormStatusHistoryRepository) Append(entry *models.OrderStatusHistory) error {
	return r.db.Create(entry).Error
}

// ListByOrder 按时间正序返回订单的全部审计记录
func (r *GormStatusHistoryRepository) ListByOrder(orderID uint) ([]models.OrderStatusHistory, error) {
	var entries []models.OrderStatusHistory
	if err := r.db.Where("order_id = ?", orderID).Order("id asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
