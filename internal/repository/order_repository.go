package repository

import (
	"errors"
	"time"

	"github.com/lumipos/internal/constants"
	"github.com/lumipos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// activeBoardStatuses 实时看板展示的订单状态
var activeBoardStatuses = []string{
	constants.OrderStatusPending,
	constants.OrderStatusConfirmed,
	constants.OrderStatusPreparing,
	constants.OrderStatusReady,
}

// overdueStatuses 可能超时的订单状态
var overdueStatuses = []string{
	constants.OrderStatusConfirmed,
	constants.OrderStatusPreparing,
	constants.OrderStatusReady,
}

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(businessID, id uint) (*models.Order, error)
	GetByOrderNo(businessID uint, orderNo string) (*models.Order, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)
	ListBoard(businessID uint) ([]models.Order, error)
	ListOverdue(businessID uint, asOf time.Time, slaMinutes int) ([]models.Order, error)
	UpdateStatusIf(id uint, expectedStatus, status string, updates map[string]interface{}) (bool, error)
	MarkNotificationSent(id uint) error
	MarkReminderSent(id uint) error
	Stats(businessID uint, from, to *time.Time) (*OrderStats, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
		order.Items = items
	}
	return nil
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(businessID, id uint) (*models.Order, error) {
	var order models.Order
	query := r.db.Preload("Items")
	if businessID != 0 {
		query = query.Where("business_id = ?", businessID)
	}
	if err := query.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo 根据订单编号获取订单
func (r *GormOrderRepository) GetByOrderNo(businessID uint, orderNo string) (*models.Order, error) {
	var order models.Order
	query := r.db.Preload("Items").Where("order_no = ?", orderNo)
	if businessID != 0 {
		query = query.Where("business_id = ?", businessID)
	}
	if err := query.First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// List 订单列表
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	query := r.db.Model(&models.Order{})

	if filter.BusinessID != 0 {
		query = query.Where("business_id = ?", filter.BusinessID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no = ?", filter.OrderNo)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("customer_name LIKE ? OR customer_phone LIKE ? OR customer_email LIKE ?", like, like, like)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Preload("Items").Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListBoard 实时看板快照：进行中的订单，新单在前
func (r *GormOrderRepository) ListBoard(businessID uint) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.Preload("Items").
		Where("business_id = ? AND status IN ?", businessID, activeBoardStatuses).
		Order("id desc").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListOverdue 查询超时未取的订单，最久的在前。
// pickup_at 为空时退回 created_at + SLA 判断。
func (r *GormOrderRepository) ListOverdue(businessID uint, asOf time.Time, slaMinutes int) ([]models.Order, error) {
	if slaMinutes <= 0 {
		slaMinutes = constants.OrderPickupSLAMinutesDefault
	}
	createdCutoff := asOf.Add(-time.Duration(slaMinutes) * time.Minute)

	var orders []models.Order
	query := r.db.Preload("Items").
		Where("status IN ?", overdueStatuses).
		Where("(pickup_at IS NOT NULL AND pickup_at < ?) OR (pickup_at IS NULL AND created_at < ?)", asOf, createdCutoff)
	if businessID != 0 {
		query = query.Where("business_id = ?", businessID)
	}
	if err := query.Order("created_at asc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatusIf 乐观并发更新：仅当当前状态仍为 expectedStatus 时生效。
// 返回 false 表示订单状态已被并发修改。
func (r *GormOrderRepository) UpdateStatusIf(id uint, expectedStatus, status string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, expectedStatus).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkNotificationSent 记录就绪通知已发出
func (r *GormOrderRepository) MarkNotificationSent(id uint) error {
	return r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Update("notification_sent", true).Error
}

// MarkReminderSent 记录取餐提醒已发出
func (r *GormOrderRepository) MarkReminderSent(id uint) error {
	return r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Update("reminder_sent", true).Error
}

// Stats 订单统计：按状态计数、已取餐营收、取消率、平均备餐时长
func (r *GormOrderRepository) Stats(businessID uint, from, to *time.Time) (*OrderStats, error) {
	base := func() *gorm.DB {
		query := r.db.Model(&models.Order{})
		if businessID != 0 {
			query = query.Where("business_id = ?", businessID)
		}
		if from != nil {
			query = query.Where("created_at >= ?", *from)
		}
		if to != nil {
			query = query.Where("created_at <= ?", *to)
		}
		return query
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := base().Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &OrderStats{CountsByStatus: map[string]int64{}}
	for _, row := range rows {
		stats.CountsByStatus[row.Status] = row.Count
		stats.TotalOrders += row.Count
	}
	if stats.TotalOrders > 0 {
		stats.CancelRate = float64(stats.CountsByStatus[constants.OrderStatusCancelled]) / float64(stats.TotalOrders)
	}

	var revenueRows []struct {
		Total models.Money
	}
	if err := base().
		Select("total_amount as total").
		Where("status = ?", constants.OrderStatusPickedUp).
		Scan(&revenueRows).Error; err != nil {
		return nil, err
	}
	revenue := decimal.Zero
	for _, row := range revenueRows {
		revenue = revenue.Add(row.Total.Decimal)
	}
	stats.Revenue = models.NewMoneyFromDecimal(revenue).String()

	// 平均备餐时长在内存中计算，避免依赖各数据库的时间差函数
	var readyRows []struct {
		CreatedAt time.Time
		ReadyAt   *time.Time
	}
	if err := base().
		Select("created_at, ready_at").
		Where("ready_at IS NOT NULL").
		Scan(&readyRows).Error; err != nil {
		return nil, err
	}
	var totalMinutes float64
	for _, row := range readyRows {
		if row.ReadyAt == nil {
			continue
		}
		totalMinutes += row.ReadyAt.Sub(row.CreatedAt).Minutes()
		stats.ReadySampleSize++
	}
	if stats.ReadySampleSize > 0 {
		stats.AvgPrepMinutes = totalMinutes / float64(stats.ReadySampleSize)
	}
	return stats, nil
}
