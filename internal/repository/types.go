package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	BusinessID  uint
	Status      string
	OrderNo     string
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// NotificationLogListFilter 查询通知记录列表的过滤条件
type NotificationLogListFilter struct {
	Page       int
	PageSize   int
	BusinessID uint
	OrderID    uint
	Channel    string
	Event      string
	Status     string
}

// OrderStats 订单统计结果
type OrderStats struct {
	CountsByStatus  map[string]int64 `json:"counts_by_status"`
	TotalOrders     int64            `json:"total_orders"`
	Revenue         string           `json:"revenue"`          // 已取餐订单金额合计（2 位小数）
	CancelRate      float64          `json:"cancel_rate"`      // 取消率（0~1）
	AvgPrepMinutes  float64          `json:"avg_prep_minutes"` // 创建到就绪的平均耗时（分钟）
	ReadySampleSize int64            `json:"ready_sample_size"`
}
