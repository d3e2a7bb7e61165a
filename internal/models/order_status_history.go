package models

import "time"

// OrderStatusHistory 订单状态流转审计记录（仅追加）
type OrderStatusHistory struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	OrderID   uint      `gorm:"index;not null" json:"order_id"`
	OldStatus *string   `gorm:"type:varchar(20)" json:"old_status"` // 创建记录为 null
	NewStatus string    `gorm:"type:varchar(20);not null" json:"new_status"`
	ChangedBy string    `gorm:"type:varchar(120)" json:"changed_by"`
	Reason    string    `gorm:"type:varchar(500)" json:"reason,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (OrderStatusHistory) TableName() string {
	return "order_status_histories"
}
