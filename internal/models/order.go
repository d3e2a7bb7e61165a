package models

import "time"

// Order 订单表
type Order struct {
	ID               uint       `gorm:"primarykey" json:"id"`                                      // 主键
	BusinessID       uint       `gorm:"index;not null" json:"business_id"`                         // 商家ID
	OrderNo          string     `gorm:"uniqueIndex;not null" json:"order_no"`                      // 订单编号
	CustomerName     string     `gorm:"type:varchar(120)" json:"customer_name"`                    // 顾客姓名
	CustomerEmail    string     `gorm:"index;type:varchar(200)" json:"customer_email,omitempty"`   // 顾客邮箱
	CustomerPhone    string     `gorm:"type:varchar(40)" json:"customer_phone,omitempty"`          // 顾客手机号
	CustomerChatID   string     `gorm:"type:varchar(64)" json:"customer_chat_id,omitempty"`        // 顾客机器人会话 ID
	PreferredChannel string     `gorm:"type:varchar(20)" json:"preferred_channel,omitempty"`       // 顾客首选通知渠道
	Locale           string     `gorm:"type:varchar(20)" json:"locale,omitempty"`                  // 顾客语言
	Status           string     `gorm:"index;not null" json:"status"`                              // 订单状态
	Subtotal         Money      `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`     // 商品小计
	TaxAmount        Money      `gorm:"type:decimal(20,2);not null;default:0" json:"tax_amount"`   // 税费
	TipAmount        Money      `gorm:"type:decimal(20,2);not null;default:0" json:"tip_amount"`   // 小费
	TotalAmount      Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 应付总额
	PickupAt         *time.Time `gorm:"index" json:"pickup_at"`                                    // 预约取餐时间
	Note             string     `gorm:"type:varchar(500)" json:"note,omitempty"`                   // 订单备注
	CancelReason     string     `gorm:"type:varchar(500)" json:"cancel_reason,omitempty"`          // 取消原因
	NotificationSent bool       `gorm:"not null;default:false" json:"notification_sent"`           // 就绪通知是否已发出
	ReminderSent     bool       `gorm:"not null;default:false" json:"reminder_sent"`               // 取餐提醒是否已发出
	ConfirmedAt      *time.Time `json:"confirmed_at"`                                              // 确认时间
	PreparingAt      *time.Time `json:"preparing_at"`                                              // 开始备餐时间
	ReadyAt          *time.Time `json:"ready_at"`                                                  // 出餐就绪时间
	PickedUpAt       *time.Time `json:"picked_up_at"`                                              // 取餐时间
	CancelledAt      *time.Time `json:"cancelled_at"`                                              // 取消时间
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt        time.Time  `gorm:"index" json:"updated_at"`                                   // 更新时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// OrderItem 订单项表
type OrderItem struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	OrderID    uint      `gorm:"index;not null" json:"order_id"`
	Name       string    `gorm:"not null" json:"name"`
	Quantity   int       `gorm:"not null;default:1" json:"quantity"`
	UnitPrice  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`
	TotalPrice Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
