package models

import "time"

// NotificationLog 通知发送记录表
type NotificationLog struct {
	ID                uint       `gorm:"primarykey" json:"id"`
	BusinessID        uint       `gorm:"index;not null" json:"business_id"`
	OrderID           uint       `gorm:"index;not null" json:"order_id"`
	Channel           string     `gorm:"index;type:varchar(20);not null" json:"channel"` // email / sms / telegram
	Event             string     `gorm:"index;type:varchar(40);not null" json:"event"`   // order_created / order_ready / order_cancelled
	Recipient         string     `gorm:"type:varchar(200)" json:"recipient"`
	Locale            string     `gorm:"type:varchar(20)" json:"locale,omitempty"`
	Subject           string     `gorm:"type:varchar(300)" json:"subject,omitempty"`
	Body              string     `gorm:"type:text" json:"body,omitempty"`
	Status            string     `gorm:"index;type:varchar(20);not null" json:"status"` // pending / sent / failed / delivered
	ProviderMessageID string     `gorm:"type:varchar(120)" json:"provider_message_id,omitempty"`
	Error             string     `gorm:"type:varchar(1000)" json:"error,omitempty"`
	RetryCount        int        `gorm:"not null;default:0" json:"retry_count"`
	Priority          int        `gorm:"not null;default:0" json:"priority"`
	SentAt            *time.Time `json:"sent_at"`
	DeliveredAt       *time.Time `json:"delivered_at"`
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (NotificationLog) TableName() string {
	return "notification_logs"
}
