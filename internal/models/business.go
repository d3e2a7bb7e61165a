package models

import "time"

// Business 商家（租户）表
type Business struct {
	ID                uint      `gorm:"primarykey" json:"id"`                             // 主键
	Name              string    `gorm:"not null" json:"name"`                             // 商家名称
	Slug              string    `gorm:"uniqueIndex;not null" json:"slug"`                 // 商家标识
	Timezone          string    `gorm:"type:varchar(64)" json:"timezone,omitempty"`       // 时区
	DefaultLocale     string    `gorm:"type:varchar(20)" json:"default_locale"`           // 默认语言
	NotifyOnReady     bool      `gorm:"not null;default:true" json:"notify_on_ready"`     // 出餐就绪是否推送通知
	NotifyAllChannels bool      `gorm:"not null;default:true" json:"notify_all_channels"` // 就绪通知是否向全部渠道扇出
	EmailEnabled      bool      `gorm:"not null;default:true" json:"email_enabled"`       // 是否启用邮件渠道
	SMSEnabled        bool      `gorm:"not null;default:false" json:"sms_enabled"`        // 是否启用短信渠道
	TelegramEnabled   bool      `gorm:"not null;default:false" json:"telegram_enabled"`   // 是否启用 Telegram 渠道
	TelegramChatID    string    `gorm:"type:varchar(64)" json:"telegram_chat_id,omitempty"`
	PickupSLAMinutes  int       `gorm:"not null;default:0" json:"pickup_sla_minutes"` // 取餐超时阈值（分钟），0 表示使用全局默认
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Business) TableName() string {
	return "businesses"
}
