package notify

import (
	"context"
	"errors"
)

// ChannelType 通知渠道类型
type ChannelType string

const (
	ChannelEmail    ChannelType = "email"
	ChannelSMS      ChannelType = "sms"
	ChannelTelegram ChannelType = "telegram"
)

// StubProviderMessageID 桩模式发送返回的提供方消息 ID
const StubProviderMessageID = "stub"

var (
	ErrEmailNotConfigured    = errors.New("email channel not configured")
	ErrSMSNotConfigured      = errors.New("sms channel not configured")
	ErrTelegramNotConfigured = errors.New("telegram channel not configured")
	ErrInvalidRecipient      = errors.New("invalid recipient")
	ErrRequestFailed         = errors.New("notify request failed")
	ErrResponseInvalid       = errors.New("notify response invalid")
)

// Message 单条通知内容
type Message struct {
	Recipient string // 邮箱地址 / 手机号 / Telegram chat_id
	Subject   string // 仅邮件使用
	Body      string
}

// Result 发送结果
type Result struct {
	ProviderMessageID string
	Stubbed           bool // 渠道未配置时的桩发送
}

// Sender 通知渠道发送器。
// 短信与 Telegram 在未配置凭据时以桩模式成功返回；邮件未配置视为配置缺失错误。
type Sender interface {
	Type() ChannelType
	Configured() bool
	Send(ctx context.Context, msg Message) (*Result, error)
}

// String 实现 fmt.Stringer
func (t ChannelType) String() string {
	return string(t)
}

// Valid 判断是否为已知渠道
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelEmail, ChannelSMS, ChannelTelegram:
		return true
	default:
		return false
	}
}
