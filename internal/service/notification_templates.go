package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/lumipos/internal/constants"
	"github.com/lumipos/internal/notify"
)

// TemplateInput 通知模板渲染参数
type TemplateInput struct {
	OrderNo      string
	CustomerName string
	BusinessName string
	PickupAt     *time.Time
	CancelReason string
	Total        string
}

// normalizeNotificationLocale 归一化语言标签，不支持的语言回退到英文
func normalizeNotificationLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	for _, supported := range constants.SupportedLocales {
		if strings.EqualFold(locale, supported) {
			return supported
		}
	}
	return constants.LocaleEnUS
}

func formatPickupTime(pickupAt *time.Time, locale string) string {
	if pickupAt == nil {
		if locale == constants.LocaleZhCN {
			return "现在"
		}
		return "now"
	}
	return pickupAt.Format("15:04")
}

// buildOrderReadyContent 订单就绪通知内容
func buildOrderReadyContent(channel notify.ChannelType, input TemplateInput, locale string) (string, string) {
	locale = normalizeNotificationLocale(locale)
	pickup := formatPickupTime(input.PickupAt, locale)

	if locale == constants.LocaleZhCN {
		subject := fmt.Sprintf("【%s】订单 %s 已备好", input.BusinessName, input.OrderNo)
		switch channel {
		case notify.ChannelEmail:
			body := fmt.Sprintf(
				"<p>%s，您好：</p><p>您的订单 <strong>%s</strong> 已备好，取餐时间：%s。</p><p>—— %s</p>",
				input.CustomerName, input.OrderNo, pickup, input.BusinessName,
			)
			return subject, body
		default:
			return subject, fmt.Sprintf("【%s】订单 %s 已备好，取餐时间：%s", input.BusinessName, input.OrderNo, pickup)
		}
	}

	subject := fmt.Sprintf("[%s] Order %s is ready", input.BusinessName, input.OrderNo)
	switch channel {
	case notify.ChannelEmail:
		body := fmt.Sprintf(
			"<p>Hi %s,</p><p>Your order <strong>%s</strong> is ready for pickup at %s.</p><p>— %s</p>",
			input.CustomerName, input.OrderNo, pickup, input.BusinessName,
		)
		return subject, body
	default:
		return subject, fmt.Sprintf("[%s] Order %s is ready for pickup at %s", input.BusinessName, input.OrderNo, pickup)
	}
}

// buildOrderCreatedContent 订单创建通知内容
func buildOrderCreatedContent(channel notify.ChannelType, input TemplateInput, locale string) (string, string) {
	locale = normalizeNotificationLocale(locale)

	if locale == constants.LocaleZhCN {
		subject := fmt.Sprintf("【%s】已收到订单 %s", input.BusinessName, input.OrderNo)
		switch channel {
		case notify.ChannelEmail:
			body := fmt.Sprintf(
				"<p>%s，您好：</p><p>我们已收到您的订单 <strong>%s</strong>，金额 %s，备好后会再次通知您。</p><p>—— %s</p>",
				input.CustomerName, input.OrderNo, input.Total, input.BusinessName,
			)
			return subject, body
		default:
			return subject, fmt.Sprintf("【%s】已收到订单 %s，金额 %s", input.BusinessName, input.OrderNo, input.Total)
		}
	}

	subject := fmt.Sprintf("[%s] Order %s received", input.BusinessName, input.OrderNo)
	switch channel {
	case notify.ChannelEmail:
		body := fmt.Sprintf(
			"<p>Hi %s,</p><p>We received your order <strong>%s</strong> (%s). We will let you know once it is ready.</p><p>— %s</p>",
			input.CustomerName, input.OrderNo, input.Total, input.BusinessName,
		)
		return subject, body
	default:
		return subject, fmt.Sprintf("[%s] Order %s received (%s)", input.BusinessName, input.OrderNo, input.Total)
	}
}

// buildOrderCancelledContent 订单取消通知内容
func buildOrderCancelledContent(channel notify.ChannelType, input TemplateInput, locale string) (string, string) {
	locale = normalizeNotificationLocale(locale)
	reason := strings.TrimSpace(input.CancelReason)

	if locale == constants.LocaleZhCN {
		if reason == "" {
			reason = "未说明"
		}
		subject := fmt.Sprintf("【%s】订单 %s 已取消", input.BusinessName, input.OrderNo)
		switch channel {
		case notify.ChannelEmail:
			body := fmt.Sprintf(
				"<p>%s，您好：</p><p>您的订单 <strong>%s</strong> 已取消，原因：%s。</p><p>—— %s</p>",
				input.CustomerName, input.OrderNo, reason, input.BusinessName,
			)
			return subject, body
		default:
			return subject, fmt.Sprintf("【%s】订单 %s 已取消，原因：%s", input.BusinessName, input.OrderNo, reason)
		}
	}

	if reason == "" {
		reason = "not specified"
	}
	subject := fmt.Sprintf("[%s] Order %s cancelled", input.BusinessName, input.OrderNo)
	switch channel {
	case notify.ChannelEmail:
		body := fmt.Sprintf(
			"<p>Hi %s,</p><p>Your order <strong>%s</strong> has been cancelled. Reason: %s.</p><p>— %s</p>",
			input.CustomerName, input.OrderNo, reason, input.BusinessName,
		)
		return subject, body
	default:
		return subject, fmt.Sprintf("[%s] Order %s cancelled. Reason: %s", input.BusinessName, input.OrderNo, reason)
	}
}

// buildOrderReminderContent 超时未取提醒内容
func buildOrderReminderContent(channel notify.ChannelType, input TemplateInput, locale string) (string, string) {
	locale = normalizeNotificationLocale(locale)

	if locale == constants.LocaleZhCN {
		subject := fmt.Sprintf("【%s】订单 %s 等待取餐", input.BusinessName, input.OrderNo)
		switch channel {
		case notify.ChannelEmail:
			body := fmt.Sprintf(
				"<p>%s，您好：</p><p>您的订单 <strong>%s</strong> 已备好，仍在等待取餐，请尽快前来。</p><p>—— %s</p>",
				input.CustomerName, input.OrderNo, input.BusinessName,
			)
			return subject, body
		default:
			return subject, fmt.Sprintf("【%s】订单 %s 已备好，仍在等待取餐", input.BusinessName, input.OrderNo)
		}
	}

	subject := fmt.Sprintf("[%s] Order %s is waiting for pickup", input.BusinessName, input.OrderNo)
	switch channel {
	case notify.ChannelEmail:
		body := fmt.Sprintf(
			"<p>Hi %s,</p><p>Your order <strong>%s</strong> is ready and still waiting for pickup.</p><p>— %s</p>",
			input.CustomerName, input.OrderNo, input.BusinessName,
		)
		return subject, body
	default:
		return subject, fmt.Sprintf("[%s] Order %s is ready and still waiting for pickup", input.BusinessName, input.OrderNo)
	}
}

// buildNotificationContent 按事件分发到对应模板
func buildNotificationContent(event string, channel notify.ChannelType, input TemplateInput, locale string) (string, string) {
	switch event {
	case constants.NotificationEventOrderReady:
		return buildOrderReadyContent(channel, input, locale)
	case constants.NotificationEventOrderCancelled:
		return buildOrderCancelledContent(channel, input, locale)
	case constants.NotificationEventOrderReminder:
		return buildOrderReminderContent(channel, input, locale)
	default:
		return buildOrderCreatedContent(channel, input, locale)
	}
}
