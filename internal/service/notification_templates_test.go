package service

import (
	"strings"
	"testing"
	"time"

	"github.com/lumipos/internal/constants"
	"github.com/lumipos/internal/notify"
)

func TestBuildOrderReadyContent(t *testing.T) {
	pickup := time.Date(2026, 8, 27, 14, 30, 0, 0, time.UTC)
	input := TemplateInput{
		OrderNo:      "LP123",
		CustomerName: "Alice",
		BusinessName: "Lumi Coffee",
		PickupAt:     &pickup,
	}

	subject, body := buildOrderReadyContent(notify.ChannelEmail, input, constants.LocaleEnUS)
	if !strings.Contains(subject, "LP123") {
		t.Fatalf("expected order number in subject: %s", subject)
	}
	if !strings.Contains(body, "14:30") {
		t.Fatalf("expected pickup time in body: %s", body)
	}
	if !strings.Contains(body, "Alice") {
		t.Fatalf("expected customer name in body: %s", body)
	}

	subjectZh, bodyZh := buildOrderReadyContent(notify.ChannelSMS, input, constants.LocaleZhCN)
	if !strings.Contains(subjectZh, "LP123") {
		t.Fatalf("expected order number in zh subject: %s", subjectZh)
	}
	if !strings.Contains(bodyZh, "已备好") || !strings.Contains(bodyZh, "14:30") {
		t.Fatalf("unexpected zh body: %s", bodyZh)
	}
	// 短信正文不含 HTML
	if strings.Contains(bodyZh, "<p>") {
		t.Fatalf("sms body must be plain text: %s", bodyZh)
	}
}

func TestBuildOrderReadyContentWithoutPickupTime(t *testing.T) {
	input := TemplateInput{OrderNo: "LP124", BusinessName: "Lumi Coffee"}
	_, body := buildOrderReadyContent(notify.ChannelSMS, input, constants.LocaleEnUS)
	if !strings.Contains(body, "now") {
		t.Fatalf("expected fallback pickup wording: %s", body)
	}
}

func TestBuildOrderCancelledContent(t *testing.T) {
	input := TemplateInput{
		OrderNo:      "LP125",
		CustomerName: "王小明",
		BusinessName: "满堂红小吃",
		CancelReason: "食材售罄",
	}

	_, bodyZh := buildOrderCancelledContent(notify.ChannelTelegram, input, constants.LocaleZhCN)
	if !strings.Contains(bodyZh, "LP125") || !strings.Contains(bodyZh, "食材售罄") {
		t.Fatalf("expected order number and reason in body: %s", bodyZh)
	}

	_, bodyEn := buildOrderCancelledContent(notify.ChannelEmail, TemplateInput{OrderNo: "LP126", BusinessName: "Lumi"}, constants.LocaleEnUS)
	if !strings.Contains(bodyEn, "not specified") {
		t.Fatalf("expected reason fallback: %s", bodyEn)
	}
}

func TestBuildOrderCreatedContent(t *testing.T) {
	input := TemplateInput{
		OrderNo:      "LP127",
		BusinessName: "Lumi Coffee",
		Total:        "10.00",
	}
	_, body := buildOrderCreatedContent(notify.ChannelSMS, input, constants.LocaleEnUS)
	if !strings.Contains(body, "LP127") || !strings.Contains(body, "10.00") {
		t.Fatalf("expected order number and total: %s", body)
	}
}

func TestNormalizeNotificationLocale(t *testing.T) {
	if got := normalizeNotificationLocale("zh-cn"); got != constants.LocaleZhCN {
		t.Fatalf("expected zh-CN, got %s", got)
	}
	if got := normalizeNotificationLocale("fr-FR"); got != constants.LocaleEnUS {
		t.Fatalf("expected fallback to en-US, got %s", got)
	}
	if got := normalizeNotificationLocale(""); got != constants.LocaleEnUS {
		t.Fatalf("expected default en-US, got %s", got)
	}
}

func TestBuildNotificationContentDispatch(t *testing.T) {
	input := TemplateInput{OrderNo: "LP128", BusinessName: "Lumi"}
	subject, _ := buildNotificationContent(constants.NotificationEventOrderCancelled, notify.ChannelEmail, input, constants.LocaleEnUS)
	if !strings.Contains(strings.ToLower(subject), "cancelled") {
		t.Fatalf("expected cancelled subject: %s", subject)
	}
}
