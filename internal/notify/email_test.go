package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lumipos/internal/config"
)

func TestEmailSenderRequiresConfiguration(t *testing.T) {
	// 邮件渠道没有桩模式：未配置直接报配置缺失
	sender := NewEmailSender(&config.EmailConfig{})
	if sender.Configured() {
		t.Fatal("expected sender to be unconfigured")
	}
	if _, err := sender.Send(context.Background(), Message{Recipient: "alice@example.com"}); !errors.Is(err, ErrEmailNotConfigured) {
		t.Fatalf("expected ErrEmailNotConfigured, got %v", err)
	}

	partial := NewEmailSender(&config.EmailConfig{Enabled: true, Host: "smtp.example.com"})
	if partial.Configured() {
		t.Fatal("expected partial config to be unconfigured")
	}
}

func TestEmailSenderInvalidRecipient(t *testing.T) {
	sender := NewEmailSender(&config.EmailConfig{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "noreply@example.com",
	})
	if _, err := sender.Send(context.Background(), Message{Recipient: "not-an-address"}); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient, got %v", err)
	}
}

func TestBuildEmailMessageHeaders(t *testing.T) {
	body := buildEmailMessage("noreply@example.com", "alice@example.com", "Order LP1 ready", "<p>ready</p>", "msg-id-1")
	for _, want := range []string{
		"From: noreply@example.com",
		"To: alice@example.com",
		"Subject:",
		"Message-ID: <msg-id-1",
		"Content-Type: text/html",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in message:\n%s", want, body)
		}
	}
}
