package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lumipos/internal/config"
)

func TestTelegramSenderStubModeWhenUnconfigured(t *testing.T) {
	sender := NewTelegramSender(&config.TelegramConfig{})
	if sender.Configured() {
		t.Fatal("expected sender to be unconfigured")
	}

	result, err := sender.Send(context.Background(), Message{Recipient: "-100555", Body: "ready"})
	if err != nil {
		t.Fatalf("stub send must succeed: %v", err)
	}
	if !result.Stubbed || result.ProviderMessageID != StubProviderMessageID {
		t.Fatalf("unexpected stub result: %+v", result)
	}
}

func TestTelegramSenderInvalidRecipient(t *testing.T) {
	sender := NewTelegramSender(&config.TelegramConfig{BotToken: "token"})
	if _, err := sender.Send(context.Background(), Message{Recipient: "  "}); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient, got %v", err)
	}
}

func TestTelegramSenderSendSuccess(t *testing.T) {
	var gotPath string
	var gotPayload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": true,
			"result": map[string]interface{}{
				"message_id": 4242,
			},
		})
	}))
	defer server.Close()

	sender := NewTelegramSender(&config.TelegramConfig{
		BotToken:   "test-token",
		APIBaseURL: server.URL,
	})
	result, err := sender.Send(context.Background(), Message{Recipient: "-100555", Body: "order LP1 ready"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if result.ProviderMessageID != "4242" {
		t.Fatalf("unexpected provider message id: %s", result.ProviderMessageID)
	}
	if !strings.Contains(gotPath, "/bottest-token/sendMessage") {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotPayload["chat_id"] != "-100555" {
		t.Fatalf("unexpected chat_id: %v", gotPayload["chat_id"])
	}
}

func TestTelegramSenderRejectsOKFalse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Bot API 在 HTTP 200 下返回 ok=false
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":          false,
			"description": "Bad Request: chat not found",
		})
	}))
	defer server.Close()

	sender := NewTelegramSender(&config.TelegramConfig{
		BotToken:   "test-token",
		APIBaseURL: server.URL,
	})
	_, err := sender.Send(context.Background(), Message{Recipient: "-100555", Body: "hi"})
	if !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid, got %v", err)
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected description in error: %v", err)
	}
}

func TestTelegramSenderHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sender := NewTelegramSender(&config.TelegramConfig{
		BotToken:   "test-token",
		APIBaseURL: server.URL,
	})
	_, err := sender.Send(context.Background(), Message{Recipient: "-100555", Body: "hi"})
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
}
