package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lumipos/internal/config"
)

func TestSMSSenderStubModeWhenUnconfigured(t *testing.T) {
	sender := NewSMSSender(&config.SMSConfig{})
	result, err := sender.Send(context.Background(), Message{Recipient: "+15550001111", Body: "ready"})
	if err != nil {
		t.Fatalf("stub send must succeed: %v", err)
	}
	if !result.Stubbed || result.ProviderMessageID != StubProviderMessageID {
		t.Fatalf("unexpected stub result: %+v", result)
	}
}

func TestSMSSenderSendSuccess(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code":    0,
			"message": "ok",
			"data": map[string]interface{}{
				"message_id": "sms-789",
			},
		})
	}))
	defer server.Close()

	sender := NewSMSSender(&config.SMSConfig{
		GatewayURL: server.URL,
		AuthToken:  "secret",
		Sender:     "LUMIPOS",
	})
	result, err := sender.Send(context.Background(), Message{Recipient: "+15550001111", Body: "order ready"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if result.ProviderMessageID != "sms-789" {
		t.Fatalf("unexpected provider message id: %s", result.ProviderMessageID)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header: %s", gotAuth)
	}
	if gotPayload["to"] != "+15550001111" || gotPayload["sender"] != "LUMIPOS" {
		t.Fatalf("unexpected payload: %v", gotPayload)
	}
}

func TestSMSSenderRejectsNonZeroCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 网关 HTTP 200 但响应体表示受理失败
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code":    4001,
			"message": "invalid phone number",
		})
	}))
	defer server.Close()

	sender := NewSMSSender(&config.SMSConfig{GatewayURL: server.URL, AuthToken: "secret"})
	_, err := sender.Send(context.Background(), Message{Recipient: "bad", Body: "hi"})
	if !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid, got %v", err)
	}
}
