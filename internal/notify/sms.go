package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lumipos/internal/config"
	"github.com/lumipos/internal/logger"
)

const defaultSMSTimeout = 15 * time.Second

// SMSSender 短信渠道（HTTP 网关）。
// 未配置网关时以桩模式成功返回，仅记录日志。
type SMSSender struct {
	cfg    *config.SMSConfig
	client *http.Client
}

// NewSMSSender 创建短信渠道
func NewSMSSender(cfg *config.SMSConfig) *SMSSender {
	timeout := defaultSMSTimeout
	if cfg != nil && cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &SMSSender{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Type 渠道类型
func (s *SMSSender) Type() ChannelType {
	return ChannelSMS
}

// Configured 判断网关是否可用
func (s *SMSSender) Configured() bool {
	return s != nil && s.cfg != nil &&
		strings.TrimSpace(s.cfg.GatewayURL) != "" && strings.TrimSpace(s.cfg.AuthToken) != ""
}

// Send 发送短信
func (s *SMSSender) Send(ctx context.Context, msg Message) (*Result, error) {
	recipient := strings.TrimSpace(msg.Recipient)
	if recipient == "" {
		return nil, ErrInvalidRecipient
	}
	if !s.Configured() {
		logger.Infow("sms_stub_send",
			"recipient", recipient,
			"body_len", len(msg.Body),
		)
		return &Result{ProviderMessageID: StubProviderMessageID, Stubbed: true}, nil
	}

	params := map[string]interface{}{
		"to":      recipient,
		"content": msg.Body,
	}
	if sender := strings.TrimSpace(s.cfg.Sender); sender != "" {
		params["sender"] = sender
	}

	endpoint := strings.TrimRight(strings.TrimSpace(s.cfg.GatewayURL), "/") + "/api/v1/messages"
	respBytes, err := s.postJSON(ctx, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var resp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			MessageID string `json:"message_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	// 网关 HTTP 200 不代表受理成功，需要检查响应体状态码
	if resp.Code != 0 {
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, resp.Message)
	}
	return &Result{ProviderMessageID: resp.Data.MessageID}, nil
}

func (s *SMSSender) postJSON(ctx context.Context, endpoint string, params map[string]interface{}) ([]byte, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
