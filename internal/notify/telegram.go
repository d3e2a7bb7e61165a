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

const (
	defaultTelegramAPIBaseURL = "https://api.telegram.org"
	defaultTelegramTimeout    = 15 * time.Second
)

// TelegramSender Telegram Bot 渠道。
// 未配置 bot token 时以桩模式成功返回，仅记录日志。
type TelegramSender struct {
	cfg    *config.TelegramConfig
	client *http.Client
}

// NewTelegramSender 创建 Telegram 渠道
func NewTelegramSender(cfg *config.TelegramConfig) *TelegramSender {
	timeout := defaultTelegramTimeout
	if cfg != nil && cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &TelegramSender{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Type 渠道类型
func (s *TelegramSender) Type() ChannelType {
	return ChannelTelegram
}

// Configured 判断机器人是否可用
func (s *TelegramSender) Configured() bool {
	return s != nil && s.cfg != nil && strings.TrimSpace(s.cfg.BotToken) != ""
}

// Send 发送 Telegram 消息，recipient 为 chat_id
func (s *TelegramSender) Send(ctx context.Context, msg Message) (*Result, error) {
	chatID := strings.TrimSpace(msg.Recipient)
	if chatID == "" {
		return nil, ErrInvalidRecipient
	}
	if !s.Configured() {
		logger.Infow("telegram_stub_send",
			"chat_id", chatID,
			"body_len", len(msg.Body),
		)
		return &Result{ProviderMessageID: StubProviderMessageID, Stubbed: true}, nil
	}

	baseURL := strings.TrimRight(strings.TrimSpace(s.cfg.APIBaseURL), "/")
	if baseURL == "" {
		baseURL = defaultTelegramAPIBaseURL
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", baseURL, strings.TrimSpace(s.cfg.BotToken))
	params := map[string]interface{}{
		"chat_id": chatID,
		"text":    msg.Body,
	}

	respBytes, err := s.postJSON(ctx, endpoint, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	var resp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
		Result      struct {
			MessageID int64 `json:"message_id"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	// Bot API 在 HTTP 200 下仍可能返回 ok=false
	if !resp.OK {
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, resp.Description)
	}
	return &Result{ProviderMessageID: fmt.Sprintf("%d", resp.Result.MessageID)}, nil
}

func (s *TelegramSender) postJSON(ctx context.Context, endpoint string, params map[string]interface{}) ([]byte, error) {
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
