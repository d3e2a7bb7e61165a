package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/lumipos/internal/config"

	"github.com/google/uuid"
)

// EmailSender SMTP 邮件渠道
type EmailSender struct {
	cfg *config.EmailConfig
}

// NewEmailSender 创建邮件渠道
func NewEmailSender(cfg *config.EmailConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

// Type 渠道类型
func (s *EmailSender) Type() ChannelType {
	return ChannelEmail
}

// Configured 判断 SMTP 是否可用
func (s *EmailSender) Configured() bool {
	return s != nil && s.cfg != nil && s.cfg.Enabled &&
		strings.TrimSpace(s.cfg.Host) != "" && s.cfg.Port > 0 && strings.TrimSpace(s.cfg.From) != ""
}

// Send 发送邮件。邮件渠道没有桩模式：未配置直接返回配置缺失错误。
func (s *EmailSender) Send(ctx context.Context, msg Message) (*Result, error) {
	if !s.Configured() {
		return nil, ErrEmailNotConfigured
	}
	if _, err := mail.ParseAddress(msg.Recipient); err != nil {
		return nil, ErrInvalidRecipient
	}

	messageID := uuid.NewString()
	from := buildFromAddress(s.cfg.From, s.cfg.FromName)
	body := buildEmailMessage(from, msg.Recipient, msg.Subject, msg.Body, messageID)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" || s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	var err error
	switch {
	case s.cfg.UseSSL:
		err = sendMailWithSSL(addr, auth, s.cfg.Host, s.cfg.From, []string{msg.Recipient}, []byte(body))
	case s.cfg.UseTLS:
		err = sendMailWithStartTLS(addr, auth, s.cfg.Host, s.cfg.From, []string{msg.Recipient}, []byte(body))
	default:
		err = sendMailPlain(addr, auth, s.cfg.Host, s.cfg.From, []string{msg.Recipient}, []byte(body))
	}
	if err != nil {
		return nil, err
	}
	return &Result{ProviderMessageID: messageID}, nil
}

func buildFromAddress(from, name string) string {
	if strings.TrimSpace(name) == "" {
		return from
	}
	encoded := mime.QEncoding.Encode("UTF-8", name)
	return (&mail.Address{Name: encoded, Address: from}).String()
}

func buildEmailMessage(from, to, subject, body, messageID string) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject)))
	buf.WriteString(fmt.Sprintf("Message-ID: <%s@lumipos>\r\n", messageID))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.String()
}

func sendMailWithSSL(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	return sendSMTPData(client, from, to, msg)
}

func sendMailWithStartTLS(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
		return err
	}

	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	return sendSMTPData(client, from, to, msg)
}

func sendMailPlain(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	return sendSMTPData(client, from, to, msg)
}

func sendSMTPData(client *smtp.Client, from string, to []string, msg []byte) error {
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
