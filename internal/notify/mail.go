package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

const defaultFrom = "no-reply@stellaris.local"

// SMTPConfig describes the outgoing mail relay.
type SMTPConfig struct {
	Host   string
	Port   int
	Secure bool
	User   string
	Pass   string
	From   string
}

// SMTPSender delivers plain-text mail through an SMTP relay.
type SMTPSender struct {
	host   string
	addr   string
	from   string
	secure bool
	auth   smtp.Auth
}

// NewSMTPSender returns nil when no host is configured.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = defaultFrom
	}

	s := &SMTPSender{
		host:   host,
		addr:   net.JoinHostPort(host, strconv.Itoa(port)),
		from:   from,
		secure: cfg.Secure,
	}
	if cfg.User != "" {
		s.auth = smtp.PlainAuth("", cfg.User, cfg.Pass, host)
	}
	return s
}

// Send delivers one message.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := buildMessage(s.from, to, subject, body)
	if !s.secure {
		if err := ctx.Err(); err != nil {
			return err
		}
		return smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg))
	}
	return s.sendTLS(ctx, to, []byte(msg))
}

// sendTLS speaks SMTP over an implicitly encrypted connection (port 465).
func (s *SMTPSender) sendTLS(ctx context.Context, to string, msg []byte) error {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: 10 * time.Second},
		Config:    &tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12},
	}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if s.auth != nil {
		if err := c.Auth(s.auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(s.from); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return c.Quit()
}

func buildMessage(from, to, subject, body string) string {
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from,
		to,
		mime.QEncoding.Encode("utf-8", subject),
		strings.ReplaceAll(body, "\n", "\r\n"),
	)
}
