// Package email sends rendered reminders over SMTP.
//
// Certificate verification is ON by default for both implicit-TLS (:465) and
// STARTTLS (:587) modes. InsecureSkipVerify exists for isolated lab setups
// only and is logged as an error at construction so it can't hide in a
// config file unnoticed.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	logx "reminderbot/pkg/logx"
)

type Config struct {
	Host     string
	Port     int
	StartTLS bool // false: implicit TLS (e.g. :465); true: plain dial + STARTTLS (e.g. :587)

	Username string
	Password string
	From     string

	InsecureSkipVerify bool
}

// Sender is a connection-per-send SMTP client. Reminder volume is a handful
// of messages per cycle; connection reuse isn't worth the session state.
type Sender struct {
	cfg Config
	log logx.Logger
}

func New(cfg Config, log logx.Logger) (*Sender, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, errors.New("smtp port is required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("smtp credentials are required")
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.InsecureSkipVerify {
		log.Error("smtp TLS certificate verification is DISABLED; do not run this outside a lab",
			logx.String("host", cfg.Host))
	}
	return &Sender{cfg: cfg, log: log}, nil
}

// Send delivers one message. The ctx deadline bounds the whole SMTP
// conversation, including dial.
func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	tlsCfg := &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify,
	}

	var client *smtp.Client
	if s.cfg.StartTLS {
		client, err = smtp.NewClient(conn, s.cfg.Host)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("smtp handshake: %w", err)
		}
		if err = client.StartTLS(tlsCfg); err != nil {
			_ = client.Close()
			return fmt.Errorf("smtp starttls: %w", err)
		}
	} else {
		client, err = smtp.NewClient(tls.Client(conn, tlsCfg), s.cfg.Host)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("smtp tls handshake: %w", err)
		}
	}
	defer client.Close()

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(buildMessage(s.cfg.From, to, subject, body)); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return client.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
