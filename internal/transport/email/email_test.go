package email

import (
	"strings"
	"testing"

	logx "reminderbot/pkg/logx"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()
	base := Config{Host: "smtp.uni.org", Port: 465, Username: "bot@uni.org", Password: "secret"}

	s, err := New(base, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.cfg.From != "bot@uni.org" {
		t.Fatalf("From should default to username, got %q", s.cfg.From)
	}

	for name, mutate := range map[string]func(*Config){
		"missing host":     func(c *Config) { c.Host = " " },
		"missing port":     func(c *Config) { c.Port = 0 },
		"missing password": func(c *Config) { c.Password = "" },
	} {
		cfg := base
		mutate(&cfg)
		if _, err := New(cfg, logx.Nop()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()
	msg := string(buildMessage("bot@uni.org", "asha@uni.org", "Class Reminder: Intro", "Hi Asha,\nStarts in 30 minutes"))

	for _, want := range []string{
		"From: bot@uni.org\r\n",
		"To: asha@uni.org\r\n",
		"Subject: Class Reminder: Intro\r\n",
		"Content-Type: text/plain",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "minutes\n") && !strings.Contains(msg, "minutes\r\n") {
		t.Fatal("body newlines not normalized to CRLF")
	}
	if !strings.Contains(msg, "\r\n\r\nHi Asha,") {
		t.Fatal("headers and body must be separated by a blank line")
	}
}
