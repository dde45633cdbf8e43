package telegram

import (
	"testing"
	"time"

	logx "reminderbot/pkg/logx"
)

func TestBotSettings(t *testing.T) {
	t.Parallel()

	s := botSettings(Config{Token: "t", Timeout: 5 * time.Second})
	if s.Poller != nil {
		t.Fatal("outbound-only bot must not configure a poller")
	}
	if s.Client == nil || s.Client.Timeout != 5*time.Second {
		t.Fatalf("client timeout not applied: %+v", s.Client)
	}

	// Zero config falls back to a bounded client rather than the stdlib
	// default of no timeout at all.
	s = botSettings(Config{Token: "t"})
	if s.Client == nil || s.Client.Timeout != 30*time.Second {
		t.Fatalf("default client timeout missing: %+v", s.Client)
	}
}

func TestNewRejectsEmptyToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Token: "  "}, logx.Nop()); err == nil {
		t.Fatal("expected error for blank token")
	}
}
