package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
timezone: Asia/Kolkata
poll:
  interval: 30s
logging:
  level: info
  console: true
source:
  driver: sqlite
  dsn: ./schedule.db
dedup:
  driver: sqlite
  path: ./sent.db
email:
  enabled: true
  host: smtp.gmail.com
  port: 465
  username: bot@uni.org
  password: secret
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	t.Parallel()
	m := NewConfigManager(writeConfig(t, validYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timezone != "Asia/Kolkata" || cfg.Source.Driver != "sqlite" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get should return the committed config")
	}

	loc, err := cfg.Location()
	if err != nil || loc.String() != "Asia/Kolkata" {
		t.Fatalf("Location = (%v, %v)", loc, err)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	m := NewConfigManager(writeConfig(t, validYAML+"\nnot_a_field: 1\n"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestDefaultWindowTables(t *testing.T) {
	t.Parallel()
	var cfg Config
	if got := cfg.ClassWindows(); len(got) != 3 || got[0].Label != "60" {
		t.Fatalf("ClassWindows = %+v", got)
	}
	if got := cfg.AssignmentWindows(); len(got) != 3 || got[2].Label != "15" {
		t.Fatalf("AssignmentWindows = %+v", got)
	}

	cfg.Windows.Class = []WindowConfig{{Label: "10", Min: 8, Max: 12}}
	if got := cfg.ClassWindows(); len(got) != 1 || got[0].Label != "10" {
		t.Fatalf("configured ClassWindows = %+v", got)
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "no channel enabled",
			mutate:  func(c *Config) { c.Email = nil; c.Chat = nil },
			wantMsg: "no notification channel",
		},
		{
			name:    "memory dedup refused",
			mutate:  func(c *Config) { c.Dedup.Driver = "memory" },
			wantMsg: "not restart-durable",
		},
		{
			name:    "unknown source driver",
			mutate:  func(c *Config) { c.Source.Driver = "oracle" },
			wantMsg: "unknown driver",
		},
		{
			name:    "missing email credentials",
			mutate:  func(c *Config) { c.Email.Password = "" },
			wantMsg: "credentials missing",
		},
		{
			name: "chat without token",
			mutate: func(c *Config) {
				c.Chat = &ChatConfig{Enabled: true}
			},
			wantMsg: "chat token missing",
		},
		{
			name: "bad chat timeout",
			mutate: func(c *Config) {
				c.Chat = &ChatConfig{Enabled: true, Token: "tok", Timeout: "soon"}
			},
			wantMsg: "chat.timeout",
		},
		{
			name: "overlapping windows",
			mutate: func(c *Config) {
				c.Windows.Class = []WindowConfig{
					{Label: "60", Min: 40, Max: 75},
					{Label: "30", Min: 20, Max: 45},
				}
			},
			wantMsg: "overlap",
		},
		{
			name: "duplicate window labels",
			mutate: func(c *Config) {
				c.Windows.Class = []WindowConfig{
					{Label: "30", Min: 0, Max: 5},
					{Label: "30", Min: 20, Max: 40},
				}
			},
			wantMsg: "duplicate window label",
		},
		{
			name: "inverted window range",
			mutate: func(c *Config) {
				c.Windows.Class = []WindowConfig{{Label: "30", Min: 40, Max: 20}}
			},
			wantMsg: "invalid range",
		},
		{
			name:    "bad duration",
			mutate:  func(c *Config) { c.Poll.Interval = "soon" },
			wantMsg: "poll.interval",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Timezone = "Mars/Olympus" },
			wantMsg: "timezone",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func baseConfig() *Config {
	return &Config{
		Source: SourceConfig{Driver: "sqlite", DSN: "./schedule.db"},
		Dedup:  DedupConfig{Driver: "sqlite", Path: "./sent.db"},
		Email: &EmailConfig{
			Enabled: true, Host: "smtp.gmail.com", Port: 465,
			Username: "bot@uni.org", Password: "secret",
		},
	}
}

func TestValidateAcceptsBase(t *testing.T) {
	t.Parallel()
	if err := baseConfig().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestResolveEnvFallbacks(t *testing.T) {
	t.Setenv("SENDER_EMAIL", "envbot@uni.org")
	t.Setenv("SENDER_PASS", "envsecret")
	t.Setenv("TELEGRAM_TOKEN", "tok123")
	t.Setenv("SOURCE_DSN", "postgres://db/classes")

	cfg := &Config{
		Email: &EmailConfig{Enabled: true},
		Chat:  &ChatConfig{Enabled: true},
	}
	cfg.Resolve()

	if cfg.Email.Username != "envbot@uni.org" || cfg.Email.Password != "envsecret" {
		t.Fatalf("email credentials not resolved: %+v", cfg.Email)
	}
	if cfg.Email.From != "envbot@uni.org" {
		t.Fatalf("From should default to username, got %q", cfg.Email.From)
	}
	if cfg.Chat.Token != "tok123" {
		t.Fatalf("chat token not resolved: %q", cfg.Chat.Token)
	}
	if cfg.Source.DSN != "postgres://db/classes" {
		t.Fatalf("source dsn not resolved: %q", cfg.Source.DSN)
	}

	// File values win over the environment.
	cfg2 := &Config{Email: &EmailConfig{Enabled: true, Username: "file@uni.org", Password: "filepass"}}
	cfg2.Resolve()
	if cfg2.Email.Username != "file@uni.org" {
		t.Fatalf("env overrode file value: %q", cfg2.Email.Username)
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", "90s"); err != nil || d.Seconds() != 90 {
		t.Fatalf("ParseDurationField = (%v, %v)", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty duration = (%v, %v), want zero", d, err)
	}
	if _, err := ParseDurationField("x", "five minutes"); err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if d, err := ParseDurationOrDefault("x", "", 30_000_000_000); err != nil || d.Seconds() != 30 {
		t.Fatalf("ParseDurationOrDefault = (%v, %v)", d, err)
	}
}
