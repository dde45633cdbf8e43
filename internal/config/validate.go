package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Built-in window tables. Class windows are intentionally wide and uneven:
// the 30s poll cadence must land inside each range even when a cycle is
// skipped, and the 2-minute notice tolerates firing right at start time.
var (
	DefaultClassWindows = []WindowConfig{
		{Label: "60", Min: 45, Max: 75},
		{Label: "30", Min: 20, Max: 40},
		{Label: "2", Min: 0, Max: 5},
	}
	DefaultAssignmentWindows = []WindowConfig{
		{Label: "60", Min: 58, Max: 62},
		{Label: "30", Min: 28, Max: 32},
		{Label: "15", Min: 13, Max: 17},
	}
)

// ClassWindows returns the configured class window table or the default.
func (c *Config) ClassWindows() []WindowConfig {
	if len(c.Windows.Class) > 0 {
		return c.Windows.Class
	}
	return DefaultClassWindows
}

// AssignmentWindows returns the configured assignment window table or the default.
func (c *Config) AssignmentWindows() []WindowConfig {
	if len(c.Windows.Assignment) > 0 {
		return c.Windows.Assignment
	}
	return DefaultAssignmentWindows
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

// Resolve fills credential fields from the environment when the file leaves
// them empty. Files should not carry secrets; .env / unit environment does.
func (c *Config) Resolve() {
	if c.Email != nil {
		if c.Email.Username == "" {
			c.Email.Username = os.Getenv("SENDER_EMAIL")
		}
		if c.Email.Password == "" {
			c.Email.Password = os.Getenv("SENDER_PASS")
		}
		if c.Email.From == "" {
			c.Email.From = c.Email.Username
		}
	}
	if c.Chat != nil && c.Chat.Token == "" {
		c.Chat.Token = os.Getenv("TELEGRAM_TOKEN")
	}
	if c.Source.DSN == "" {
		c.Source.DSN = os.Getenv("SOURCE_DSN")
	}
	if c.Dedup.DSN == "" {
		c.Dedup.DSN = os.Getenv("DEDUP_DSN")
	}
}

// Validate rejects configurations the daemon cannot safely start with.
// This is the only fatal failure surface; everything past startup degrades
// per-event instead of crashing.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	emailOn := c.Email != nil && c.Email.Enabled
	chatOn := c.Chat != nil && c.Chat.Enabled
	if !emailOn && !chatOn {
		errs = append(errs, errors.New("no notification channel enabled (email, chat)"))
	}

	switch strings.ToLower(strings.TrimSpace(c.Source.Driver)) {
	case "postgres", "sqlite", "sqlite3", "mysql":
		if strings.TrimSpace(c.Source.DSN) == "" {
			errs = append(errs, errors.New("source.dsn is required (or SOURCE_DSN)"))
		}
	case "":
		errs = append(errs, errors.New("source.driver is required"))
	default:
		errs = append(errs, fmt.Errorf("source.driver: unknown driver %q", c.Source.Driver))
	}

	switch strings.ToLower(strings.TrimSpace(c.Dedup.Driver)) {
	case "sqlite", "sqlite3", "file":
		if strings.TrimSpace(c.Dedup.Path) == "" {
			errs = append(errs, errors.New("dedup.path is required for sqlite/file drivers"))
		}
	case "postgres":
		if strings.TrimSpace(c.Dedup.DSN) == "" {
			errs = append(errs, errors.New("dedup.dsn is required (or DEDUP_DSN)"))
		}
	case "memory":
		// A volatile key set resends everything after a restart.
		errs = append(errs, errors.New("dedup.driver: memory store is not restart-durable; use sqlite, file or postgres"))
	case "":
		errs = append(errs, errors.New("dedup.driver is required"))
	default:
		errs = append(errs, fmt.Errorf("dedup.driver: unknown driver %q", c.Dedup.Driver))
	}

	if emailOn {
		if strings.TrimSpace(c.Email.Host) == "" {
			errs = append(errs, errors.New("email.host is required"))
		}
		if c.Email.Port <= 0 || c.Email.Port > 65535 {
			errs = append(errs, fmt.Errorf("email.port: invalid port %d", c.Email.Port))
		}
		if strings.TrimSpace(c.Email.Username) == "" || strings.TrimSpace(c.Email.Password) == "" {
			errs = append(errs, errors.New("email credentials missing (email.username/password or SENDER_EMAIL/SENDER_PASS)"))
		}
	}
	if chatOn && strings.TrimSpace(c.Chat.Token) == "" {
		errs = append(errs, errors.New("chat token missing (chat.token or TELEGRAM_TOKEN)"))
	}

	if err := validateWindows("windows.class", c.ClassWindows()); err != nil {
		errs = append(errs, err)
	}
	if err := validateWindows("windows.assignment", c.AssignmentWindows()); err != nil {
		errs = append(errs, err)
	}

	for _, field := range []struct{ path, raw string }{
		{"poll.interval", c.Poll.Interval},
		{"poll.cycle_timeout", c.Poll.CycleTimeout},
		{"source.timeout", c.Source.Timeout},
		{"dedup.busy_timeout", c.Dedup.BusyTimeout},
		{"dedup.retention", c.Dedup.Retention},
		{"dedup.compact_every", c.Dedup.CompactEvery},
	} {
		if _, err := ParseDurationField(field.path, field.raw); err != nil {
			errs = append(errs, err)
		}
	}
	if emailOn {
		if _, err := ParseDurationField("email.timeout", c.Email.Timeout); err != nil {
			errs = append(errs, err)
		}
	}
	if chatOn {
		if _, err := ParseDurationField("chat.timeout", c.Chat.Timeout); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// validateWindows rejects windows that would double-count the same label or
// overlap each other. Each window is evaluated independently, so overlapping
// ranges would fire two labels for one poll instant.
func validateWindows(path string, ws []WindowConfig) error {
	seen := map[string]bool{}
	sorted := make([]WindowConfig, len(ws))
	copy(sorted, ws)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	for _, w := range sorted {
		label := strings.TrimSpace(w.Label)
		if label == "" {
			return fmt.Errorf("%s: window label must not be empty", path)
		}
		if seen[label] {
			return fmt.Errorf("%s: duplicate window label %q", path, label)
		}
		seen[label] = true
		if w.Min < 0 || w.Max < w.Min {
			return fmt.Errorf("%s: window %q has invalid range [%v, %v]", path, label, w.Min, w.Max)
		}
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Min <= sorted[i-1].Max {
			return fmt.Errorf("%s: windows %q and %q overlap", path, sorted[i-1].Label, sorted[i].Label)
		}
	}
	return nil
}
