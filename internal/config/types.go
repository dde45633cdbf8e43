package config

// Config is the full daemon configuration.
//
// All durations are Go duration strings (e.g. "500ms", "30s", "1m").
// Credentials may be left empty in the file and supplied through the
// environment instead (see Resolve): SENDER_EMAIL, SENDER_PASS,
// TELEGRAM_TOKEN, SOURCE_DSN, DEDUP_DSN.
type Config struct {
	// Timezone is the IANA location schedules are written in, e.g.
	// "Asia/Kolkata". Empty means the process-local zone.
	Timezone string `json:"timezone,omitempty"`

	Poll    PollConfig    `json:"poll"`
	Logging LoggingConfig `json:"logging"`
	Source  SourceConfig  `json:"source"`
	Dedup   DedupConfig   `json:"dedup"`

	Email *EmailConfig `json:"email,omitempty"`
	Chat  *ChatConfig  `json:"chat,omitempty"`

	// Windows configures the per-kind reminder lead-time windows.
	// Omitted sections fall back to the built-in tables.
	Windows WindowsConfig `json:"windows,omitempty"`
}

// PollConfig controls the evaluation cycle cadence.
type PollConfig struct {
	// Interval between cycles. Default "30s".
	Interval string `json:"interval,omitempty"`
	// CycleTimeout bounds one full fetch+evaluate+dispatch pass.
	// Default "2m".
	CycleTimeout string `json:"cycle_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SourceConfig points at the read-only store holding students, classes and
// assignments.
//
// Driver values: "postgres" (pgx pool), "sqlite", "mysql" (database/sql).
type SourceConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn,omitempty"`
	// Timeout bounds each query. Default "10s".
	Timeout string `json:"timeout,omitempty"`
}

// DedupConfig controls the persisted sent-reminder key set.
//
// Driver values: "sqlite", "file", "postgres". The in-memory store exists for
// tests only; the daemon refuses it because it cannot survive a restart.
type DedupConfig struct {
	Driver string `json:"driver"`
	// Path is the database/snapshot location (sqlite and file drivers).
	Path string `json:"path,omitempty"`
	// DSN is the connection string (postgres driver).
	DSN string `json:"dsn,omitempty"`
	// BusyTimeout applies to the sqlite driver. Default "5s".
	BusyTimeout string `json:"busy_timeout,omitempty"`
	// Retention prunes keys older than this on the compaction schedule.
	// "0s" (default) disables automatic pruning; the engine itself never
	// prunes during evaluation.
	Retention string `json:"retention,omitempty"`
	// CompactEvery is how often the retention sweep runs. Default "12h".
	CompactEvery string `json:"compact_every,omitempty"`
}

// EmailConfig enables the SMTP channel.
type EmailConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	StartTLS bool   `json:"starttls,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	From     string `json:"from,omitempty"`
	// Timeout bounds one SMTP conversation. Default "30s".
	Timeout    string `json:"timeout,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	// SuppressDomains lists recipient domains that count as sent without a
	// real delivery (internal test rosters).
	SuppressDomains []string `json:"suppress_domains,omitempty"`
	// InsecureSkipVerify disables TLS certificate verification. Never set
	// this outside an isolated lab; the daemon logs loudly when it is on.
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty"`
}

// ChatConfig enables the Telegram channel.
type ChatConfig struct {
	Enabled    bool   `json:"enabled"`
	Token      string `json:"token,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	// Timeout bounds one Bot API call. Default "30s".
	Timeout string `json:"timeout,omitempty"`
	// Channels maps a derived group key (COURSE_BATCH_YEAR_MODE, uppercase,
	// spaces as underscores) to a chat ID. A cohort without a mapping simply
	// gets no chat notices. Hot-reloadable.
	Channels map[string]int64 `json:"channels,omitempty"`
}

// WindowConfig is one lead-time window: the reminder labeled Label fires when
// the event is between Min and Max minutes away (inclusive bounds).
type WindowConfig struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type WindowsConfig struct {
	Class      []WindowConfig `json:"class,omitempty"`
	Assignment []WindowConfig `json:"assignment,omitempty"`
}
