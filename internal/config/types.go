package config

type Config struct {
	Telegram   TelegramConfig   `json:"telegram"`
	WhatsApp   WhatsAppConfig   `json:"whatsapp"`
	Logging    LoggingConfig    `json:"logging"`
	Storage    StorageConfig    `json:"storage"`
	Dispatcher DispatcherConfig `json:"dispatcher"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// WhatsAppConfig configures the Twilio-backed WhatsApp channel.
//
// Security note: prefer binding webhook_addr to localhost behind a
// reverse proxy that terminates TLS.
type WhatsAppConfig struct {
	Enabled     bool   `json:"enabled"`
	AccountSID  string `json:"account_sid"`
	AuthToken   string `json:"auth_token"` // do not log
	FromNumber  string `json:"from_number"`
	WebhookAddr string `json:"webhook_addr,omitempty"`
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

// StorageConfig selects the reminder store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./remindbot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// DispatcherConfig controls the due-reminder polling loop.
//
// Schedule accepts a Go duration ("1m") or a standard cron spec
// ("* * * * *"); empty means the default one-minute interval.
type DispatcherConfig struct {
	Schedule   string `json:"schedule,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	// SendTimeout is a Go duration string bounding one delivery attempt.
	SendTimeout string `json:"send_timeout,omitempty"`
}
