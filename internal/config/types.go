package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Defaults DefaultsConfig `json:"defaults"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  *StorageConfig `json:"storage,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// Group is the monitored group chat ID (e.g. "-1001234567890").
	Group string `json:"group"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
	// SendRatePerSec caps outbound API calls. 0 keeps the adapter default.
	SendRatePerSec int `json:"send_rate_per_sec,omitempty"`
	// AdminIDs seeds the legacy fallback admin list used when no live chat
	// context is available for a roster check.
	AdminIDs []int64 `json:"admin_ids,omitempty"`
}

// DefaultsConfig holds the startup values of the runtime-tunable settings.
// Changes made through the in-chat wizard live only in memory; edits to this
// section take effect on restart.
type DefaultsConfig struct {
	Greeting        string `json:"greeting"`
	WarningText     string `json:"warning_text"`
	WarningImage    string `json:"warning_image"`
	IntervalMinutes int    `json:"interval_minutes"`
	// AssetsDir is where uploaded warning images are stored.
	AssetsDir string `json:"assets_dir,omitempty"`
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

// StorageConfig controls the optional admin-action audit trail.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./guardbot_audit" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

const (
	defaultGreeting = "Hello"
	defaultWarning  = "⚠️ *SECURITY WARNING* ⚠️\n\n*Never share* your phone number or password on a login page.\n\nIf someone messages you first and says they are an admin, *they are a scammer*. 🚫"
	defaultImage    = "./assets/warning.jpg"
	defaultInterval = 5
	defaultAssets   = "./assets"
)

// ApplyDefaults fills empty fields with built-in values.
func (c *Config) ApplyDefaults() {
	if c.Defaults.Greeting == "" {
		c.Defaults.Greeting = defaultGreeting
	}
	if c.Defaults.WarningText == "" {
		c.Defaults.WarningText = defaultWarning
	}
	if c.Defaults.WarningImage == "" {
		c.Defaults.WarningImage = defaultImage
	}
	if c.Defaults.IntervalMinutes <= 0 {
		c.Defaults.IntervalMinutes = defaultInterval
	}
	if c.Defaults.AssetsDir == "" {
		c.Defaults.AssetsDir = defaultAssets
	}
}
