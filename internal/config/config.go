package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

type Config struct {
	Server struct {
		Port    int    `yaml:"port"`
		APIKeys string `yaml:"api_keys"` // comma-separated
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		SlotMinutes          int `yaml:"slot_minutes"`
		PendingExpiryMinutes int `yaml:"pending_expiry_minutes"`
		MaxAdvanceDays       int `yaml:"max_advance_days"`
	} `yaml:"booking"`

	Studios struct {
		Path                 string `yaml:"path"`
		WatchIntervalSeconds int    `yaml:"watch_interval_seconds"`
	} `yaml:"studios"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
	} `yaml:"telegram"`

	Reminders struct {
		Enabled       bool `yaml:"enabled"`
		HoursBefore   int  `yaml:"hours_before"`
		CheckInterval int  `yaml:"check_interval_minutes"`
	} `yaml:"reminders"`

	Audit struct {
		Enabled           bool `yaml:"enabled"`
		DataRetentionDays int  `yaml:"data_retention_days"`
	} `yaml:"audit"`

	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsFile string `yaml:"credentials_file"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
	} `yaml:"sheets"`

	Managers []int64 `yaml:"managers"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/studiobook.db"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SlotMinutes returns the configured slot granularity, defaulting to an
// hour like the rest of the system assumes.
func (c *Config) SlotMinutes() int {
	if c.Booking.SlotMinutes <= 0 {
		return 60
	}
	return c.Booking.SlotMinutes
}

// PendingExpiry returns how long a pending booking may sit unconfirmed.
func (c *Config) PendingExpiry() time.Duration {
	if c.Booking.PendingExpiryMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Booking.PendingExpiryMinutes) * time.Minute
}

// MaxAdvance returns how far ahead bookings may be created. Zero means
// unbounded.
func (c *Config) MaxAdvance() time.Duration {
	if c.Booking.MaxAdvanceDays <= 0 {
		return 0
	}
	return time.Duration(c.Booking.MaxAdvanceDays) * 24 * time.Hour
}

// APIKeyList splits the comma-separated key setting into a slice,
// dropping empty entries. An empty list disables API authentication.
func (c *Config) APIKeyList() []string {
	var keys []string
	for _, key := range strings.Split(c.Server.APIKeys, ",") {
		key = strings.TrimSpace(key)
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// StudiosWatchInterval returns the poll interval for the studios.yaml watch.
func (c *Config) StudiosWatchInterval() time.Duration {
	if c.Studios.WatchIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Studios.WatchIntervalSeconds) * time.Second
}
