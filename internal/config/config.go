package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no explicit path is given. A missing default file is not an error.
const DefaultPath = "configs/config.yaml"

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

type SMTPConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secure bool   `yaml:"secure"`
	User   string `yaml:"user"`
	Pass   string `yaml:"pass"`
	From   string `yaml:"from"`
}

type Config struct {
	Server struct {
		Port                int      `yaml:"port"`
		PublicDir           string   `yaml:"public_dir"`
		CORSAllowedOrigins  []string `yaml:"cors_allowed_origins"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
	} `yaml:"server"`

	Admin struct {
		APIKey      string `yaml:"api_key"`
		NotifyEmail string `yaml:"notify_email"`
	} `yaml:"admin"`

	Storage struct {
		DataDir              string `yaml:"data_dir"`
		AuditDBPath          string `yaml:"audit_db_path"`
		WatchIntervalSeconds int    `yaml:"watch_interval_seconds"`
	} `yaml:"storage"`

	Booking struct {
		MinNoticeHours int `yaml:"min_notice_hours"`
	} `yaml:"booking"`

	SMTP SMTPConfig `yaml:"smtp"`

	Notify struct {
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
	} `yaml:"notify"`

	Telegram struct {
		Enabled     bool   `yaml:"enabled"`
		BotToken    string `yaml:"bot_token"`
		AdminChatID int64  `yaml:"admin_chat_id"`
	} `yaml:"telegram"`

	Google struct {
		CredentialsFile       string `yaml:"credentials_file"`
		BookingsSpreadsheetID string `yaml:"bookings_spreadsheet_id"`
		SheetName             string `yaml:"sheet_name"`
	} `yaml:"google"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	RateLimit struct {
		Enabled       bool `yaml:"enabled"`
		Requests      int  `yaml:"requests"`
		WindowSeconds int  `yaml:"window_seconds"`
	} `yaml:"rate_limit"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Reminders struct {
		Enabled     bool `yaml:"enabled"`
		DailyHour   int  `yaml:"daily_hour"`
		DailyMinute int  `yaml:"daily_minute"`
	} `yaml:"reminders"`

	Backup BackupConfig `yaml:"backup"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// envOverrides maps the process environment onto Config. Unset variables leave the file values alone.
type envOverrides struct {
	Port             int    `env:"PORT"`
	AdminAPIKey      string `env:"ADMIN_API_KEY"`
	AdminNotifyEmail string `env:"ADMIN_NOTIFY_EMAIL"`
	SMTPHost         string `env:"SMTP_HOST"`
	SMTPPort         int    `env:"SMTP_PORT"`
	SMTPSecure       string `env:"SMTP_SECURE"`
	SMTPUser         string `env:"SMTP_USER"`
	SMTPPass         string `env:"SMTP_PASS"`
	SMTPFrom         string `env:"SMTP_FROM"`
	LogLevel         string `env:"LOG_LEVEL"`
	Debug            string `env:"DEBUG"`
	DataDir          string `env:"STELLARIS_DATA_DIR"`
	RedisAddress     string `env:"REDIS_ADDR"`
	TelegramToken    string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `env:"TELEGRAM_ADMIN_CHAT_ID"`
}

// LoadDotEnv loads .env files into the environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func Load(path string) (*Config, error) {
	optional := false
	if path == "" {
		path = DefaultPath
		optional = true
	}

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Support ${ENV_VAR} placeholders in YAML config.
		data = []byte(os.ExpandEnv(string(data)))
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case optional && errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if err = cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	if err = os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, err
	}
	if err = os.MkdirAll(filepath.Dir(cfg.Storage.AuditDBPath), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if e.Port > 0 {
		c.Server.Port = e.Port
	}
	setString(&c.Admin.APIKey, e.AdminAPIKey)
	setString(&c.Admin.NotifyEmail, e.AdminNotifyEmail)
	setString(&c.SMTP.Host, e.SMTPHost)
	if e.SMTPPort > 0 {
		c.SMTP.Port = e.SMTPPort
	}
	if e.SMTPSecure != "" {
		c.SMTP.Secure = strings.EqualFold(e.SMTPSecure, "true")
	}
	setString(&c.SMTP.User, e.SMTPUser)
	setString(&c.SMTP.Pass, e.SMTPPass)
	setString(&c.SMTP.From, e.SMTPFrom)
	setString(&c.Log.Level, strings.ToLower(e.LogLevel))
	if strings.EqualFold(e.Debug, "true") {
		c.Log.Level = "debug"
	}
	setString(&c.Storage.DataDir, e.DataDir)
	setString(&c.Redis.Address, e.RedisAddress)
	if e.TelegramToken != "" {
		c.Telegram.BotToken = e.TelegramToken
		c.Telegram.Enabled = true
	}
	if e.TelegramChatID != 0 {
		c.Telegram.AdminChatID = e.TelegramChatID
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if len(c.Server.CORSAllowedOrigins) == 0 {
		c.Server.CORSAllowedOrigins = []string{"*"}
	}
	if c.Admin.APIKey == "" {
		c.Admin.APIKey = "changeme"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.AuditDBPath == "" {
		c.Storage.AuditDBPath = filepath.Join(c.Storage.DataDir, "audit.db")
	}
	if c.Booking.MinNoticeHours <= 0 {
		c.Booking.MinNoticeHours = 5
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Google.SheetName == "" {
		c.Google.SheetName = "Bookings"
	}
	if c.RateLimit.Requests <= 0 {
		c.RateLimit.Requests = 10
	}
	if c.RateLimit.WindowSeconds <= 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "backups"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) MinNotice() time.Duration {
	return time.Duration(c.Booking.MinNoticeHours) * time.Hour
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

func (c *Config) ReadTimeout() time.Duration {
	if c.Server.ReadTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	if c.Server.WriteTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}

func (c *Config) WatchInterval() time.Duration {
	if c.Storage.WatchIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Storage.WatchIntervalSeconds) * time.Second
}

// Interval is the time between two backups, 24h unless configured.
func (b BackupConfig) Interval() time.Duration {
	if b.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(b.IntervalHours) * time.Hour
}
