package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no config path is supplied.
const DefaultConfigPath = "config.yaml"

// AppConfig holds process-level startup options.
type AppConfig struct {
	ConfigPath string
	EnvFile    string
}

// Config is the full runtime configuration, built once at startup.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Store      StoreConfig      `yaml:"store"`
	Generation GenerationConfig `yaml:"generation"`
	Speech     SpeechConfig     `yaml:"speech"`
	Release    ReleaseConfig    `yaml:"release"`
	Sermon     SermonConfig     `yaml:"sermon"`
	Devotional DevotionalConfig `yaml:"devotional"`
	Prayer     PrayerConfig     `yaml:"prayer"`
	Blog       BlogConfig       `yaml:"blog"`
	Outreach   OutreachConfig   `yaml:"outreach"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout"`
	AllowedOrigins  []string      `yaml:"allowed-origins"`
}

// AuthConfig holds the token secret and the two admin identities.
type AuthConfig struct {
	Secret      string        `yaml:"secret"`
	TokenFormat string        `yaml:"token-format"` // jwt or compact
	TokenMaxAge time.Duration `yaml:"token-max-age"`
	Super       AdminIdentity `yaml:"super"`
	Site        AdminIdentity `yaml:"site"`
}

// AdminIdentity is one configured admin login.
type AdminIdentity struct {
	Username   string `yaml:"username"`
	Password   string `yaml:"password"` // bcrypt hash or plaintext
	TOTPSecret string `yaml:"totp-secret"`
}

// StoreConfig selects and configures the content store backend.
type StoreConfig struct {
	Driver        string        `yaml:"driver"` // memory, redis or sql
	DSN           string        `yaml:"dsn"`
	SweepInterval time.Duration `yaml:"sweep-interval"`
	Redis         RedisConfig   `yaml:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key-prefix"`
}

// GenerationConfig configures the text generation provider.
type GenerationConfig struct {
	APIKey   string        `yaml:"api-key"`
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SpeechConfig configures the text-to-speech provider.
type SpeechConfig struct {
	APIKey    string        `yaml:"api-key"`
	Endpoint  string        `yaml:"endpoint"`
	VoiceID   string        `yaml:"voice-id"`
	ModelID   string        `yaml:"model-id"`
	CharLimit int           `yaml:"char-limit"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ReleaseConfig anchors the weekly release window.
type ReleaseConfig struct {
	TimeZone  string `yaml:"time-zone"`
	Weekday   string `yaml:"weekday"`
	TimeOfDay string `yaml:"time-of-day"` // HH:MM, local
}

// SermonConfig configures sermon storage.
type SermonConfig struct {
	TTL     time.Duration `yaml:"ttl"`
	LockTTL time.Duration `yaml:"lock-ttl"`
}

// DevotionalConfig configures the daily devotional window.
type DevotionalConfig struct {
	Days    int           `yaml:"days"` // Days kept generated, today included.
	TTL     time.Duration `yaml:"ttl"`
	LockTTL time.Duration `yaml:"lock-ttl"`
	// Spacing pauses between generations; negative disables the pause.
	Spacing       time.Duration `yaml:"spacing"`
	VerseEndpoint string        `yaml:"verse-endpoint"`
	VerseTimeout  time.Duration `yaml:"verse-timeout"`
}

// PrayerConfig configures prayer wall storage.
type PrayerConfig struct {
	PublicTTL    time.Duration `yaml:"public-ttl"`
	LogRetention time.Duration `yaml:"log-retention"`
	LogListLimit int           `yaml:"log-list-limit"`
}

// BlogConfig configures the blog and its feeds.
type BlogConfig struct {
	SiteURL        string `yaml:"site-url"`
	Title          string `yaml:"title"`
	Description    string `yaml:"description"`
	PromptTemplate string `yaml:"prompt-template"`
}

// OutreachConfig configures newsletter and contact forwarding.
type OutreachConfig struct {
	SenderAPIKey    string `yaml:"sender-api-key"`
	SenderEndpoint  string `yaml:"sender-endpoint"`
	WeeklyGroup     string `yaml:"weekly-group"`
	DailyGroup      string `yaml:"daily-group"`
	EmailWebhookURL string `yaml:"email-webhook-url"`
	NotifyEmail     string `yaml:"notify-email"`
}

// LoggingConfig configures logrus output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// ResolveConfigPath returns the configured path or the default one.
func ResolveConfigPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return DefaultConfigPath
	}
	return filepath.Clean(trimmed)
}

// Load reads the YAML file at path, applies environment overrides and defaults,
// and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	raw, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(raw, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	applyEnv(cfg, os.LookupEnv)
	applyDefaults(cfg)
	if errValidate := cfg.Validate(); errValidate != nil {
		return nil, errValidate
	}
	return cfg, nil
}

// Validate reports configuration that would make the service unusable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil config")
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("config: auth.secret is required")
	}
	if c.Auth.TokenFormat != "jwt" && c.Auth.TokenFormat != "compact" {
		return fmt.Errorf("config: unsupported auth.token-format %q", c.Auth.TokenFormat)
	}
	switch c.Store.Driver {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Store.Redis.Addr) == "" {
			return errors.New("config: store.redis.addr is required for the redis driver")
		}
	case "sql":
		if strings.TrimSpace(c.Store.DSN) == "" {
			return errors.New("config: store.dsn is required for the sql driver")
		}
	default:
		return fmt.Errorf("config: unsupported store.driver %q", c.Store.Driver)
	}
	if _, _, errTime := ParseTimeOfDay(c.Release.TimeOfDay); errTime != nil {
		return errTime
	}
	if _, errWeekday := ParseWeekday(c.Release.Weekday); errWeekday != nil {
		return errWeekday
	}
	return nil
}

// ParseTimeOfDay parses an HH:MM string.
func ParseTimeOfDay(value string) (int, int, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, fmt.Errorf("config: invalid time of day %q", value)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

// ParseWeekday parses an English weekday name.
func ParseWeekday(value string) (time.Weekday, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := strings.ToLower(day.String())
		if normalized == name || normalized == name[:3] {
			return day, nil
		}
	}
	return time.Sunday, fmt.Errorf("config: invalid weekday %q", value)
}
