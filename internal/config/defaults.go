package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	defaultAddr            = ":8080"
	defaultShutdownTimeout = 30 * time.Second
	defaultTokenMaxAge     = 24 * time.Hour
	defaultSweepInterval   = 6 * time.Hour
	defaultProviderTimeout = 25 * time.Second

	defaultGenerationEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	defaultGenerationModel    = "gemini-2.5-flash"
	defaultSpeechEndpoint     = "https://api.elevenlabs.io/v1"
	defaultSpeechVoiceID      = "21m00Tcm4TlvDq8ikWAM"
	defaultSpeechModelID      = "eleven_multilingual_v2"
	defaultSpeechCharLimit    = 2500

	defaultSermonTTL       = 5616000 * time.Second
	defaultSermonLockTTL   = 5 * time.Minute
	defaultDevotionalDays  = 7
	defaultDevotionalTTL   = 30 * 24 * time.Hour
	defaultDevotionalPause = time.Second
	defaultVerseEndpoint   = "https://bible-api.com"
	defaultVerseTimeout    = 10 * time.Second
	defaultPrayerPublicTTL = 7 * 24 * time.Hour
	defaultLogRetention    = 180 * 24 * time.Hour
	defaultLogListLimit    = 100

	defaultSenderEndpoint = "https://api.sender.net/v2"
	defaultWeeklyGroup    = "avJD68"
	defaultDailyGroup     = "YdwgZ6r"
)

// LoadEnvFile loads a dotenv file into the process environment. Missing files
// are ignored; variables already set win.
func LoadEnvFile(path string) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = ".env"
	}
	if errLoad := godotenv.Load(trimmed); errLoad != nil {
		log.Debugf("config: no env file loaded from %s: %v", trimmed, errLoad)
	}
}

// applyEnv overlays environment variables onto cfg. Both the MINISTRY_ prefixed
// names and the bare legacy names are accepted.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(target *string, keys ...string) {
		for _, key := range keys {
			if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
				*target = strings.TrimSpace(value)
				return
			}
		}
	}
	dur := func(target *time.Duration, keys ...string) {
		for _, key := range keys {
			value, ok := lookup(key)
			if !ok {
				continue
			}
			if parsed, errParse := time.ParseDuration(strings.TrimSpace(value)); errParse == nil {
				*target = parsed
				return
			}
			log.Warnf("config: ignoring invalid duration %s=%q", key, value)
		}
	}

	str(&cfg.Server.Addr, "MINISTRY_ADDR")
	if port, ok := lookup("PORT"); ok && strings.TrimSpace(port) != "" && cfg.Server.Addr == "" {
		cfg.Server.Addr = ":" + strings.TrimSpace(port)
	}

	str(&cfg.Auth.Secret, "MINISTRY_AUTH_SECRET", "ADMIN_SECRET", "JWT_SECRET")
	str(&cfg.Auth.TokenFormat, "MINISTRY_TOKEN_FORMAT")
	dur(&cfg.Auth.TokenMaxAge, "MINISTRY_TOKEN_MAX_AGE")
	str(&cfg.Auth.Super.Username, "MINISTRY_SUPER_USERNAME", "SUPERADMIN_USERNAME")
	str(&cfg.Auth.Super.Password, "MINISTRY_SUPER_PASSWORD", "SUPERADMIN_PASSWORD")
	str(&cfg.Auth.Super.TOTPSecret, "MINISTRY_SUPER_TOTP_SECRET")
	str(&cfg.Auth.Site.Username, "MINISTRY_SITE_USERNAME", "SITEADMIN_USERNAME")
	str(&cfg.Auth.Site.Password, "MINISTRY_SITE_PASSWORD", "SITEADMIN_PASSWORD")
	str(&cfg.Auth.Site.TOTPSecret, "MINISTRY_SITE_TOTP_SECRET")

	str(&cfg.Store.Driver, "MINISTRY_STORE_DRIVER")
	str(&cfg.Store.DSN, "MINISTRY_STORE_DSN", "DATABASE_URL")
	str(&cfg.Store.Redis.Addr, "MINISTRY_REDIS_ADDR", "REDIS_ADDR")
	str(&cfg.Store.Redis.Password, "MINISTRY_REDIS_PASSWORD", "REDIS_PASSWORD")
	if value, ok := lookup("MINISTRY_REDIS_DB"); ok {
		if parsed, errParse := strconv.Atoi(strings.TrimSpace(value)); errParse == nil {
			cfg.Store.Redis.DB = parsed
		}
	}

	str(&cfg.Generation.APIKey, "MINISTRY_GEMINI_API_KEY", "GEMINI_API_KEY")
	str(&cfg.Generation.Model, "MINISTRY_GEMINI_MODEL")
	str(&cfg.Speech.APIKey, "MINISTRY_ELEVENLABS_API_KEY", "ELEVENLABS_API_KEY")

	str(&cfg.Devotional.VerseEndpoint, "MINISTRY_BIBLE_API_URL", "BIBLE_API_URL")
	if value, ok := lookup("MINISTRY_DEVOTIONAL_DAYS"); ok {
		if parsed, errParse := strconv.Atoi(strings.TrimSpace(value)); errParse == nil {
			cfg.Devotional.Days = parsed
		} else {
			log.Warnf("config: ignoring invalid MINISTRY_DEVOTIONAL_DAYS=%q", value)
		}
	}

	dur(&cfg.Prayer.LogRetention, "MINISTRY_PRAYER_LOG_RETENTION")

	str(&cfg.Blog.SiteURL, "MINISTRY_SITE_URL", "SITE_URL")
	str(&cfg.Blog.PromptTemplate, "PROMPT_TEMPLATE")

	str(&cfg.Outreach.SenderAPIKey, "MINISTRY_SENDER_API_KEY", "SENDER_API_KEY")
	str(&cfg.Outreach.EmailWebhookURL, "MINISTRY_EMAIL_WEBHOOK_URL", "EMAIL_WEBHOOK_URL")
	str(&cfg.Outreach.NotifyEmail, "MINISTRY_NOTIFY_EMAIL", "NOTIFY_EMAIL")

	str(&cfg.Logging.Level, "MINISTRY_LOG_LEVEL", "LOG_LEVEL")
	str(&cfg.Logging.File, "MINISTRY_LOG_FILE")
}

// applyDefaults fills zero values with working defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}

	cfg.Auth.TokenFormat = strings.ToLower(strings.TrimSpace(cfg.Auth.TokenFormat))
	if cfg.Auth.TokenFormat == "" {
		cfg.Auth.TokenFormat = "jwt"
	}
	if cfg.Auth.TokenMaxAge == 0 {
		cfg.Auth.TokenMaxAge = defaultTokenMaxAge
	}
	if cfg.Auth.Super.Username == "" {
		cfg.Auth.Super.Username = "superadmin"
	}
	if cfg.Auth.Site.Username == "" {
		cfg.Auth.Site.Username = "siteadmin"
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "memory"
	}
	if cfg.Store.SweepInterval <= 0 {
		cfg.Store.SweepInterval = defaultSweepInterval
	}
	if cfg.Store.Redis.KeyPrefix == "" {
		cfg.Store.Redis.KeyPrefix = "ministry:"
	}

	if cfg.Generation.Endpoint == "" {
		cfg.Generation.Endpoint = defaultGenerationEndpoint
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = defaultGenerationModel
	}
	if cfg.Generation.Timeout <= 0 {
		cfg.Generation.Timeout = defaultProviderTimeout
	}

	if cfg.Speech.Endpoint == "" {
		cfg.Speech.Endpoint = defaultSpeechEndpoint
	}
	if cfg.Speech.VoiceID == "" {
		cfg.Speech.VoiceID = defaultSpeechVoiceID
	}
	if cfg.Speech.ModelID == "" {
		cfg.Speech.ModelID = defaultSpeechModelID
	}
	if cfg.Speech.CharLimit <= 0 {
		cfg.Speech.CharLimit = defaultSpeechCharLimit
	}
	if cfg.Speech.Timeout <= 0 {
		cfg.Speech.Timeout = defaultProviderTimeout
	}

	if cfg.Release.TimeZone == "" {
		cfg.Release.TimeZone = "America/New_York"
	}
	if cfg.Release.Weekday == "" {
		cfg.Release.Weekday = "sunday"
	}
	if cfg.Release.TimeOfDay == "" {
		cfg.Release.TimeOfDay = "08:45"
	}

	if cfg.Sermon.TTL <= 0 {
		cfg.Sermon.TTL = defaultSermonTTL
	}
	if cfg.Sermon.LockTTL <= 0 {
		cfg.Sermon.LockTTL = defaultSermonLockTTL
	}

	if cfg.Devotional.Days <= 0 {
		cfg.Devotional.Days = defaultDevotionalDays
	}
	if cfg.Devotional.TTL <= 0 {
		cfg.Devotional.TTL = defaultDevotionalTTL
	}
	if cfg.Devotional.LockTTL <= 0 {
		cfg.Devotional.LockTTL = defaultSermonLockTTL
	}
	if cfg.Devotional.Spacing == 0 {
		cfg.Devotional.Spacing = defaultDevotionalPause
	}
	cfg.Devotional.VerseEndpoint = strings.TrimRight(cfg.Devotional.VerseEndpoint, "/")
	if cfg.Devotional.VerseEndpoint == "" {
		cfg.Devotional.VerseEndpoint = defaultVerseEndpoint
	}
	if cfg.Devotional.VerseTimeout <= 0 {
		cfg.Devotional.VerseTimeout = defaultVerseTimeout
	}

	if cfg.Prayer.PublicTTL <= 0 {
		cfg.Prayer.PublicTTL = defaultPrayerPublicTTL
	}
	// A negative retention keeps log entries forever.
	if cfg.Prayer.LogRetention == 0 {
		cfg.Prayer.LogRetention = defaultLogRetention
	}
	if cfg.Prayer.LogListLimit <= 0 {
		cfg.Prayer.LogListLimit = defaultLogListLimit
	}

	if cfg.Blog.SiteURL == "" {
		cfg.Blog.SiteURL = "https://mbdigitalministry.com"
	}
	cfg.Blog.SiteURL = strings.TrimRight(cfg.Blog.SiteURL, "/")
	if cfg.Blog.Title == "" {
		cfg.Blog.Title = "MB Digital Ministry"
	}
	if cfg.Blog.Description == "" {
		cfg.Blog.Description = "Devotionals, sermons and encouragement."
	}

	if cfg.Outreach.SenderEndpoint == "" {
		cfg.Outreach.SenderEndpoint = defaultSenderEndpoint
	}
	if cfg.Outreach.WeeklyGroup == "" {
		cfg.Outreach.WeeklyGroup = defaultWeeklyGroup
	}
	if cfg.Outreach.DailyGroup == "" {
		cfg.Outreach.DailyGroup = defaultDailyGroup
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
