package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/background"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/blog"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/config"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/db"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/devotional"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/genai"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/http/api/admin"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/http/api/front"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/kv"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/logging"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/outreach"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/pastor"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/prayer"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/release"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/security"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/sermon"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/util"
	log "github.com/sirupsen/logrus"
)

const readHeaderTimeout = 5 * time.Second

// Migrate opens the SQL content store and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	config.LoadEnvFile(cfg.EnvFile)
	conf, err := config.Load(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return err
	}
	if conf.Store.Driver != "sql" {
		return fmt.Errorf("app: migrate requires the sql store driver, got %q", conf.Store.Driver)
	}
	conn, err := db.Open(conf.Store.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return errMigrate
	}
	return kv.NewSQLBackend(conn).Close()
}

// RunServer boots the ministry API and blocks until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	config.LoadEnvFile(cfg.EnvFile)
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logCloser, err := logging.Setup(conf.Logging)
	if err != nil {
		return err
	}
	defer func() {
		if errClose := logCloser.Close(); errClose != nil {
			log.Errorf("app: close log output: %v", errClose)
		}
	}()
	log.Infof("app: loaded config from %s", configPath)

	backend, err := openBackend(ctx, conf.Store)
	if err != nil {
		return err
	}
	defer func() {
		if errClose := backend.Close(); errClose != nil {
			log.Errorf("app: close content store: %v", errClose)
		}
	}()

	runner := background.NewRunner(ctx, 0)
	engine, devotionals, err := buildEngine(conf, backend, runner)
	if err != nil {
		return err
	}
	if errAhead := devotionals.ScheduleAhead(time.Now()); errAhead != nil {
		log.Warnf("app: schedule devotional generation: %v", errAhead)
	}

	server := &http.Server{
		Addr:              conf.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Infof("app: listening on %s", conf.Server.Addr)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			serveErr <- errServe
		}
		close(serveErr)
	}()

	select {
	case errServe := <-serveErr:
		if errServe != nil {
			return fmt.Errorf("app: serve: %w", errServe)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("app: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		log.Errorf("app: http shutdown: %v", errShutdown)
	}
	if errRunner := runner.Shutdown(shutdownCtx); errRunner != nil {
		log.Errorf("app: %v", errRunner)
	}
	return nil
}

// buildEngine wires the services onto a gin engine. The devotional service is
// returned so the caller can start filling the window.
func buildEngine(conf *config.Config, backend kv.Backend, runner *background.Runner) (*gin.Engine, *devotional.Service, error) {
	hour, minute, err := config.ParseTimeOfDay(conf.Release.TimeOfDay)
	if err != nil {
		return nil, nil, err
	}
	weekday, err := config.ParseWeekday(conf.Release.Weekday)
	if err != nil {
		return nil, nil, err
	}
	scheduler, err := release.NewNamed(conf.Release.TimeZone, weekday, hour, minute)
	if err != nil {
		return nil, nil, err
	}

	text := genai.NewGeminiClient(genai.GeminiOptions{
		Endpoint: conf.Generation.Endpoint,
		Model:    conf.Generation.Model,
		APIKey:   conf.Generation.APIKey,
		Timeout:  conf.Generation.Timeout,
	})
	var audio genai.AudioSynthesizer
	if conf.Speech.APIKey != "" {
		audio = genai.NewElevenLabsClient(genai.ElevenLabsOptions{
			Endpoint: conf.Speech.Endpoint,
			APIKey:   conf.Speech.APIKey,
			VoiceID:  conf.Speech.VoiceID,
			ModelID:  conf.Speech.ModelID,
			Timeout:  conf.Speech.Timeout,
		})
	} else {
		log.Warn("app: speech api key not set, sermons will have no audio")
	}
	if conf.Generation.APIKey == "" {
		log.Warn("app: generation api key not set, generated content will fail")
	} else {
		log.Infof("app: text generation via %s (key %s)", conf.Generation.Model, util.MaskSecret(conf.Generation.APIKey))
	}

	sermons := sermon.NewCache(backend.Namespace(kv.NamespaceSermons), scheduler, text, audio, runner, sermon.Options{
		TTL:            conf.Sermon.TTL,
		LockTTL:        conf.Sermon.LockTTL,
		AudioCharLimit: conf.Speech.CharLimit,
	})
	devotionals := devotional.NewService(backend.Namespace(kv.NamespaceDevotionals), genai.NewBibleAPIClient(genai.BibleAPIOptions{
		Endpoint: conf.Devotional.VerseEndpoint,
		Timeout:  conf.Devotional.VerseTimeout,
	}), text, runner, devotional.Options{
		Days:     conf.Devotional.Days,
		TTL:      conf.Devotional.TTL,
		LockTTL:  conf.Devotional.LockTTL,
		Location: scheduler.Location(),
		Spacing:  conf.Devotional.Spacing,
	})
	prayers := prayer.NewGate(backend.Namespace(kv.NamespacePrayers), backend.Namespace(kv.NamespacePrayerLogs), text, runner, prayer.Options{
		PublicTTL:    conf.Prayer.PublicTTL,
		LogRetention: conf.Prayer.LogRetention,
		LogListLimit: conf.Prayer.LogListLimit,
	})
	posts := blog.NewService(backend.Namespace(kv.NamespaceBlog), text, blog.Options{
		SiteURL:        conf.Blog.SiteURL,
		Title:          conf.Blog.Title,
		Description:    conf.Blog.Description,
		PromptTemplate: conf.Blog.PromptTemplate,
	})
	outreachSvc := outreach.NewService(backend.Namespace(kv.NamespaceAnalytics), runner, outreach.Options{
		SenderAPIKey:   conf.Outreach.SenderAPIKey,
		SenderEndpoint: conf.Outreach.SenderEndpoint,
		WeeklyGroup:    conf.Outreach.WeeklyGroup,
		DailyGroup:     conf.Outreach.DailyGroup,
		WebhookURL:     conf.Outreach.EmailWebhookURL,
		NotifyEmail:    conf.Outreach.NotifyEmail,
	})
	codec := security.NewTokenCodec(conf.Auth.Secret, conf.Auth.TokenFormat, conf.Auth.TokenMaxAge)

	engine := gin.New()
	engine.Use(logging.GinLogger(), logging.GinRecovery())
	admin.RegisterAdminRoutes(engine, codec, conf.Auth, admin.Services{
		Sermons:     sermons,
		Devotionals: devotionals,
		Prayers:     prayers,
		Blog:        posts,
	})
	front.RegisterFrontRoutes(engine, front.Services{
		Sermons:        sermons,
		Devotionals:    devotionals,
		Prayers:        prayers,
		Pastor:         pastor.NewService(text),
		Outreach:       outreachSvc,
		Blog:           posts,
		Health:         backend.Namespace(kv.NamespaceAnalytics),
		AllowedOrigins: conf.Server.AllowedOrigins,
	})
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	return engine, devotionals, nil
}
