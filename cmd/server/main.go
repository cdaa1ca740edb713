package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/automaxprocs/maxprocs"

	"stellaris/internal/api"
	"stellaris/internal/booking"
	"stellaris/internal/config"
	"stellaris/internal/database"
	"stellaris/internal/events"
	"stellaris/internal/google"
	"stellaris/internal/metrics"
	"stellaris/internal/notify"
	"stellaris/internal/ratelimit"
	"stellaris/internal/slots"
	"stellaris/internal/storage"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logger.Debug().Msgf(format, args...)
	})); err != nil {
		logger.Warn().Err(err).Msg("failed to set GOMAXPROCS")
	}

	if err := config.LoadDotEnv(); err != nil {
		logger.Fatal().Err(err).Msg("failed to load .env")
	}
	cfg, err := config.Load(os.Getenv("STELLARIS_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open data dir error")
	}
	if err := store.EnsureDefaults(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to init data files")
	}

	auditDB, err := database.NewDB(cfg.Storage.AuditDBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open audit db error")
	}
	defer auditDB.Close()

	bus := events.NewEventBus(logger)
	database.NewAuditRecorder(auditDB, logger).Register(bus)

	dispatcher := newDispatcher(cfg, logger)
	dispatcher.Register(bus)
	dispatcher.Start(ctx)
	defer dispatcher.Close()

	if cfg.Google.CredentialsFile != "" && cfg.Google.BookingsSpreadsheetID != "" {
		mirror, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingsSpreadsheetID, cfg.Google.SheetName, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Google Sheets disabled")
		} else {
			if err := mirror.WarmUp(ctx); err != nil {
				logger.Warn().Err(err).Msg("failed to load spreadsheet rows")
			}
			mirror.Register(bus)
			defer mirror.Wait()
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		if rdb != nil {
			limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimitWindow(), "stellaris:rl")
		} else {
			limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimitWindow())
		}
	}

	gen := slots.NewGenerator(slots.WithMinNotice(cfg.MinNotice()))
	svc := booking.NewService(store, gen, bus, logger)

	if cfg.Reminders.Enabled {
		reminders := notify.NewReminderScheduler(notify.ReminderConfig{
			DailyHour:   cfg.Reminders.DailyHour,
			DailyMinute: cfg.Reminders.DailyMinute,
		}, svc, dispatcher, logger)
		go reminders.Start(ctx)
	}

	backups := database.NewBackupService(cfg.Storage.DataDir, auditDB, cfg.Backup, &logger)
	go backups.Start(ctx)

	watchSchedule(ctx, store.SchedulePath(), cfg.WatchInterval(), logger)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, auditDB, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(svc, api.Options{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		AdminAPIKey:    cfg.Admin.APIKey,
		PublicDir:      cfg.Server.PublicDir,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		ReadTimeout:    cfg.ReadTimeout(),
		WriteTimeout:   cfg.WriteTimeout(),
		Limiter:        limiter,
		Audit:          auditDB,
	}, logger)

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("API shutdown error")
		}
	}()

	if cfg.Admin.APIKey == "changeme" {
		logger.Warn().Msg("admin.api_key is the default value, set ADMIN_API_KEY")
	}
	logger.Info().Int("port", cfg.Server.Port).Str("data_dir", cfg.Storage.DataDir).Msg("Stellaris started")
	if err := server.Start(); err != nil {
		logger.Error().Err(err).Msg("API server error")
	}
	logger.Info().Msg("Stellaris stopped")
}

func newDispatcher(cfg *config.Config, logger zerolog.Logger) *notify.Dispatcher {
	var mail notify.MailSender
	if sender := notify.NewSMTPSender(notify.SMTPConfig(cfg.SMTP)); sender != nil {
		mail = sender
	}

	var chat notify.ChatSender
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		sender, err := notify.NewTelegramSender(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID)
		if err != nil {
			logger.Error().Err(err).Msg("Telegram notifications disabled")
		} else {
			chat = sender
		}
	}

	return notify.NewDispatcher(mail, chat, notify.Config{
		AdminEmail: cfg.Admin.NotifyEmail,
		Rate:       cfg.Notify.RatePerSecond,
		Burst:      cfg.Notify.Burst,
		Retry:      notify.DefaultRetryConfig(),
	}, logger)
}

// watchSchedule reports hand edits of the schedule file that would be refused by the admin endpoint.
func watchSchedule(ctx context.Context, path string, interval time.Duration, logger zerolog.Logger) {
	err := config.WatchFile(ctx, path, interval, func(data []byte) {
		if err := slots.ValidateJSON(data); err != nil {
			logger.Error().Err(err).Str("path", path).Msg("Schedule file edited with invalid content")
			return
		}
		logger.Info().Str("path", path).Msg("Schedule file changed")
	})
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("schedule watcher disabled")
	}
}

func startHealthServer(ctx context.Context, port int, auditDB *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := auditDB.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
