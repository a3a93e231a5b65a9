package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"labelops/internal/access"
	"labelops/internal/chatdefaults"
	"labelops/internal/config"
	"labelops/internal/ingest"
	"labelops/internal/metrics"
	"labelops/internal/queue"
	"labelops/internal/routing"
	"labelops/internal/storage"
	"labelops/internal/telegram"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogger(cfg.Log.Level)
	log.Info().
		Str("config", cfg.Path).
		Str("base_dir", cfg.BaseDir).
		Str("storage", cfg.Storage.Driver).
		Str("default_client", cfg.Telegram.DefaultClientID).
		Strs("clients", cfg.Telegram.Clients).
		Msg("starting labelops bot")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		defaults chatdefaults.Store
		auditor  routing.Auditor
	)
	if cfg.Storage.Driver == config.DriverFile {
		defaults = chatdefaults.NewFileStore(cfg.Telegram.ChatDefaultsPath)
		log.Info().Str("path", cfg.Telegram.ChatDefaultsPath).Msg("chat defaults stored in json file")
	} else {
		store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, cfg.Storage.Migrate())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize storage")
		}
		defer store.Close()
		defaults = store
		auditor = store
	}

	var dedupe *queue.UpdateDeduplicator
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
		dedupe = queue.NewUpdateDeduplicator(rdb, cfg.Redis.UpdateTTL)
	}

	writer, err := ingest.NewWriter(ingest.Config{BaseDir: cfg.BaseDir})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize ingestion writer")
	}

	allow := access.NewAllowList(cfg.Telegram.AllowlistedChatIDs, cfg.Telegram.AllowlistedUsernames)
	if allow.Empty() {
		log.Warn().Msg("allowlist is empty, every message will be ignored")
	}

	m := metrics.Global()
	pipeline := routing.NewPipeline(routing.Config{
		AllowList:       allow,
		Clients:         routing.NewClientSet(cfg.Telegram.Clients),
		DefaultClientID: cfg.Telegram.DefaultClientID,
		Defaults:        defaults,
		Writer:          writer,
		Auditor:         auditor,
		Logger:          log.Logger,
		Metrics:         m,
	})

	bot, err := gotgbot.NewBot(cfg.Telegram.Token, nil)
	if err != nil {
		log.Fatal().Str("error", sanitizeTelegramErr(err, cfg.Telegram.Token)).Msg("failed to create telegram bot")
	}
	log.Info().Str("bot_username", bot.User.Username).Int64("bot_id", bot.User.Id).Msg("telegram bot initialized")

	errCh := make(chan error, 2)
	logTelegramErr := func(err error) {
		log.Error().Str("component", "telegram").Msg(sanitizeTelegramErr(err, cfg.Telegram.Token))
	}

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		MaxRoutines:      50,
		UnhandledErrFunc: logTelegramErr,
		Processor: telegram.Processor{
			Dedupe:  dedupe,
			Metrics: m,
			Logger:  log.Logger,
		},
	})
	telegram.NewService(telegram.Config{
		Pipeline: pipeline,
		Logger:   log.Logger,
	}).Register(dispatcher)
	updater := ext.NewUpdater(dispatcher, &ext.UpdaterOpts{
		UnhandledErrFunc: logTelegramErr,
	})

	var webhookRoute string
	var webhookHandler http.HandlerFunc
	if cfg.Telegram.Webhook.URL == "" {
		if err := updater.StartPolling(bot, &ext.PollingOpts{
			EnableWebhookDeletion: true,
			GetUpdatesOpts: &gotgbot.GetUpdatesOpts{
				Timeout: 50,
				RequestOpts: &gotgbot.RequestOpts{
					Timeout: 60 * time.Second,
				},
			},
		}); err != nil {
			log.Fatal().Str("error", sanitizeTelegramErr(err, cfg.Telegram.Token)).Msg("failed to start polling")
		}
		log.Info().Msg("polling mode started")
	} else {
		path := cfg.Telegram.Webhook.SecretPath
		if err := updater.AddWebhook(bot, path, &ext.AddWebhookOpts{SecretToken: cfg.Telegram.Webhook.SecretToken}); err != nil {
			log.Fatal().Err(err).Msg("failed to configure webhook handler")
		}
		webhookURL := strings.TrimSuffix(cfg.Telegram.Webhook.URL, "/") + "/" + path
		if _, err := bot.SetWebhook(webhookURL, &gotgbot.SetWebhookOpts{
			SecretToken: cfg.Telegram.Webhook.SecretToken,
		}); err != nil {
			log.Fatal().Str("error", sanitizeTelegramErr(err, cfg.Telegram.Token)).Msg("failed to set telegram webhook")
		}
		log.Info().Str("webhook_url", webhookURL).Msg("webhook registered")
		webhookRoute = "/" + path
		webhookHandler = updater.GetHandlerFunc("/")
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.HTTP.HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle(cfg.HTTP.MetricsPath, promhttp.Handler())
	if webhookHandler != nil {
		mux.HandleFunc(webhookRoute, webhookHandler)
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTP.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTP.ListenAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("runtime error")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := updater.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop updater")
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
	}

	log.Info().Msg("stopped")
}

func setupLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLogLevel(level))
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func sanitizeTelegramErr(err error, token string) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if strings.TrimSpace(token) == "" {
		return msg
	}

	msg = strings.ReplaceAll(msg, token, "<redacted-token>")
	if idx := strings.Index(token, ":"); idx > 0 {
		botID := token[:idx]
		msg = strings.ReplaceAll(msg, "/bot"+botID+":", "/bot<redacted>:")
		msg = strings.ReplaceAll(msg, "bot"+botID+"/", "bot<redacted>/")
	}
	return msg
}
