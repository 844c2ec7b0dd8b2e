package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hackgods/steammaster-scheduling/internal/api"
	"github.com/hackgods/steammaster-scheduling/internal/apiclient"
	"github.com/hackgods/steammaster-scheduling/internal/appointment"
	"github.com/hackgods/steammaster-scheduling/internal/auth"
	"github.com/hackgods/steammaster-scheduling/internal/booking"
	"github.com/hackgods/steammaster-scheduling/internal/catalog"
	"github.com/hackgods/steammaster-scheduling/internal/config"
	"github.com/hackgods/steammaster-scheduling/internal/db"
	"github.com/hackgods/steammaster-scheduling/internal/logging"
	"github.com/hackgods/steammaster-scheduling/internal/loyalty"
	"github.com/hackgods/steammaster-scheduling/internal/metrics"
	"github.com/hackgods/steammaster-scheduling/internal/notify"
	redisclient "github.com/hackgods/steammaster-scheduling/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel).With("service", "api-server", "env", cfg.Env)
	logger.Info("api-server starting up", "http_port", cfg.HTTPPort, "version", version)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Error("redis connection error", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", "error", err)
		}
	}()
	logger.Info("connected to Redis", "addr", cfg.RedisAddr)

	checks := []api.HealthCheck{
		{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}

	var counters loyalty.Storage = redisclient.NewKVStore(rdb)
	if cfg.PostgresDSN != "" {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, 5)
		cancelPg()
		if err != nil {
			logger.Error("postgres connection error", "error", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		kv := db.NewKVStore(pgPool)
		if err := kv.EnsureSchema(rootCtx); err != nil {
			logger.Error("postgres schema error", "error", err)
			os.Exit(1)
		}
		counters = kv
		checks = append(checks, api.HealthCheck{Name: "postgres", Ping: pgPool.Ping})
		logger.Info("connected to Postgres, loyalty counters stored there")
	}

	var sender notify.EmailSender = notify.NewStubEmailSender(logger)
	if sg := notify.NewSendGridSender(notify.SendGridConfig{APIKey: cfg.SendGridAPIKey, FromEmail: cfg.EmailFrom}, logger); sg != nil {
		sender = sg
	} else {
		logger.Warn("SENDGRID_API_KEY not set, login codes are only logged")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client := apiclient.New(cfg.APIBaseURL, cfg.APITimeout)
	appts := appointment.NewService(client, appointment.NewStore(), m, logger)
	tokens := auth.NewTokens(cfg.SessionSecret, cfg.SessionTTL)
	hours := booking.Hours{Open: cfg.OpeningHour, Close: cfg.ClosingHour, Interval: cfg.SlotInterval}
	otp := auth.NewOTPService(redisclient.NewOTPStore(rdb), sender, tokens,
		auth.OTPConfig{TTL: cfg.OTPTTL, MaxAttempts: cfg.OTPMaxAttempts}, m, logger)

	router := api.NewRouter(api.RouterConfig{
		Appointments: appts,
		Catalog:      catalog.New(client, m),
		Booking:      booking.NewService(client, redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL), hours, m, logger),
		Loyalty:      loyalty.NewService(appts, counters, m, logger),
		OTP:          otp,
		Tokens:       tokens,
		Checks:       checks,
		Gatherer:     reg,
		Logger:       logger,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down api-server", "timeout", cfg.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
