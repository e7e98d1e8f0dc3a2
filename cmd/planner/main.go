package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"lessonplanner/internal/api"
	"lessonplanner/internal/calendar"
	"lessonplanner/internal/config"
	"lessonplanner/internal/database"
	"lessonplanner/internal/events"
	"lessonplanner/internal/metrics"
	"lessonplanner/internal/prefs"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv(config.PathEnv))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] != "serve" {
		cli := newCommandLine(cfg, &logger)
		if err := cli.run(ctx, os.Args); err != nil {
			if errors.Is(err, errHelp) {
				os.Exit(2)
			}
			logger.Fatal().Err(err).Msg("command failed")
		}
		return
	}

	if err := serve(ctx, cfg, &logger); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	backups := database.NewBackupService(db, cfg.Backup, logger)
	go backups.Start(ctx)

	holidays := calendar.NewHolidaySet(nil)
	err = config.WatchHolidays(ctx, cfg.HolidaysPath, 30*time.Second, func(h *config.HolidaysConfig) {
		holidays.Replace(h.Calendar())
		logger.Info().Int("count", holidays.Len()).Msg("holidays loaded")
	})
	if err != nil {
		logger.Warn().Err(err).Msg("holidays unavailable, calendar shows none")
	}

	bus := events.NewBus()
	bus.Subscribe(events.WorkplanBulkCreated, logEvent(logger))

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	srv := api.NewHTTPServer(db, holidays, api.Config{
		APIKey:        cfg.Server.APIKey,
		CORSOrigins:   cfg.Server.CORSOrigins,
		BulkRate:      cfg.Server.BulkRate,
		BulkBurst:     cfg.Server.BulkBurst,
		HorizonDays:   cfg.Scheduler.HorizonDays,
		PreviewLength: cfg.Scheduler.PreviewLength,
	}, bus, logger)
	srv.UsePreferences(preferenceStore(rdb, logger))

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.Server.Port).Str("db", db.Path()).Msg("planner api started")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	logger.Info().Msg("planner api stopped")
	return nil
}

// preferenceStore keeps preferences in Redis when configured, falling back to
// process memory while Redis is down.
func preferenceStore(rdb *redis.Client, logger *zerolog.Logger) prefs.Store {
	memory := prefs.NewMemoryStore(30*24*time.Hour, time.Hour)
	if rdb == nil {
		return memory
	}
	return prefs.NewFailoverStore(prefs.NewRedisStore(rdb, 0), memory, logger)
}

func logEvent(logger *zerolog.Logger) events.Handler {
	return func(ev events.Event) error {
		logger.Info().Str("event_id", ev.ID).Str("type", ev.Type).RawJSON("payload", ev.Payload).Msg("event")
		return nil
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
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
