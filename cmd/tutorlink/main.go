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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tutorlink/internal/api"
	"tutorlink/internal/cache"
	"tutorlink/internal/config"
	"tutorlink/internal/coordinator"
	"tutorlink/internal/metrics"
	"tutorlink/internal/session"
)

func main() {
	_ = godotenv.Load()

	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("TUTORLINK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	app, err := newApp(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize")
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// app wires the session, the API client, the shared cache and the
// mutation coordinator together for the CLI commands.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   *session.SQLiteStore
	session *session.Session
	client  *api.Client
	cache   *cache.Store
	notices *coordinator.NoticeBus
	coord   *coordinator.Coordinator
	rdb     *redis.Client
}

func newApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	store, err := session.OpenSQLiteStore(cfg.Session.Path)
	if err != nil {
		return nil, err
	}

	sess := session.New(store, logger)
	if err := sess.Restore(context.Background()); err != nil {
		store.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	client := api.New(cfg.API.BaseURL, sess, cfg.APITimeout(), logger)
	client.UseRateLimit(cfg.API.RateRPS, cfg.API.RateBurst)

	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	collections := cache.NewStore()
	notices := coordinator.NewNoticeBus()
	coord := coordinator.New(client, collections, notices, logger)

	// A rejected credential tears down the session; the expiry hook
	// below drops every cached collection with it.
	client.OnAuthFailure(func() {
		metrics.IncAuthFailure()
		sess.Invalidate(context.Background())
	})
	sess.OnExpire(func() {
		collections.Clear()
	})

	notices.Subscribe(func(n coordinator.Notice) {
		switch n.Level {
		case coordinator.NoticeError:
			logger.Error().Err(n.Err).Msg(n.Message)
		case coordinator.NoticeWarn:
			logger.Warn().Msg(n.Message)
		default:
			logger.Info().Msg(n.Message)
		}
	})

	metrics.Register()

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		session: sess,
		client:  client,
		cache:   collections,
		notices: notices,
		coord:   coord,
		rdb:     rdb,
	}, nil
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	_ = a.store.Close()
}

func (a *app) startMonitoring(ctx context.Context) {
	port := a.cfg.Monitoring.HealthCheckPort
	if port == 0 {
		port = 8090
	}
	go a.startHealthServer(ctx, port)

	if a.cfg.Monitoring.PrometheusEnabled {
		promPort := a.cfg.Monitoring.PrometheusPort
		if promPort == 0 {
			promPort = 9090
		}
		go a.startMetricsServer(ctx, promPort)
	}
}

func (a *app) startHealthServer(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := a.client.HealthCheck(ctxPing); err != nil {
			http.Error(w, "service not reachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.logger.Error().Err(err).Msg("health server error")
	}
}

func (a *app) startMetricsServer(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.logger.Error().Err(err).Msg("metrics server error")
	}
}
