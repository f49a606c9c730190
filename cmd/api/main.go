package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"card-offer-finder/internal/catalog"
	"card-offer-finder/internal/config"
	"card-offer-finder/internal/database"
	"card-offer-finder/internal/events"
	"card-offer-finder/internal/features"
	"card-offer-finder/internal/handler"
	"card-offer-finder/internal/kvstore"
	"card-offer-finder/internal/middleware"
	"card-offer-finder/internal/selection"
	"card-offer-finder/internal/service"
	"card-offer-finder/internal/tracing"
	"card-offer-finder/internal/validation"
)

func main() {
	configFile := flag.String("config", "", "Config file path (.json or .toml)")
	envFile := flag.String("env", ".env", "Environment file to load before reading configuration")
	cardsParam := flag.String("cards", "", "Shared selection to open with, e.g. a,b")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No %s file loaded, continuing with system environment variables", *envFile)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := newLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	tracer, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: tracing.DefaultServiceName,
		Environment: cfg.Tracing.Environment,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize key-value store
	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Failed to initialize %s store: %v", cfg.Store.Backend, err)
	}
	defer closeStore()

	// Load the card catalog; without it no offers can be computed
	loader := catalog.NewLoader()
	loader.S3Region = cfg.Catalog.S3Region
	cat, err := loader.Load(ctx, cfg.Catalog.Source)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	for _, key := range cat.Keys() {
		card, _ := cat.Get(key)
		if err := validation.ValidateCard(card); err != nil {
			logger.Warn("catalog card has invalid fields",
				slog.String("card_id", key),
				slog.Any("error", err))
		}
	}

	flags := features.NewManager().Defaults()
	if unknown := flags.Apply(cfg.Features); len(unknown) > 0 {
		logger.Warn("ignoring unknown feature flags", slog.String("flags", strings.Join(unknown, ",")))
	}

	eventManager := events.NewManager(flags.IsEnabled(features.FeatureEventHooks))
	eventManager.Subscribe(events.EventSelectionChanged, events.LogHandler(logger))
	eventManager.Subscribe(events.EventUsageRecorded, events.LogHandler(logger))
	eventManager.Subscribe(events.EventUsageEdited, events.LogHandler(logger))
	defer eventManager.Shutdown()

	// Initialize service
	svc, err := service.NewService(cat, store, service.Options{
		BaseURL:          cfg.Server.BaseURL,
		CarouselInterval: cfg.Carousel.Interval(),
		ViewCacheSize:    cfg.Carousel.ViewCache,
		Features:         flags,
		Events:           eventManager,
		Tracer:           tracer,
		Logger:           logger,
	})
	if err != nil {
		log.Fatalf("Failed to initialize service: %v", err)
	}
	defer svc.Close()

	if _, err := svc.Start(ctx, selection.DecodeShareValue(*cardsParam)); err != nil {
		log.Fatalf("Failed to restore session: %v", err)
	}

	// Initialize handlers
	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.TracingMiddleware(tracing.DefaultServiceName))

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	h.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	protocol := "HTTP"
	if cfg.Server.EnableTLS {
		protocol = "HTTPS"
	}
	logger.Info("starting server",
		slog.String("protocol", protocol),
		slog.String("addr", addr),
		slog.String("store", cfg.Store.Backend),
		slog.String("catalog", cfg.Catalog.Source),
		slog.Int("cards", cat.Len()))

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logger.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down server", slog.Any("error", err))
		}
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down tracing", slog.Any("error", err))
		}
	}()

	if cfg.Server.EnableTLS {
		err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
	<-done
}

// openStore builds the configured key-value backend and its close function.
func openStore(ctx context.Context, cfg config.StoreConfig) (kvstore.Store, func(), error) {
	switch cfg.Backend {
	case config.StoreSQLite:
		db, err := database.NewDB(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	case config.StoreRedis:
		rs, err := kvstore.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { rs.Close() }, nil
	case config.StoreMemory:
		return kvstore.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// newLogger returns a text or JSON slog logger at the configured level.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
