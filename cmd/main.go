package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	h "github.com/oznkts/E-menum-V8-sub001/internal/http"
	"github.com/oznkts/E-menum-V8-sub001/internal/menu"
	"github.com/oznkts/E-menum-V8-sub001/internal/observability"
	"github.com/oznkts/E-menum-V8-sub001/internal/orders"
	"github.com/oznkts/E-menum-V8-sub001/internal/publisher"
	"github.com/oznkts/E-menum-V8-sub001/internal/store"
)

type Config struct {
	HTTPPort           string
	MongoURI           string
	MongoDBName        string
	RedisAddr          string
	RedisPassword      string
	MenuDBPath         string
	MenuMigrationsDir  string
	OrderMigrationsDir string
	KafkaBrokers       string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "cartdb"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		MenuDBPath:         getEnv("MENU_DB_PATH", "menu.db"),
		MenuMigrationsDir:  getEnv("MENU_MIGRATIONS_DIR", "migrations/menu"),
		OrderMigrationsDir: getEnv("ORDER_MIGRATIONS_DIR", "migrations/orders"),
		KafkaBrokers:       getEnv("KAFKA_BROKERS", "localhost:9092"),
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()

	// Cart persistence: mongo durable store with a redis cache in front.
	mongoDB, err := store.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		logger.Fatal("failed to connect to mongodb", zap.Error(err))
	}
	defer func() {
		_ = mongoDB.Client().Disconnect(ctx)
	}()
	logger.Info("connected to mongodb", zap.String("uri", cfg.MongoURI))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	logger.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	cartStore := store.NewLayeredStore(store.NewMongoStore(mongoDB), store.NewRedisStore(redisClient), logger)
	manager := h.NewManager(cartStore, logger)

	// Menu catalog and price ledger.
	menuRepo, err := menu.NewSQLiteRepository(cfg.MenuDBPath)
	if err != nil {
		logger.Fatal("failed to open menu database", zap.Error(err))
	}
	defer menuRepo.Close()
	if err := menuRepo.RunMigrations(cfg.MenuMigrationsDir); err != nil {
		logger.Fatal("menu migrations failed", zap.Error(err))
	}
	menuService := menu.NewService(menuRepo, menu.NewRedisQuoteCache(redisClient), logger)

	// Orders.
	orderCred := &orders.Credentials{
		Host:              getEnv("POSTGRES_HOST", "localhost"),
		Port:              getEnvInt("POSTGRES_PORT", 5432),
		User:              getEnv("POSTGRES_USER", "postgres"),
		Password:          getEnv("POSTGRES_PASSWORD", "postgres"),
		DBName:            getEnv("POSTGRES_DB", "ordersdb"),
		MigrationsDirPath: cfg.OrderMigrationsDir,
	}
	orderRepo, err := orders.NewRepository(orderCred)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer orderRepo.Close()
	if err := orderRepo.RunMigrations(orderCred); err != nil {
		logger.Fatal("order migrations failed", zap.Error(err))
	}
	logger.Info("connected to postgres", zap.String("db", orderCred.DBName))

	creator := orders.NewBreakerCreator(orderRepo)

	// Outbox poller publishing order events.
	pollerCtx, stopPoller := context.WithCancel(ctx)
	poller := publisher.NewOutboxPoller(orderRepo, logger, cfg.KafkaBrokers)
	go poller.Run(pollerCtx)
	defer poller.Close()

	cartHandler := h.NewCartHandler(manager, menuService, logger, cfg.RequestTimeout)
	checkoutHandler := h.NewCheckoutHandler(manager, creator, logger, cfg.RequestTimeout)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Mount("/", h.Routes(cartHandler, checkoutHandler))

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: otelhttp.NewHandler(r, "ordering-api"),
	}

	go func() {
		logger.Info("ordering api listening", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down ordering api")
	stopPoller()

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", zap.Error(err))
	}
	logger.Info("ordering api stopped")
}
