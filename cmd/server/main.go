package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/shopbe/cart-service/internal/cache"
	"github.com/shopbe/cart-service/internal/catalog"
	"github.com/shopbe/cart-service/internal/events"
	"github.com/shopbe/cart-service/internal/httpapi"
	"github.com/shopbe/cart-service/internal/identity"
	"github.com/shopbe/cart-service/internal/ledger"
	"github.com/shopbe/cart-service/internal/logging"
	"github.com/shopbe/cart-service/internal/metrics"
	"github.com/shopbe/cart-service/internal/service"
	"github.com/shopbe/cart-service/internal/store"
)

type Config struct {
	HTTPPort        string
	CatalogURL      string
	StoreBackend    string
	MongoURI        string
	MongoDBName     string
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    []string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	var brokers []string
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		brokers = strings.Split(v, ",")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		CatalogURL:      getEnv("CATALOG_URL", "http://localhost:8081"),
		StoreBackend:    getEnv("STORE_BACKEND", "mongo"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "cartdb"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:    brokers,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	logger := logging.New("cart-service")
	defer logger.Sync()

	ctx := context.Background()

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

	var itemStore store.ItemStore
	switch cfg.StoreBackend {
	case "mongo":
		mongoDB, err := store.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			logger.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer mongoDB.Client().Disconnect(ctx)

		mongoStore := store.NewMongoStore(mongoDB)
		if err := mongoStore.CreateIndexes(ctx); err != nil {
			logger.Fatal("failed to create indexes", zap.Error(err))
		}
		itemStore = mongoStore
		logger.Info("connected to MongoDB", zap.String("uri", cfg.MongoURI))
	case "redis":
		itemStore = store.NewRedisStore(redisClient)
		logger.Info("using redis item store")
	default:
		logger.Fatal("unknown store backend", zap.String("backend", cfg.StoreBackend))
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	snapCache := cache.NewRedisCache(redisClient)
	catalogClient := catalog.NewHTTPClient(cfg.CatalogURL, snapCache, logger)

	cartLedger := ledger.New(itemStore, logger)

	var publisher service.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(logger, cfg.KafkaBrokers...)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	cartService := service.NewCartService(catalogClient, cartLedger, itemStore, publisher, m, logger)
	cartHandler := httpapi.NewCartHandler(cartService, identity.Default(), logger)

	listenerCtx, stopListener := context.WithCancel(ctx)
	defer stopListener()
	if len(cfg.KafkaBrokers) > 0 {
		listener := events.NewListener(cartService, logger, cfg.KafkaBrokers...)
		defer listener.Close()
		go listener.Run(listenerCtx)
		logger.Info("checkout listener started", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", cartHandler.GetCart)
		r.Post("/items", cartHandler.UpdateItem)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "cart-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("cart service listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down cart service")
	stopListener()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("cart service stopped")
}
