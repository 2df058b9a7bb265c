package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"starlit-server/internal/classics"
	"starlit-server/internal/config"
	"starlit-server/internal/formatter"
	"starlit-server/internal/generator"
	"starlit-server/internal/handler"
	"starlit-server/internal/llm"
	"starlit-server/internal/logger"
	"starlit-server/internal/messaging"
	"starlit-server/internal/middleware"
	"starlit-server/internal/moral"
	"starlit-server/internal/orchestrator"
	"starlit-server/internal/prompts"
	"starlit-server/internal/router"
	"starlit-server/internal/safety"
	"starlit-server/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redis "github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

const (
	maxConnectRetries = 30
	connectRetryDelay = 3 * time.Second
)

func main() {
	envFile := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	// --- Configuration ---
	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Encoding:    cfg.LogEncoding,
		Development: cfg.Env == "development",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	zap.L().Info("Logger initialized", zap.String("logLevel", cfg.LogLevel), zap.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Thread store ---
	backend, err := setupThreadStore(ctx, cfg, log)
	if err != nil {
		zap.L().Fatal("Failed to set up thread store", zap.Error(err))
	}
	defer backend.close()
	threads := backend.threads

	// --- Events ---
	events, err := setupEvents(cfg, log)
	if err != nil {
		zap.L().Fatal("Failed to set up story event publisher", zap.Error(err))
	}
	defer events.Close()

	// --- Language model and prompts ---
	gateway, err := llm.NewGateway(ctx, cfg, log)
	if err != nil {
		zap.L().Fatal("Failed to create language model client", zap.Error(err))
	}
	defer gateway.Close()

	promptProvider, err := prompts.NewProvider(cfg.PromptsFile, log)
	if err != nil {
		zap.L().Fatal("Failed to load prompt templates", zap.Error(err))
	}

	// --- Pipeline stages ---
	catalog, err := classics.DefaultCatalog()
	if err != nil {
		zap.L().Fatal("Failed to load classic tales catalog", zap.Error(err))
	}
	retriever := classics.NewRetriever(catalog, gateway, promptProvider, cfg.RetrieverModel, cfg.UseLLMClassics, log)

	intentRouter := router.New(retriever, gateway, promptProvider, router.Options{
		UseLLM:                cfg.UseLLMRouter,
		Model:                 cfg.RouterModel,
		HistoryWindow:         cfg.HistoryWindow,
		AllowUnlistedClassics: cfg.UseLLMClassics,
	}, log)

	screen := safety.NewLexicalScreen(cfg.StrictMode)
	var judge *safety.Judge
	if cfg.EnableSafetyChecks {
		judge = safety.NewJudge(gateway, promptProvider, cfg.CheckerModel, cfg.StrictMode, log)
	}
	validator := safety.NewValidator(screen, judge, safety.Options{
		EnableJudge:    cfg.EnableSafetyChecks,
		DisableLexical: cfg.ForceDisableLexicalScreen,
	}, log)

	var screener orchestrator.RequestScreener
	if !cfg.ForceDisableLexicalScreen {
		screener = screen
	}

	orch := orchestrator.New(orchestrator.Deps{
		Threads:   threads,
		Router:    intentRouter,
		Generator: generator.New(gateway, promptProvider, cfg.GeneratorModel, log),
		Validator: validator,
		Screener:  screener,
		Moral:     moral.New(gateway, promptProvider, cfg.MoralModel, log),
		Classics:  retriever,
		Formatter: formatter.New(threads, log),
		Events:    events,
	}, orchestrator.Config{
		MaxIterations:  cfg.MaxIterations,
		DefaultTier:    cfg.LengthTier(),
		MaxInputLength: cfg.MaxInputLength,
		HistoryWindow:  cfg.HistoryWindow,
	}, log)

	storyHandler := handler.NewStoryHandler(orch, threads, handler.Options{
		RequestTimeout: cfg.RequestTimeout,
		MaxInputLength: cfg.MaxInputLength,
	}, log,
		handler.HealthCheck{Name: "thread_store", Check: threads.Ping},
		handler.HealthCheck{Name: "story_events", Check: events.Ping},
	)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.RedirectTrailingSlash = true
	engine.Use(middleware.GinZapLogger(log))
	engine.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")

	corsConfig := cors.DefaultConfig()
	if origins := cfg.GetAllowedOrigins(); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173"}
		zap.L().Info("ALLOWED_ORIGINS not set, allowing default", zap.String("origin", "http://localhost:5173"))
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", middleware.RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	engine.Use(cors.New(corsConfig))

	var generateMiddleware []gin.HandlerFunc
	if cfg.RateLimitPerMinute > 0 {
		limitStore := middleware.NewRateLimitStore(backend.redis, uint(cfg.RateLimitPerMinute))
		generateMiddleware = append(generateMiddleware, middleware.RateLimit(limitStore, log))
		zap.L().Info("Rate limiter initialized", zap.Int("perMinute", cfg.RateLimitPerMinute), zap.Bool("redis", backend.redis != nil))
	}
	storyHandler.RegisterRoutes(engine, generateMiddleware...)

	// Prometheus после регистрации роутов
	p.Use(engine)

	// Генерация с повторами может занять почти весь REQUEST_TIMEOUT
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}
	cancel()

	zap.L().Info("Server exiting")
}

// threadBackend - выбранное хранилище тредов. redis заполнен только для THREAD_STORE=redis
// и переиспользуется лимитером запросов.
type threadBackend struct {
	threads store.ThreadStore
	redis   *redis.Client
	close   func()
}

// setupThreadStore выбирает хранилище по THREAD_STORE.
func setupThreadStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*threadBackend, error) {
	switch strings.ToLower(cfg.ThreadStore) {
	case config.StorePostgres:
		pool, err := setupPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(cfg.GetDSN(), log); err != nil {
			pool.Close()
			return nil, err
		}
		zap.L().Info("Using PostgreSQL thread store", zap.String("dsn", cfg.GetMaskedDSN()))
		return &threadBackend{threads: store.NewPostgresStore(pool, log), close: pool.Close}, nil
	case config.StoreRedis:
		client, err := setupRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		zap.L().Info("Using Redis thread store", zap.Duration("ttl", cfg.ThreadTTL))
		return &threadBackend{
			threads: store.NewRedisStore(client, cfg.ThreadTTL, log),
			redis:   client,
			close:   func() { _ = client.Close() },
		}, nil
	default:
		zap.L().Info("Using in-memory thread store")
		return &threadBackend{threads: store.NewMemoryStore(log), close: func() {}}, nil
	}
}

// setupEvents подключается к RabbitMQ, если задан RABBITMQ_URL.
func setupEvents(cfg *config.Config, log *zap.Logger) (messaging.EventPublisher, error) {
	if cfg.RabbitMQURL == "" {
		zap.L().Info("RABBITMQ_URL not set, story events are disabled")
		return messaging.NoopPublisher{}, nil
	}
	conn, err := connectRabbitMQ(cfg.RabbitMQURL, log)
	if err != nil {
		return nil, err
	}
	publisher, err := messaging.NewRabbitMQPublisher(conn, cfg.StoryEventsQueue, log)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return publisher, nil
}

// setupPostgres создает пул соединений с повторными попытками.
func setupPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout

	var lastErr error
	for attempt := 1; attempt <= maxConnectRetries; attempt++ {
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
		if err == nil {
			err = pool.Ping(connectCtx)
			if err != nil {
				pool.Close()
			}
		}
		connectCancel()

		if err == nil {
			zap.L().Info("Connected to PostgreSQL", zap.Int("attempt", attempt))
			return pool, nil
		}
		lastErr = err
		zap.L().Warn("PostgreSQL connection failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxConnectRetries),
			zap.Error(err),
		)
		if err := sleepCtx(ctx, connectRetryDelay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", maxConnectRetries, lastErr)
}

// setupRedis создает клиента Redis и ждет успешного PING.
func setupRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	var lastErr error
	for attempt := 1; attempt <= maxConnectRetries; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		pingCancel()
		if err == nil {
			zap.L().Info("Connected to Redis", zap.String("address", cfg.RedisAddr), zap.Int("attempt", attempt))
			return client, nil
		}
		lastErr = err
		zap.L().Warn("Redis ping failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxConnectRetries),
			zap.Error(err),
		)
		if err := sleepCtx(ctx, connectRetryDelay); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxConnectRetries, lastErr)
}

// connectRabbitMQ подключается к RabbitMQ с повторными попытками.
func connectRabbitMQ(rawURL string, log *zap.Logger) (*amqp.Connection, error) {
	var lastErr error
	for attempt := 1; attempt <= maxConnectRetries; attempt++ {
		conn, err := amqp.Dial(rawURL)
		if err == nil {
			log.Info("Connected to RabbitMQ", zap.String("url", maskURL(rawURL)), zap.Int("attempt", attempt))
			go func() {
				closeErr := <-conn.NotifyClose(make(chan *amqp.Error, 1))
				if closeErr != nil {
					log.Error("RabbitMQ connection closed unexpectedly", zap.Error(closeErr))
				}
			}()
			return conn, nil
		}
		lastErr = err
		log.Warn("RabbitMQ connection failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxConnectRetries),
			zap.Error(err),
		)
		time.Sleep(connectRetryDelay)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxConnectRetries, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// maskURL скрывает пароль в URL для логов.
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}
