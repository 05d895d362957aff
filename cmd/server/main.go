package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/api"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/cache"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/config"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/identity"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/kafka"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/metrics"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/repository"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/service"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/utils"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	logger, err := utils.NewLogger(cfg.App.Development())
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mc, err := repository.NewMongoClient(ctx, cfg.Mongo.URI)
	if err != nil {
		logger.Fatalw("mongo init", "err", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()
	db := mc.Database(cfg.Mongo.Database)

	store, err := repository.NewMongoStore(ctx, db.Collection(cfg.Mongo.ConversationsCollection))
	if err != nil {
		logger.Fatalw("conversation store init", "err", err)
	}

	var users identity.Resolver
	switch cfg.Identity.Driver {
	case "http":
		users = identity.NewHTTPResolver(identity.HTTPConfig{
			BaseURL:     cfg.Identity.BaseURL,
			Timeout:     cfg.IdentityTimeout,
			MaxFailures: cfg.Identity.MaxFailures,
		}, logger)
	default:
		users = identity.NewMongoResolver(db.Collection(cfg.Mongo.UsersCollection))
	}

	m := metrics.New()
	opts := []service.Option{service.WithMetrics(m)}

	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatalw("redis init", "err", err)
		}
		defer rdb.Close()
		opts = append(opts, service.WithUnreadCache(cache.NewUnreadCache(rdb, cfg.UnreadTTL)))
	}
	if cfg.Kafka.Enabled {
		kprod := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		defer kprod.Close()
		opts = append(opts, service.WithPublisher(kprod))
	}

	svc := service.New(store, users, logger, service.Config{PreviewLength: cfg.Conversation.PreviewLength}, opts...)

	verifier, err := api.NewVerifier(cfg.JWT.Algorithm, cfg.JWT.PublicKeyPath, cfg.JWT.HSSecret)
	if err != nil {
		logger.Fatalw("jwt verifier init", "err", err)
	}
	limiter := api.NewUserRateLimiter(cfg.RateLimit.SendPerMinute, cfg.RateLimit.Burst, logger)
	defer limiter.Close()

	app := api.NewServer(api.ServerDeps{
		Service:    svc,
		Verifier:   verifier,
		Limiter:    limiter,
		Metrics:    m,
		Log:        logger,
		RequestLog: true,
	})

	go func() {
		if err := app.Listen(":" + cfg.App.PortString()); err != nil {
			logger.Fatalw("server listen", "err", err)
		}
	}()
	logger.Infow("conversation service started", "port", cfg.App.Port)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warnw("server shutdown", "err", err)
	}
	logger.Info("conversation service stopped")
}
