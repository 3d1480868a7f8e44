package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/stepperslife/ticketing/internal/adapters/crdb"
	mongoadapter "github.com/stepperslife/ticketing/internal/adapters/mongo"
	"github.com/stepperslife/ticketing/internal/adapters/rabbit"
	redisadapter "github.com/stepperslife/ticketing/internal/adapters/redis"
	"github.com/stepperslife/ticketing/internal/checkin"
	"github.com/stepperslife/ticketing/internal/checkout"
	"github.com/stepperslife/ticketing/internal/checkout/providers"
	"github.com/stepperslife/ticketing/internal/config"
	"github.com/stepperslife/ticketing/internal/domain"
	httphandler "github.com/stepperslife/ticketing/internal/http"
	"github.com/stepperslife/ticketing/internal/idempotency"
	"github.com/stepperslife/ticketing/internal/observability"
	"github.com/stepperslife/ticketing/internal/rateLimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database("stepperslife")
	scanLogs := mongoadapter.NewScanLogRepository(mongoDB, logger)
	ledger := mongoadapter.NewLedgerRepository(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, time.Hour)
	rl := rateLimit.NewRateLimiter(redisCache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	clients := map[domain.PaymentProvider]providers.SessionClient{}
	if cfg.SquareAccessToken != "" {
		clients[domain.ProviderSquare] = providers.NewSquareClient(cfg.SquareAccessToken, cfg.SquareEnvironment)
	}
	if cfg.StripeAPIKey != "" {
		clients[domain.ProviderStripe] = providers.NewStripeClient(cfg.StripeAPIKey)
	}
	if cfg.PayPalClientID != "" {
		paypalClient, err := providers.NewPayPalClient(cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.PayPalAPIBase)
		if err != nil {
			log.Fatalf("failed to create paypal client: %v", err)
		}
		clients[domain.ProviderPayPal] = paypalClient
	}

	orchestrator := checkout.NewOrchestrator(repo, redisCache, clients, cfg.OfferTTL, logger)
	finalizer := checkout.NewFinalizer(repo, ledger, redisCache, logger)
	validator := checkin.NewValidator(repo, scanLogs, logger)

	handlers := httphandler.NewHandlers(cfg, repo, orchestrator, finalizer, validator, idemp, rabbitPub, scanLogs, ledger)

	r := httphandler.SetupRouter(handlers, logger, rl, idemp)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
