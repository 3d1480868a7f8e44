package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/stepperslife/ticketing/internal/adapters/crdb"
	"github.com/stepperslife/ticketing/internal/adapters/rabbit"
	redisadapter "github.com/stepperslife/ticketing/internal/adapters/redis"
	"github.com/stepperslife/ticketing/internal/config"
	"github.com/stepperslife/ticketing/internal/domain"
	"github.com/stepperslife/ticketing/internal/observability"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	worker := NewExpiryWorker(repo, redisCache, rabbitPub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, time.Minute)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown offer expiry worker")
}

// ExpiryWorker sweeps waiting-list offers whose window has lapsed and moves
// them to expired so their inventory can be re-offered.
type ExpiryWorker struct {
	repo      *crdb.Repository
	redis     *redisadapter.Cache
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewExpiryWorker(repo *crdb.Repository, redis *redisadapter.Cache, rabbitPub *rabbit.Publisher, logger observability.Logger) *ExpiryWorker {
	return &ExpiryWorker{repo: repo, redis: redis, rabbitPub: rabbitPub, logger: logger}
}

func (w *ExpiryWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			entries, err := w.repo.GetExpiredOffers(ctx, now)
			if err != nil {
				w.logger.Error("failed to get expired offers", err)
				continue
			}
			// Entries are independent rows; sweep them in parallel but
			// bounded so a large backlog cannot exhaust the pool.
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(4)
			for _, entry := range entries {
				entry := entry
				g.Go(func() error {
					if err := w.expireWithRetry(gctx, entry); err != nil {
						w.logger.Error("failed to expire offer after retries", err)
					}
					return nil
				})
			}
			g.Wait()
		}
	}
}

func (w *ExpiryWorker) expireWithRetry(ctx context.Context, entry domain.WaitingListEntry) error {
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		if err := w.repo.ExpireOffer(ctx, entry.ID); err != nil {
			if err == domain.ErrNotFound {
				// Already purchased or expired by a concurrent sweep.
				return nil
			}
			backoff := time.Duration(1<<i) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}

		if err := w.redis.ReleaseOfferLock(ctx, entry.ID.String()); err != nil {
			w.logger.Warn("failed to release offer lock", err)
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"reservation_id": entry.ID,
			"event_id":       entry.EventID,
		})
		msg := amqp.Publishing{
			MessageId:   uuid.New().String(),
			ContentType: "application/json",
			Body:        payload,
		}
		return w.rabbitPub.Publish(ctx, "offer.expired", msg)
	}
	return fmt.Errorf("failed after %d retries", maxRetries)
}
