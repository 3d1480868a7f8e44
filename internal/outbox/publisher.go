package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stepperslife/ticketing/internal/adapters/crdb"
	"github.com/stepperslife/ticketing/internal/adapters/rabbit"
	"github.com/stepperslife/ticketing/internal/observability"
)

type Publisher struct {
	repo      *crdb.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewPublisher(repo *crdb.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{repo: repo, rabbitPub: rabbitPub, logger: logger}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			records, err := p.repo.GetUnpublishedOutbox(ctx, 10)
			if err != nil {
				p.logger.Error("failed to read outbox", err)
				continue
			}
			for _, rec := range records {
				msg := amqp.Publishing{
					MessageId:   rec.DedupeKey,
					ContentType: "application/json",
					Body:        rec.Payload,
				}
				if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
					p.logger.Error("failed to publish outbox record", err)
					observability.RabbitPublishRetries.Inc()
					continue
				}
				now := time.Now()
				observability.OutboxLag.Set(now.Sub(rec.CreatedAt).Seconds())
				if err := p.repo.MarkPublished(ctx, rec.ID, now); err != nil {
					p.logger.Error("failed to mark outbox record published", err)
				}
			}
		}
	}
}
