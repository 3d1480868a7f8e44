package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stepperslife/ticketing/internal/domain"
	"github.com/stepperslife/ticketing/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LedgerRepository records one platform transaction per completed purchase:
// the fee split between platform, provider and seller.
type LedgerRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewLedgerRepository(db *mongo.Database, logger observability.Logger) *LedgerRepository {
	return &LedgerRepository{
		coll:   db.Collection("platform_transactions"),
		logger: logger,
	}
}

type PlatformTransaction struct {
	ID           uuid.UUID `bson:"_id"`
	PurchaseID   uuid.UUID `bson:"purchase_id"`
	EventID      uuid.UUID `bson:"event_id"`
	SellerID     uuid.UUID `bson:"seller_id"`
	Provider     string    `bson:"provider"`
	TotalAmount  string    `bson:"total_amount"`
	PlatformFee  string    `bson:"platform_fee"`
	ProviderFee  string    `bson:"provider_fee"`
	SellerPayout string    `bson:"seller_payout"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (l *LedgerRepository) Record(ctx context.Context, purchaseID, eventID, sellerID uuid.UUID, provider domain.PaymentProvider, fees domain.FeeBreakdown) error {
	doc := PlatformTransaction{
		ID:           uuid.New(),
		PurchaseID:   purchaseID,
		EventID:      eventID,
		SellerID:     sellerID,
		Provider:     string(provider),
		TotalAmount:  fees.TotalAmount.StringFixed(2),
		PlatformFee:  fees.PlatformFee.StringFixed(2),
		ProviderFee:  fees.ProviderFee.StringFixed(2),
		SellerPayout: fees.SellerPayout.StringFixed(2),
		CreatedAt:    time.Now(),
	}
	_, err := l.coll.InsertOne(ctx, doc)
	if err != nil {
		l.logger.Error("failed to record platform transaction", err)
		return err
	}
	return nil
}

// ListBySeller returns a seller's transactions, newest first, capped at
// limit documents.
func (l *LedgerRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int64) ([]PlatformTransaction, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit)
	cur, err := l.coll.Find(ctx, bson.M{"seller_id": sellerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var txs []PlatformTransaction
	if err := cur.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

