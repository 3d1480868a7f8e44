package crdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stepperslife/ticketing/internal/domain"
)

// CheckoutSessionRecord maps a provider's session id back to purchase
// metadata so the payment callback can be reconciled.
type CheckoutSessionRecord struct {
	ID            uuid.UUID
	Provider      domain.PaymentProvider
	ProviderRef   string
	EventID       uuid.UUID
	SellerID      uuid.UUID
	ReservationID uuid.UUID
	BuyerEmail    string
	PurchaseType  domain.PurchaseType
	ItemID        uuid.UUID
	TotalTickets  int
	TotalAmount   decimal.Decimal
	PlatformFee   decimal.Decimal
	ProviderFee   decimal.Decimal
	SellerPayout  decimal.Decimal
	CreatedAt     time.Time
}

func (r *Repository) InsertCheckoutSession(ctx context.Context, rec CheckoutSessionRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO checkout_sessions (id, provider, provider_ref, event_id, seller_id, reservation_id, buyer_email, purchase_type, item_id, total_tickets, total_amount, platform_fee, provider_fee, seller_payout, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, rec.ID, rec.Provider, rec.ProviderRef, rec.EventID, rec.SellerID, rec.ReservationID, rec.BuyerEmail,
		rec.PurchaseType, rec.ItemID, rec.TotalTickets,
		rec.TotalAmount, rec.PlatformFee, rec.ProviderFee, rec.SellerPayout, rec.CreatedAt)
	return err
}

func (r *Repository) GetCheckoutSessionByProviderRef(ctx context.Context, provider domain.PaymentProvider, providerRef string) (*CheckoutSessionRecord, error) {
	var rec CheckoutSessionRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, provider, provider_ref, event_id, seller_id, reservation_id, buyer_email, purchase_type, item_id, total_tickets, total_amount, platform_fee, provider_fee, seller_payout, created_at
		FROM checkout_sessions WHERE provider = $1 AND provider_ref = $2
	`, provider, providerRef).Scan(&rec.ID, &rec.Provider, &rec.ProviderRef, &rec.EventID, &rec.SellerID, &rec.ReservationID,
		&rec.BuyerEmail, &rec.PurchaseType, &rec.ItemID, &rec.TotalTickets,
		&rec.TotalAmount, &rec.PlatformFee, &rec.ProviderFee, &rec.SellerPayout, &rec.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
