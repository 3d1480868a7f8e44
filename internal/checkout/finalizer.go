package checkout

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stepperslife/ticketing/internal/adapters/crdb"
	mongoadapter "github.com/stepperslife/ticketing/internal/adapters/mongo"
	"github.com/stepperslife/ticketing/internal/domain"
	"github.com/stepperslife/ticketing/internal/observability"
)

// Finalizer turns a confirmed payment into a completed purchase: the
// reservation is consumed, inventory is committed and tickets are minted.
// This is the only place ticket inventory is mutated.
type Finalizer struct {
	repo   *crdb.Repository
	ledger *mongoadapter.LedgerRepository
	locks  OfferLocker
	logger observability.Logger
}

func NewFinalizer(repo *crdb.Repository, ledger *mongoadapter.LedgerRepository, locks OfferLocker, logger observability.Logger) *Finalizer {
	return &Finalizer{repo: repo, ledger: ledger, locks: locks, logger: logger}
}

type FinalizeParams struct {
	Provider    domain.PaymentProvider
	ProviderRef string
	BuyerName   string
	SeatLabels  []string
}

type FinalizeResult struct {
	Purchase domain.Purchase
	Tickets  []domain.Ticket
}

func (f *Finalizer) FinalizePurchase(ctx context.Context, p FinalizeParams) (*FinalizeResult, error) {
	session, err := f.repo.GetCheckoutSessionByProviderRef(ctx, p.Provider, p.ProviderRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errors.Wrap(domain.ErrNotFound, "unknown provider session")
		}
		return nil, err
	}

	purchase := domain.NewPurchase(session.EventID, session.BuyerEmail, p.BuyerName,
		session.PurchaseType, session.ItemID, session.TotalTickets,
		session.TotalAmount, session.Provider, session.ProviderRef)
	tickets, err := domain.NewTicketBatch(purchase, p.SeatLabels)
	if err != nil {
		return nil, err
	}

	err = f.repo.WithTx(ctx, func(tx pgx.Tx) error {
		if err := f.repo.TransitionOffer(ctx, tx, session.ReservationID, domain.OfferOffered, domain.OfferPurchased); err != nil {
			return err
		}
		switch session.PurchaseType {
		case domain.PurchaseIndividual:
			if err := f.repo.IncrementSold(ctx, tx, session.ItemID, session.TotalTickets); err != nil {
				return err
			}
		case domain.PurchaseTable:
			if err := f.repo.IncrementTableSold(ctx, tx, session.ItemID); err != nil {
				return err
			}
		case domain.PurchaseBundle:
			// Bundles carry no stored allocation; capacity is enforced on
			// the component ticket types when the bundle is defined.
		}
		if err := f.repo.InsertPurchase(ctx, tx, purchase); err != nil {
			return err
		}
		if err := f.repo.InsertTickets(ctx, tx, tickets); err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]interface{}{
			"purchase_id": purchase.ID,
			"event_id":    purchase.EventID,
			"quantity":    purchase.Quantity,
			"provider":    purchase.Provider,
		})
		return f.repo.InsertOutbox(ctx, tx, crdb.OutboxRecord{
			ID:            uuid.New(),
			AggregateType: "purchase",
			AggregateID:   purchase.ID,
			EventType:     "purchase.completed",
			Payload:       payload,
			DedupeKey:     uuid.New().String(),
		})
	})
	if err != nil {
		return nil, err
	}

	// Ledger write is outside the transaction; a failure is logged, not
	// surfaced, since the purchase is already durable.
	if err := f.ledger.Record(ctx, purchase.ID, session.EventID, session.SellerID, session.Provider, domain.FeeBreakdown{
		TotalAmount:  session.TotalAmount,
		PlatformFee:  session.PlatformFee,
		ProviderFee:  session.ProviderFee,
		SellerPayout: session.SellerPayout,
	}); err != nil {
		f.logger.WithField("purchase_id", purchase.ID.String()).Warn("ledger record failed", err)
	}

	if err := f.locks.ReleaseOfferLock(ctx, session.ReservationID.String()); err != nil {
		f.logger.Warn("failed to release offer lock", err)
	}

	return &FinalizeResult{Purchase: purchase, Tickets: tickets}, nil
}
