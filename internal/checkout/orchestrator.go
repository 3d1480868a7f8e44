// Package checkout routes a buyer's ticket selection to the seller's
// configured payment provider and computes the fee split.
package checkout

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stepperslife/ticketing/internal/adapters/crdb"
	"github.com/stepperslife/ticketing/internal/checkout/providers"
	"github.com/stepperslife/ticketing/internal/domain"
	"github.com/stepperslife/ticketing/internal/observability"
)

// Store is the persistence surface the orchestrator needs at
// session-creation time. Session creation never touches inventory.
type Store interface {
	GetSellerPaymentProfile(ctx context.Context, sellerID uuid.UUID) (*domain.SellerPaymentProfile, error)
	GetWaitingListEntry(ctx context.Context, id uuid.UUID) (*domain.WaitingListEntry, error)
	InsertCheckoutSession(ctx context.Context, rec crdb.CheckoutSessionRecord) error
}

// OfferLocker is the single-use guard preventing concurrent sessions against
// the same offered reservation.
type OfferLocker interface {
	AcquireOfferLock(ctx context.Context, reservationID string, ttl time.Duration) (bool, error)
	ReleaseOfferLock(ctx context.Context, reservationID string) error
}

type Line struct {
	TicketTypeID uuid.UUID       `json:"ticket_type_id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
}

type Params struct {
	EventID       uuid.UUID  `json:"event_id"`
	SellerID      uuid.UUID  `json:"seller_id"`
	ReservationID uuid.UUID  `json:"reservation_id"`
	Items         []Line     `json:"items"`
	BuyerEmail    string     `json:"buyer_email"`
	SuccessURL    string     `json:"success_url"`
	CancelURL     string     `json:"cancel_url"`
	EventName     string     `json:"event_name"`
	ReferralCode  string     `json:"referral_code,omitempty"`
	TableID       *uuid.UUID `json:"table_id,omitempty"`
	BundleID      *uuid.UUID `json:"bundle_id,omitempty"`
}

type ManualPaymentInstructions struct {
	RecipientEmail string          `json:"recipient_email"`
	RecipientPhone string          `json:"recipient_phone"`
	Amount         decimal.Decimal `json:"amount"`
	ReferenceCode  string          `json:"reference_code"`
}

type Response struct {
	SessionID             uuid.UUID                  `json:"session_id"`
	Provider              domain.PaymentProvider     `json:"provider"`
	CheckoutURL           string                     `json:"checkout_url,omitempty"`
	RequiresManualPayment bool                       `json:"requires_manual_payment"`
	ManualInstructions    *ManualPaymentInstructions `json:"manual_instructions,omitempty"`
	Fees                  domain.FeeBreakdown        `json:"fees"`
	TotalTickets          int                        `json:"total_tickets"`
}

type Orchestrator struct {
	store   Store
	locks   OfferLocker
	clients map[domain.PaymentProvider]providers.SessionClient
	lockTTL time.Duration
	logger  observability.Logger
}

func NewOrchestrator(store Store, locks OfferLocker, clients map[domain.PaymentProvider]providers.SessionClient, lockTTL time.Duration, logger observability.Logger) *Orchestrator {
	return &Orchestrator{
		store:   store,
		locks:   locks,
		clients: clients,
		lockTTL: lockTTL,
		logger:  logger,
	}
}

func (o *Orchestrator) CreateCheckoutSession(ctx context.Context, p Params) (*Response, error) {
	if len(p.Items) == 0 {
		return nil, errors.Wrap(domain.ErrInvalidInput, "empty ticket selection")
	}
	totalAmount := decimal.Zero
	totalTickets := 0
	for _, line := range p.Items {
		if line.Quantity < 1 {
			return nil, errors.Wrap(domain.ErrInvalidInput, "quantity must be at least 1")
		}
		if line.UnitPrice.IsNegative() {
			return nil, errors.Wrap(domain.ErrInvalidInput, "negative unit price")
		}
		totalAmount = totalAmount.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		totalTickets += line.Quantity
	}

	profile, err := o.store.GetSellerPaymentProfile(ctx, p.SellerID)
	if err != nil {
		return nil, err
	}

	entry, err := o.store.GetWaitingListEntry(ctx, p.ReservationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoValidOfferFound
		}
		return nil, err
	}
	if err := entry.CheckoutEligible(time.Now()); err != nil {
		return nil, err
	}

	ok, err := o.locks.AcquireOfferLock(ctx, p.ReservationID.String(), o.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNoValidOfferFound
	}

	fees := domain.ComputeFees(totalAmount, totalTickets, profile.Provider)
	sessionID := uuid.New()

	resp := &Response{
		SessionID:    sessionID,
		Provider:     profile.Provider,
		Fees:         fees,
		TotalTickets: totalTickets,
	}
	var providerRef string

	switch profile.Provider {
	case domain.ProviderZelle:
		ref, err := domain.NewZelleReference(time.Now())
		if err != nil {
			o.locks.ReleaseOfferLock(ctx, p.ReservationID.String())
			return nil, err
		}
		providerRef = ref
		resp.RequiresManualPayment = true
		resp.ManualInstructions = &ManualPaymentInstructions{
			RecipientEmail: profile.ZelleEmail,
			RecipientPhone: profile.ZellePhone,
			Amount:         totalAmount,
			ReferenceCode:  ref,
		}
	case domain.ProviderSquare, domain.ProviderStripe, domain.ProviderPayPal:
		client, found := o.clients[profile.Provider]
		if !found {
			o.locks.ReleaseOfferLock(ctx, p.ReservationID.String())
			return nil, domain.ErrUnsupportedPaymentMethod
		}
		items := make([]providers.LineItem, 0, len(p.Items))
		for _, line := range p.Items {
			items = append(items, providers.LineItem{Name: line.Name, UnitPrice: line.UnitPrice, Quantity: line.Quantity})
		}
		result, err := client.CreateSession(ctx, providers.SessionRequest{
			ReferenceID: sessionID.String(),
			EventName:   p.EventName,
			BuyerEmail:  p.BuyerEmail,
			SuccessURL:  p.SuccessURL,
			CancelURL:   p.CancelURL,
			Items:       items,
			Total:       totalAmount,
			Profile:     *profile,
		})
		if err != nil {
			// Underlying cause stays in the logs; the caller gets the
			// generic error and must resubmit. No automatic retry.
			o.logger.WithField("provider", string(profile.Provider)).Error("provider session creation failed", err)
			observability.CheckoutSessionsTotal.WithLabelValues(string(profile.Provider), "error").Inc()
			o.locks.ReleaseOfferLock(ctx, p.ReservationID.String())
			return nil, domain.ErrProviderSessionFailed
		}
		providerRef = result.ProviderRef
		resp.CheckoutURL = result.RedirectURL
	default:
		o.locks.ReleaseOfferLock(ctx, p.ReservationID.String())
		return nil, domain.ErrUnsupportedPaymentMethod
	}

	purchaseType := domain.PurchaseIndividual
	itemID := p.Items[0].TicketTypeID
	if p.TableID != nil {
		purchaseType = domain.PurchaseTable
		itemID = *p.TableID
	} else if p.BundleID != nil {
		purchaseType = domain.PurchaseBundle
		itemID = *p.BundleID
	}

	err = o.store.InsertCheckoutSession(ctx, crdb.CheckoutSessionRecord{
		ID:            sessionID,
		Provider:      profile.Provider,
		ProviderRef:   providerRef,
		EventID:       p.EventID,
		SellerID:      p.SellerID,
		ReservationID: p.ReservationID,
		BuyerEmail:    p.BuyerEmail,
		PurchaseType:  purchaseType,
		ItemID:        itemID,
		TotalTickets:  totalTickets,
		TotalAmount:   fees.TotalAmount,
		PlatformFee:   fees.PlatformFee,
		ProviderFee:   fees.ProviderFee,
		SellerPayout:  fees.SellerPayout,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		// A hosted session may already exist at the provider; unpaid, it
		// expires upstream. The offer must stay claimable for a resubmit.
		o.locks.ReleaseOfferLock(ctx, p.ReservationID.String())
		return nil, err
	}

	observability.CheckoutSessionsTotal.WithLabelValues(string(profile.Provider), "created").Inc()
	return resp, nil
}
