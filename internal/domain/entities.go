package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TicketingMode string

const (
	ModeTicketed  TicketingMode = "TICKETED"
	ModeDoorPrice TicketingMode = "DOOR_PRICE"
)

type Event struct {
	ID          uuid.UUID
	SellerID    uuid.UUID
	Name        string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      time.Time
	Mode        TicketingMode
	MultiDay    bool
	Cancelled   bool
	Days        []EventDay
}

type EventDay struct {
	ID      uuid.UUID
	EventID uuid.UUID
	Label   string
	Date    time.Time
}

type TicketCategory string

const (
	CategoryGeneral   TicketCategory = "general"
	CategoryVIP       TicketCategory = "vip"
	CategoryEarlyBird TicketCategory = "early_bird"
)

type TicketType struct {
	ID             uuid.UUID
	EventID        uuid.UUID
	EventDayID     *uuid.UUID
	Name           string
	Category       TicketCategory
	Price          decimal.Decimal
	EarlyBirdPrice *decimal.Decimal
	EarlyBirdUntil *time.Time
	Allocated      int
	Sold           int
}

// Available is derived, never stored.
func (t TicketType) Available() int {
	return t.Allocated - t.Sold
}

// EffectivePrice returns the early-bird price while the cutoff has not passed.
func (t TicketType) EffectivePrice(now time.Time) decimal.Decimal {
	if t.EarlyBirdPrice != nil && t.EarlyBirdUntil != nil && now.Before(*t.EarlyBirdUntil) {
		return *t.EarlyBirdPrice
	}
	return t.Price
}

type TableConfiguration struct {
	ID         uuid.UUID
	EventID    uuid.UUID
	Name       string
	SeatCount  int
	Price      decimal.Decimal
	Sold       int
	Hidden     bool
	ShareToken string
}

type PurchaseType string

const (
	PurchaseIndividual PurchaseType = "individual"
	PurchaseTable      PurchaseType = "table"
	PurchaseBundle     PurchaseType = "bundle"
)

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "PENDING"
	PurchaseCompleted PurchaseStatus = "COMPLETED"
	PurchaseRefunded  PurchaseStatus = "REFUNDED"
)

type Purchase struct {
	ID          uuid.UUID
	EventID     uuid.UUID
	BuyerEmail  string
	BuyerName   string
	Type        PurchaseType
	ItemID      uuid.UUID
	Quantity    int
	TotalAmount decimal.Decimal
	Provider    PaymentProvider
	ProviderRef string
	Status      PurchaseStatus
	RefundedAt  *time.Time
	CreatedAt   time.Time
}

type TicketStatus string

const (
	TicketValid     TicketStatus = "valid"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
)

type CheckInMethod string

const (
	CheckInQR     CheckInMethod = "qr"
	CheckInManual CheckInMethod = "manual"
)

type Ticket struct {
	ID         uuid.UUID
	PurchaseID uuid.UUID
	EventID    uuid.UUID
	Code       string
	QRPayload  string
	SeatLabel  string
	Status     TicketStatus
	ScannedAt  *time.Time
	ScannedBy  *uuid.UUID
	Method     *CheckInMethod
}

type OfferStatus string

const (
	OfferWaiting   OfferStatus = "waiting"
	OfferOffered   OfferStatus = "offered"
	OfferPurchased OfferStatus = "purchased"
	OfferExpired   OfferStatus = "expired"
)

// WaitingListEntry is a time-boxed hold on inventory. Checkout may only be
// created while the entry is offered and the offer window is still open.
type WaitingListEntry struct {
	ID             uuid.UUID
	EventID        uuid.UUID
	BuyerEmail     string
	Status         OfferStatus
	OfferedAt      *time.Time
	OfferExpiresAt *time.Time
}

type SellerPaymentProfile struct {
	SellerID         uuid.UUID
	Provider         PaymentProvider
	SquareLocationID string
	SquareMerchantID string
	StripeAccountID  string
	PayPalEmail      string
	ZelleEmail       string
	ZellePhone       string
}

type ScanClassification string

const (
	ScanValid       ScanClassification = "valid"
	ScanAlreadyUsed ScanClassification = "already_used"
	ScanInvalid     ScanClassification = "invalid"
)

// ScanLog is append-only. One row per scan attempt, whatever the outcome.
type ScanLog struct {
	ID          uuid.UUID
	EventID     uuid.UUID
	TicketCode  string
	Result      ScanClassification
	Method      CheckInMethod
	ScannerID   uuid.UUID
	ScannerName string
	DeviceInfo  string
	ScannedAt   time.Time
}
