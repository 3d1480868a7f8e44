package domain

import (
	"time"

	"github.com/google/uuid"
)

func NewWaitingListEntry(eventID uuid.UUID, buyerEmail string) WaitingListEntry {
	return WaitingListEntry{
		ID:         uuid.New(),
		EventID:    eventID,
		BuyerEmail: buyerEmail,
		Status:     OfferWaiting,
	}
}

// Offer moves a waiting entry into the offered state with a wall-clock
// deadline.
func (w *WaitingListEntry) Offer(now time.Time, window time.Duration) {
	expires := now.Add(window)
	w.Status = OfferOffered
	w.OfferedAt = &now
	w.OfferExpiresAt = &expires
}

// CheckoutEligible reports whether a checkout session may be created against
// this entry. Only a non-expired offered entry qualifies.
func (w WaitingListEntry) CheckoutEligible(now time.Time) error {
	if w.Status != OfferOffered {
		return ErrNoValidOfferFound
	}
	if w.OfferExpiresAt == nil || !now.Before(*w.OfferExpiresAt) {
		return ErrNoValidOfferFound
	}
	return nil
}
