package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCheckoutEligible(t *testing.T) {
	now := time.Now()
	future := now.Add(10 * time.Minute)
	past := now.Add(-1 * time.Minute)

	cases := []struct {
		name    string
		status  OfferStatus
		expires *time.Time
		want    error
	}{
		{"offered unexpired", OfferOffered, &future, nil},
		{"offered expired", OfferOffered, &past, ErrNoValidOfferFound},
		{"offered no deadline", OfferOffered, nil, ErrNoValidOfferFound},
		{"waiting", OfferWaiting, &future, ErrNoValidOfferFound},
		{"purchased", OfferPurchased, &future, ErrNoValidOfferFound},
		{"expired", OfferExpired, &future, ErrNoValidOfferFound},
	}

	for _, tt := range cases {
		entry := WaitingListEntry{ID: uuid.New(), Status: tt.status, OfferExpiresAt: tt.expires}
		if got := entry.CheckoutEligible(now); !errors.Is(got, tt.want) {
			t.Fatalf("%s: CheckoutEligible()=%v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOffer(t *testing.T) {
	entry := NewWaitingListEntry(uuid.New(), "buyer@example.com")
	if entry.Status != OfferWaiting {
		t.Fatalf("new entry status = %s", entry.Status)
	}

	now := time.Now()
	entry.Offer(now, 15*time.Minute)
	if entry.Status != OfferOffered {
		t.Fatalf("offered entry status = %s", entry.Status)
	}
	if err := entry.CheckoutEligible(now); err != nil {
		t.Fatalf("fresh offer not eligible: %v", err)
	}
	if err := entry.CheckoutEligible(now.Add(16 * time.Minute)); !errors.Is(err, ErrNoValidOfferFound) {
		t.Fatalf("stale offer eligible")
	}
}
