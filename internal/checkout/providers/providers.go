// Package providers wraps the hosted-checkout SDKs behind one narrow
// interface. Each adapter only marshals parameters; fee math and routing
// live in the orchestrator.
package providers

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stepperslife/ticketing/internal/domain"
)

type LineItem struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

type SessionRequest struct {
	ReferenceID string // our checkout session id, echoed back by callbacks
	EventName   string
	BuyerEmail  string
	SuccessURL  string
	CancelURL   string
	Items       []LineItem
	Total       decimal.Decimal
	Profile     domain.SellerPaymentProfile
}

type SessionResult struct {
	ProviderRef string // provider's session / payment-link / order id
	RedirectURL string
}

type SessionClient interface {
	CreateSession(ctx context.Context, req SessionRequest) (*SessionResult, error)
}

// cents converts a decimal dollar amount to the minor units the SDKs expect.
func cents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
