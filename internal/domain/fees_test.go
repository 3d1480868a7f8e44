package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeFees(t *testing.T) {
	cases := []struct {
		name        string
		amount      string
		tickets     int
		provider    PaymentProvider
		platformFee string
		providerFee string
		payout      string
	}{
		{"square", "100", 2, ProviderSquare, "3.00", "2.70", "94.30"},
		{"stripe", "100", 2, ProviderStripe, "3.00", "3.20", "93.80"},
		{"paypal", "100", 2, ProviderPayPal, "3.00", "3.38", "93.62"},
		{"zelle no processor cut", "100", 2, ProviderZelle, "3.00", "0", "97.00"},
		{"single ticket square", "25.50", 1, ProviderSquare, "1.50", "0.76", "23.24"},
		{"zero amount", "0", 0, ProviderZelle, "0", "0", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fees := ComputeFees(d(tc.amount), tc.tickets, tc.provider)
			assert.True(t, fees.PlatformFee.Equal(d(tc.platformFee)), "platform fee %s", fees.PlatformFee)
			assert.True(t, fees.ProviderFee.Equal(d(tc.providerFee)), "provider fee %s", fees.ProviderFee)
			assert.True(t, fees.SellerPayout.Equal(d(tc.payout)), "payout %s", fees.SellerPayout)
		})
	}
}

func TestComputeFeesIsDeterministic(t *testing.T) {
	a := ComputeFees(d("59.97"), 3, ProviderPayPal)
	b := ComputeFees(d("59.97"), 3, ProviderPayPal)
	assert.Equal(t, a.ProviderFee.String(), b.ProviderFee.String())
	assert.True(t, a.TotalAmount.Equal(a.PlatformFee.Add(a.ProviderFee).Add(a.SellerPayout)))
}
