package domain

import "github.com/shopspring/decimal"

// Platform fee is a flat per-ticket cut, independent of the provider.
var platformFeePerTicket = decimal.RequireFromString("1.50")

type providerRate struct {
	percent decimal.Decimal
	fixed   decimal.Decimal
}

var providerRates = map[PaymentProvider]providerRate{
	ProviderSquare: {decimal.RequireFromString("0.026"), decimal.RequireFromString("0.10")},
	ProviderStripe: {decimal.RequireFromString("0.029"), decimal.RequireFromString("0.30")},
	ProviderPayPal: {decimal.RequireFromString("0.0289"), decimal.RequireFromString("0.49")},
	ProviderZelle:  {decimal.Zero, decimal.Zero},
}

type FeeBreakdown struct {
	TotalAmount  decimal.Decimal `json:"total_amount"`
	PlatformFee  decimal.Decimal `json:"platform_fee"`
	ProviderFee  decimal.Decimal `json:"provider_fee"`
	SellerPayout decimal.Decimal `json:"seller_payout"`
}

// ComputeFees is a pure function of (amount, ticketCount, provider).
func ComputeFees(amount decimal.Decimal, ticketCount int, provider PaymentProvider) FeeBreakdown {
	platform := platformFeePerTicket.Mul(decimal.NewFromInt(int64(ticketCount)))

	rate := providerRates[provider]
	providerFee := amount.Mul(rate.percent).Round(2).Add(rate.fixed)

	return FeeBreakdown{
		TotalAmount:  amount,
		PlatformFee:  platform,
		ProviderFee:  providerFee,
		SellerPayout: amount.Sub(platform).Sub(providerFee),
	}
}
