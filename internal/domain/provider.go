package domain

import "fmt"

// PaymentProvider is a closed set. Routing switches over it exhaustively so
// adding a provider is a compile-time visible change.
type PaymentProvider string

const (
	ProviderSquare PaymentProvider = "square"
	ProviderStripe PaymentProvider = "stripe"
	ProviderPayPal PaymentProvider = "paypal"
	ProviderZelle  PaymentProvider = "zelle"
)

func ParseProvider(s string) (PaymentProvider, error) {
	switch PaymentProvider(s) {
	case ProviderSquare, ProviderStripe, ProviderPayPal, ProviderZelle:
		return PaymentProvider(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPaymentMethod, s)
	}
}

func (p PaymentProvider) Hosted() bool {
	return p != ProviderZelle
}
