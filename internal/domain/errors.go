package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")

	ErrNotAuthenticated           = errors.New("not authenticated")
	ErrSellerPaymentNotConfigured = errors.New("seller has not configured a payment method")
	ErrNoValidOfferFound          = errors.New("no valid ticket offer found")
	ErrUnsupportedPaymentMethod   = errors.New("unsupported payment method")
	ErrProviderSessionFailed      = errors.New("failed to create checkout session")
	ErrTicketNotFound             = errors.New("ticket not found")
	ErrInvalidConfirmationToken   = errors.New("invalid confirmation token")
	ErrSoldOut                    = errors.New("not enough tickets available")
)
