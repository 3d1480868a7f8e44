package providers

import (
	"context"

	"github.com/cockroachdb/errors"
	stripe "github.com/stripe/stripe-go/v79"
	stripeclient "github.com/stripe/stripe-go/v79/client"
)

type StripeClient struct {
	api *stripeclient.API
}

func NewStripeClient(apiKey string) *StripeClient {
	api := &stripeclient.API{}
	api.Init(apiKey, nil)
	return &StripeClient{api: api}
}

func (c *StripeClient) CreateSession(ctx context.Context, req SessionRequest) (*SessionResult, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(cents(item.UnitPrice)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		CustomerEmail:     stripe.String(req.BuyerEmail),
		ClientReferenceID: stripe.String(req.ReferenceID),
		LineItems:         lineItems,
	}
	params.Context = ctx
	if req.Profile.StripeAccountID != "" {
		params.SetStripeAccount(req.Profile.StripeAccountID)
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "stripe checkout session")
	}
	return &SessionResult{ProviderRef: sess.ID, RedirectURL: sess.URL}, nil
}
