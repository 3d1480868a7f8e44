package providers

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/plutov/paypal/v4"
)

type PayPalClient struct {
	client *paypal.Client
}

func NewPayPalClient(clientID, secret, apiBase string) (*PayPalClient, error) {
	if apiBase == "" {
		apiBase = paypal.APIBaseSandBox
	}
	c, err := paypal.NewClient(clientID, secret, apiBase)
	if err != nil {
		return nil, err
	}
	return &PayPalClient{client: c}, nil
}

func (c *PayPalClient) CreateSession(ctx context.Context, req SessionRequest) (*SessionResult, error) {
	units := []paypal.PurchaseUnitRequest{
		{
			ReferenceID: req.ReferenceID,
			Description: req.EventName,
			Amount: &paypal.PurchaseUnitAmount{
				Currency: "USD",
				Value:    req.Total.StringFixed(2),
			},
			Payee: &paypal.PayeeForOrders{
				EmailAddress: req.Profile.PayPalEmail,
			},
		},
	}

	order, err := c.client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, &paypal.ApplicationContext{
		ReturnURL: req.SuccessURL,
		CancelURL: req.CancelURL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "paypal create order")
	}

	var approveURL string
	for _, link := range order.Links {
		if link.Rel == "approve" {
			approveURL = link.Href
		}
	}
	return &SessionResult{ProviderRef: order.ID, RedirectURL: approveURL}, nil
}
