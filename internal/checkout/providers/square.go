package providers

import (
	"context"

	"github.com/cockroachdb/errors"
	square "github.com/square/square-go-sdk"
	squarecheckout "github.com/square/square-go-sdk/checkout"
	squareclient "github.com/square/square-go-sdk/client"
	"github.com/square/square-go-sdk/option"
)

type SquareClient struct {
	client *squareclient.Client
}

func NewSquareClient(accessToken, environment string) *SquareClient {
	opts := []option.RequestOption{option.WithToken(accessToken)}
	if environment == "sandbox" {
		opts = append(opts, option.WithBaseURL(square.Environments.Sandbox))
	}
	return &SquareClient{client: squareclient.NewClient(opts...)}
}

func (c *SquareClient) CreateSession(ctx context.Context, req SessionRequest) (*SessionResult, error) {
	resp, err := c.client.Checkout.PaymentLinks.Create(ctx, &squarecheckout.CreatePaymentLinkRequest{
		IdempotencyKey: square.String(req.ReferenceID),
		Description:    square.String(req.EventName),
		QuickPay: &square.QuickPay{
			Name:       req.EventName,
			LocationID: req.Profile.SquareLocationID,
			PriceMoney: &square.Money{
				Amount:   square.Int64(cents(req.Total)),
				Currency: square.CurrencyUsd.Ptr(),
			},
		},
		CheckoutOptions: &square.CheckoutOptions{
			RedirectURL: square.String(req.SuccessURL),
		},
		PrePopulatedData: &square.PrePopulatedData{
			BuyerEmail: square.String(req.BuyerEmail),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "square payment link")
	}

	link := resp.PaymentLink
	if link == nil {
		return nil, errors.New("square returned no payment link")
	}
	var ref, url string
	if link.ID != nil {
		ref = *link.ID
	}
	if link.URL != nil {
		url = *link.URL
	}
	return &SessionResult{ProviderRef: ref, RedirectURL: url}, nil
}
