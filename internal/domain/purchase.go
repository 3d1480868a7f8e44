package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func NewPurchase(eventID uuid.UUID, buyerEmail, buyerName string, ptype PurchaseType, itemID uuid.UUID, quantity int, total decimal.Decimal, provider PaymentProvider, providerRef string) Purchase {
	return Purchase{
		ID:          uuid.New(),
		EventID:     eventID,
		BuyerEmail:  buyerEmail,
		BuyerName:   buyerName,
		Type:        ptype,
		ItemID:      itemID,
		Quantity:    quantity,
		TotalAmount: total,
		Provider:    provider,
		ProviderRef: providerRef,
		Status:      PurchaseCompleted,
		CreatedAt:   time.Now(),
	}
}

// NewTicketBatch mints one valid ticket per unit purchased, each with its own
// short code and QR payload.
func NewTicketBatch(purchase Purchase, seatLabels []string) ([]Ticket, error) {
	tickets := make([]Ticket, 0, purchase.Quantity)
	for i := 0; i < purchase.Quantity; i++ {
		code, err := NewTicketCode()
		if err != nil {
			return nil, err
		}
		var seat string
		if i < len(seatLabels) {
			seat = seatLabels[i]
		}
		tickets = append(tickets, Ticket{
			ID:         uuid.New(),
			PurchaseID: purchase.ID,
			EventID:    purchase.EventID,
			Code:       code,
			QRPayload:  QRPayload(purchase.EventID.String(), code),
			SeatLabel:  seat,
			Status:     TicketValid,
		})
	}
	return tickets, nil
}
