package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTicketTypeEffectivePrice(t *testing.T) {
	early := d("35")
	cutoff := time.Now().Add(24 * time.Hour)
	tt := TicketType{
		Price:          d("50"),
		EarlyBirdPrice: &early,
		EarlyBirdUntil: &cutoff,
	}

	assert.True(t, tt.EffectivePrice(time.Now()).Equal(early))
	assert.True(t, tt.EffectivePrice(cutoff).Equal(tt.Price), "cutoff instant is regular price")
	assert.True(t, tt.EffectivePrice(cutoff.Add(time.Hour)).Equal(tt.Price))

	noBird := TicketType{Price: d("50")}
	assert.True(t, noBird.EffectivePrice(time.Now()).Equal(noBird.Price))
}

func TestTicketTypeAvailable(t *testing.T) {
	tt := TicketType{Allocated: 100, Sold: 37}
	assert.Equal(t, 63, tt.Available())
}
